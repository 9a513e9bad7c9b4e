/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package version exposes build information, set with
// -ldflags "-X proposalcanvas/internal/version.Version=v1.2.3 -X proposalcanvas/internal/version.Commit=abc123".
package version

import (
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = ""
)

var (
	once     sync.Once
	resolved string
)

// String returns the version with the short commit, falling back to the VCS
// revision recorded by the go tool.
func String() string {
	once.Do(func() {
		commit := Commit
		if commit == "" {
			if bi, ok := debug.ReadBuildInfo(); ok {
				for _, s := range bi.Settings {
					if s.Key == "vcs.revision" {
						commit = s.Value
					}
				}
			}
		}
		if len(commit) > 7 {
			commit = commit[:7]
		}
		resolved = Version
		if commit != "" {
			resolved += "+" + commit
		}
	})
	return resolved
}

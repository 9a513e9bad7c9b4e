/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file plus a recovery copy of the
// section that was open, so unsaved edits survive the crash.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"proposalcanvas/internal/domain"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/version"
)

// exitFn is swapped in tests so Recover does not end the test binary.
var exitFn = os.Exit

// Snapshotter yields the in-memory state of the open section, unsaved edits
// included. ok is false when nothing is open.
type Snapshotter interface {
	RecoverySnapshot() (sec domain.Section, dirty bool, ok bool)
}

// Handler writes crash artifacts into Dir (os.TempDir when empty).
type Handler struct {
	Dir     string
	Section Snapshotter
}

// Recover captures a panic, logs it with the stack, writes a report and a
// recovery file, and exits with code 2.
//
// Usage: defer h.Recover()
func (h Handler) Recover() {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := h.writeReport(r, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if path, err := h.writeRecovery(); err != nil {
		l.Error("recovery snapshot failed", slog.Any("err", err))
	} else if path != "" {
		l.Info("recovery snapshot written", slog.String("path", path))
		fmt.Fprintf(os.Stderr, "Unsaved page content was written to: %s\n", path)
	}
	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func (h Handler) dir() string {
	if h.Dir == "" {
		return os.TempDir()
	}
	return h.Dir
}

func stamp() string { return time.Now().Format("20060102-150405") }

func (h Handler) writeReport(panicVal any, stack []byte) (string, error) {
	dir := h.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp()))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "proposalcanvas crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if h.Section != nil {
		if sec, dirty, ok := h.Section.RecoverySnapshot(); ok {
			fmt.Fprintf(&buf, "Section: %s (proposal %s, %d elements, unsaved=%t)\n", sec.ID, sec.ProposalID, len(sec.Elements), dirty)
		}
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer f.Close()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	return path, f.Sync()
}

// writeRecovery dumps the open section as JSON when it has unsaved changes.
// It returns "" when there is nothing to save.
func (h Handler) writeRecovery() (string, error) {
	if h.Section == nil {
		return "", nil
	}
	sec, dirty, ok := h.Section.RecoverySnapshot()
	if !ok || !dirty {
		return "", nil
	}
	b, err := json.MarshalIndent(sec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode section %s: %w", sec.ID, err)
	}
	path := filepath.Join(h.dir(), fmt.Sprintf("recovery-%s-%s.json", filepath.Base(sec.ID), stamp()))
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRecovery loads a recovery file written by Recover.
func ReadRecovery(path string) (domain.Section, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Section{}, err
	}
	var sec domain.Section
	if err := json.Unmarshal(b, &sec); err != nil {
		return domain.Section{}, fmt.Errorf("parse recovery file %s: %w", path, err)
	}
	return sec, nil
}

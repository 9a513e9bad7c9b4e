/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"net/url"
	"strings"
)

// EmbedURL maps a share link of a known video provider to its embeddable player
// URL with the playback flags applied. Unrecognised URLs are returned unchanged
// and treated as direct media references. The mapping is deterministic and
// applying it to a player URL yields the same player URL.
func EmbedURL(raw string, autoplay, muted, loop bool) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := parseLoose(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == "youtu.be":
		if id := firstSegment(u.Path); id != "" {
			return youtubePlayer(id, autoplay, muted, loop)
		}
	case host == "youtube.com" || host == "youtube-nocookie.com":
		if id := youtubeID(u); id != "" {
			return youtubePlayer(id, autoplay, muted, loop)
		}
	case host == "vimeo.com" || host == "player.vimeo.com":
		if id := vimeoID(u.Path); id != "" {
			return "https://player.vimeo.com/video/" + id +
				"?autoplay=" + flag(autoplay) + "&muted=" + flag(muted) + "&loop=" + flag(loop)
		}
	}
	return raw
}

// IsProviderEmbed reports whether u is a player URL produced by EmbedURL.
func IsProviderEmbed(u string) bool {
	return strings.HasPrefix(u, "https://www.youtube.com/embed/") ||
		strings.HasPrefix(u, "https://player.vimeo.com/video/")
}

func youtubePlayer(id string, autoplay, muted, loop bool) string {
	return "https://www.youtube.com/embed/" + id +
		"?autoplay=" + flag(autoplay) + "&mute=" + flag(muted) + "&loop=" + flag(loop)
}

func youtubeID(u *url.URL) string {
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) >= 2 {
		switch segs[0] {
		case "embed", "shorts", "live", "v":
			return segs[1]
		}
	}
	return ""
}

func vimeoID(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if isDigits(segs[i]) {
			return segs[i]
		}
	}
	return ""
}

func firstSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseLoose accepts URLs typed without a scheme ("youtu.be/abc").
func parseLoose(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return url.Parse(raw)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
)

// MaxImageBytes caps files turned into data URLs.
const MaxImageBytes = 10 << 20

// ImageEditor edits an image reference. Local files become data URLs for
// preview; uploading them elsewhere is not its job.
type ImageEditor struct {
	base
	draft *domain.ImageContent
}

func NewImageEditor(el domain.Element) *ImageEditor {
	return &ImageEditor{base: newBase(el), draft: content[*domain.ImageContent](el)}
}

// SetSource sets a URL or data URL; "" clears the image.
func (e *ImageEditor) SetSource(src string) { e.draft.Src = strings.TrimSpace(src) }
func (e *ImageEditor) SetAlt(s string)      { e.draft.Alt = s }
func (e *ImageEditor) SetCaption(s string)  { e.draft.Caption = s }

// LoadFile reads a local image into the draft. The alt text defaults to the
// file name when empty.
func (e *ImageEditor) LoadFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	if fi.Size() > MaxImageBytes {
		return fmt.Errorf("%w: %s is larger than %d bytes", ErrNotImage, filepath.Base(path), MaxImageBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if err := e.LoadBytes(data); err != nil {
		return err
	}
	if e.draft.Alt == "" {
		e.draft.Alt = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return nil
}

// LoadBytes sniffs data and stores it as a data URL. When the pixel size can be
// decoded the element height is adjusted to keep the image aspect ratio at the
// current width.
func (e *ImageEditor) LoadBytes(data []byte) error {
	if len(data) > MaxImageBytes {
		return fmt.Errorf("%w: %d bytes", ErrNotImage, len(data))
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(data) {
		return ErrNotImage
	}
	e.draft.Src = "data:" + kind.MIME.Value + ";base64," + base64.StdEncoding.EncodeToString(data)
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		w := e.el.Width
		if w <= 0 {
			w = float64(cfg.Width)
		}
		e.size = &domain.Size{Width: w, Height: domain.FloorSize(w * float64(cfg.Height) / float64(cfg.Width))}
	}
	return nil
}

func (e *ImageEditor) Draft() domain.ImageContent { return *e.draft }
func (e *ImageEditor) Preview() string            { return e.preview(e.draft) }
func (e *ImageEditor) Confirm() geometry.Update   { return e.update(e.draft) }

// VideoEditor keeps the player URL in sync with the URL and playback flags.
type VideoEditor struct {
	base
	draft *domain.VideoContent
}

func NewVideoEditor(el domain.Element) *VideoEditor {
	d := content[*domain.VideoContent](el)
	d.Derive()
	return &VideoEditor{base: newBase(el), draft: d}
}

func (e *VideoEditor) SetURL(u string) {
	e.draft.URL = strings.TrimSpace(u)
	e.draft.Derive()
}

func (e *VideoEditor) SetTitle(s string) { e.draft.Title = s }

func (e *VideoEditor) SetAutoplay(on bool) {
	e.draft.Autoplay = on
	e.draft.Derive()
}

func (e *VideoEditor) SetMuted(on bool) {
	e.draft.Muted = on
	e.draft.Derive()
}

func (e *VideoEditor) SetLoop(on bool) {
	e.draft.Loop = on
	e.draft.Derive()
}

func (e *VideoEditor) Draft() domain.VideoContent { return *e.draft }
func (e *VideoEditor) Preview() string            { return e.preview(e.draft) }
func (e *VideoEditor) Confirm() geometry.Update   { return e.update(e.draft) }

// EmbedEditor edits third-party markup. The code is stored verbatim.
type EmbedEditor struct {
	base
	draft *domain.EmbedContent
}

func NewEmbedEditor(el domain.Element) *EmbedEditor {
	return &EmbedEditor{base: newBase(el), draft: content[*domain.EmbedContent](el)}
}

func (e *EmbedEditor) SetCode(code string) { e.draft.Code = code }

func (e *EmbedEditor) SetEmbedType(t domain.EmbedType) error {
	if t != domain.EmbedIframe && t != domain.EmbedCode {
		return fmt.Errorf("%w: embed type %q", ErrInvalidValue, t)
	}
	e.draft.EmbedType = t
	return nil
}

func (e *EmbedEditor) Draft() domain.EmbedContent { return *e.draft }
func (e *EmbedEditor) Preview() string            { return e.preview(e.draft) }
func (e *EmbedEditor) Confirm() geometry.Update   { return e.update(e.draft) }

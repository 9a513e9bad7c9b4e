/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"proposalcanvas/internal/canvas"
	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/editor"
	"proposalcanvas/internal/geometry"
)

var errQuit = errors.New("quit")

// session drives a canvas controller from line commands, one per line:
//
//	open <section>          add <kind>          edit <id>
//	select <id>             click <x> <y>       deselect
//	move <id> <dx> <dy>     resize <id> <handle> <dx> <dy>
//	delete [id]             dup <id>            lock <id>
//	set <field> <value...>  ok                  cancel
//	zoom in|out|<factor>    grid                title <text...>
//	save  status  list  elements  render [file]  preview [file]  quit
type session struct {
	c   *canvas.Controller
	out io.Writer
}

// Run executes commands from r until EOF or quit. Errors of single commands
// are reported and do not stop the session.
func (s *session) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		err := s.exec(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	return sc.Err()
}

func num(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !domain.Finite(v) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func (s *session) exec(ctx context.Context, line string) error {
	f := strings.Fields(line)
	cmd, args := f[0], f[1:]
	c := s.c
	switch cmd {
	case "quit", "exit":
		return errQuit
	case "list":
		for _, sec := range c.Sections() {
			mark := " "
			if sec.ID == c.ActiveSection() {
				mark = "*"
			}
			fmt.Fprintf(s.out, "%s %d %s %s\n", mark, sec.OrderIndex, sec.ID, sec.Title)
		}
		return nil
	case "open":
		if err := need(args, 1, "open <section>"); err != nil {
			return err
		}
		return c.SwitchTo(ctx, args[0])
	case "reload":
		return c.Reload(ctx)
	case "elements":
		for _, el := range geometry.PaintOrder(c.Elements()) {
			lock := ""
			if el.Locked {
				lock = " locked"
			}
			fmt.Fprintf(s.out, "%s %s z=%d at %g,%g size %gx%g%s\n", el.ID, el.Type, el.ZIndex, el.Position.X, el.Position.Y, el.Width, el.Height, lock)
		}
		return nil
	case "add":
		if err := need(args, 1, "add <kind>"); err != nil {
			return err
		}
		ed, err := c.AddElement(domain.ElementType(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "editing %s %s\n", ed.Kind(), ed.ElementID())
		return nil
	case "edit":
		if err := need(args, 1, "edit <id>"); err != nil {
			return err
		}
		ed, err := c.Edit(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "editing %s %s\n", ed.Kind(), ed.ElementID())
		return nil
	case "set":
		if err := need(args, 2, "set <field> <value...>"); err != nil {
			return err
		}
		ed := c.Editor()
		if ed == nil {
			return canvas.ErrNotEditing
		}
		return setField(ed, args[0], args[1:])
	case "ok":
		return c.ConfirmEdit()
	case "cancel":
		return c.CancelEdit()
	case "select":
		if err := need(args, 1, "select <id>"); err != nil {
			return err
		}
		return c.Click(args[0])
	case "deselect":
		return c.ClearSelection()
	case "click":
		if err := need(args, 2, "click <x> <y>"); err != nil {
			return err
		}
		x, err := num(args[0])
		if err != nil {
			return err
		}
		y, err := num(args[1])
		if err != nil {
			return err
		}
		id, err := c.ClickAt(x, y)
		if err != nil {
			return err
		}
		if id == "" {
			id = "(nothing)"
		}
		fmt.Fprintln(s.out, "selected", id)
		return nil
	case "move":
		if err := need(args, 3, "move <id> <dx> <dy>"); err != nil {
			return err
		}
		dx, err := num(args[1])
		if err != nil {
			return err
		}
		dy, err := num(args[2])
		if err != nil {
			return err
		}
		if err := c.BeginDrag(args[0]); err != nil {
			return err
		}
		if err := c.DragBy(dx, dy); err != nil {
			return err
		}
		return c.EndDrag()
	case "resize":
		if err := need(args, 4, "resize <id> <handle> <dx> <dy>"); err != nil {
			return err
		}
		dx, err := num(args[2])
		if err != nil {
			return err
		}
		dy, err := num(args[3])
		if err != nil {
			return err
		}
		if err := c.BeginResize(args[0], geometry.Handle(args[1])); err != nil {
			return err
		}
		if err := c.ResizeBy(dx, dy); err != nil {
			return err
		}
		return c.EndResize()
	case "delete":
		var deleted bool
		var err error
		if len(args) > 0 {
			deleted, err = c.ContextDelete(args[0])
		} else {
			deleted, err = c.KeyDown("Delete", canvas.FocusCanvas)
		}
		if err == nil && !deleted {
			fmt.Fprintln(s.out, "not deleted")
		}
		return err
	case "dup":
		if err := need(args, 1, "dup <id>"); err != nil {
			return err
		}
		el, err := c.Duplicate(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, "duplicated as", el.ID)
		return nil
	case "lock":
		if err := need(args, 1, "lock <id>"); err != nil {
			return err
		}
		locked, err := c.ToggleLock(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s locked=%t\n", args[0], locked)
		return nil
	case "zoom":
		if err := need(args, 1, "zoom in|out|<factor>"); err != nil {
			return err
		}
		var z float64
		switch args[0] {
		case "in":
			z = c.ZoomIn()
		case "out":
			z = c.ZoomOut()
		default:
			v, err := num(args[0])
			if err != nil {
				return err
			}
			z = c.SetZoom(v)
		}
		fmt.Fprintf(s.out, "zoom %g\n", z)
		return nil
	case "grid":
		fmt.Fprintf(s.out, "grid %t\n", c.ToggleGrid())
		return nil
	case "title":
		return c.SetTitle(strings.TrimSpace(strings.TrimPrefix(line, "title")))
	case "save":
		return c.Save(ctx)
	case "status":
		st := c.SaveStatus()
		fmt.Fprintf(s.out, "section=%s state=%s save=%s dirty=%t\n", c.ActiveSection(), c.State(), st.Status, c.Dirty())
		if st.Err != nil {
			fmt.Fprintf(s.out, "last error: %v\n", st.Err)
		}
		return nil
	case "render", "preview":
		w := s.out
		if len(args) > 0 {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		var err error
		if cmd == "render" {
			err = c.Render(w)
		} else {
			err = c.Preview(w)
		}
		if err == nil && w == s.out {
			fmt.Fprintln(s.out)
		}
		return err
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// setField applies one draft change to the open editor.
func setField(ed editor.Editor, field string, vals []string) error {
	v := strings.Join(vals, " ")
	bad := fmt.Errorf("%s editor has no field %q", ed.Kind(), field)
	switch e := ed.(type) {
	case *editor.TextEditor:
		switch field {
		case "text":
			e.SetText(v)
		case "size":
			n, err := num(v)
			if err != nil {
				return err
			}
			e.SetFontSize(n)
		case "align":
			return e.SetAlign(domain.TextAlign(v))
		case "color":
			e.SetColor(v)
		default:
			return bad
		}
	case *editor.HeadingEditor:
		switch field {
		case "text":
			e.SetText(v)
		case "level":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not a level: %q", v)
			}
			return e.SetLevel(n)
		default:
			return bad
		}
	case *editor.ImageEditor:
		switch field {
		case "src":
			e.SetSource(v)
		case "file":
			return e.LoadFile(v)
		case "alt":
			e.SetAlt(v)
		case "caption":
			e.SetCaption(v)
		default:
			return bad
		}
	case *editor.VideoEditor:
		switch field {
		case "url":
			e.SetURL(v)
		case "title":
			e.SetTitle(v)
		case "autoplay":
			e.SetAutoplay(v == "on" || v == "true")
		case "muted":
			e.SetMuted(v == "on" || v == "true")
		case "loop":
			e.SetLoop(v == "on" || v == "true")
		default:
			return bad
		}
	case *editor.EmbedEditor:
		switch field {
		case "code":
			e.SetCode(v)
		case "type":
			return e.SetEmbedType(domain.EmbedType(v))
		default:
			return bad
		}
	case *editor.ShapeEditor:
		switch field {
		case "shape":
			return e.SetShapeType(domain.ShapeType(v))
		case "color":
			e.SetColor(v)
		case "background":
			e.SetBackground(v)
		case "opacity":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not a percentage: %q", v)
			}
			e.SetOpacity(n)
		case "border":
			return e.SetBorderStyle(domain.BorderStyle(v))
		default:
			return bad
		}
	case *editor.TableEditor:
		switch field {
		case "rows", "cols":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not a count: %q", v)
			}
			if field == "rows" {
				e.SetRows(n)
			} else {
				e.SetCols(n)
			}
		case "cell":
			if len(vals) < 2 {
				return errors.New("usage: set cell <row> <col> <text...>")
			}
			r, err1 := strconv.Atoi(vals[0])
			col, err2 := strconv.Atoi(vals[1])
			if err1 != nil || err2 != nil {
				return errors.New("usage: set cell <row> <col> <text...>")
			}
			return e.SetCell(r, col, strings.Join(vals[2:], " "))
		case "header":
			e.SetHeader(v == "on" || v == "true")
		default:
			return bad
		}
	case *editor.ChartEditor:
		switch field {
		case "type":
			return e.SetChartType(domain.ChartType(v))
		case "title":
			e.SetTitle(v)
		default:
			return bad
		}
	default:
		return bad
	}
	return nil
}

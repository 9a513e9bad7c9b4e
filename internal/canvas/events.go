/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"context"
	"sync"
)

// Event names emitted by the controller.
const (
	EventState          = "canvas:state"
	EventSelection      = "canvas:selection"
	EventElements       = "canvas:elements"
	EventView           = "canvas:view"
	EventSaveStatus     = "section:save-status"
	EventSectionOpened  = "section:opened"
	EventSectionFailed  = "section:load-failed"
	EventSectionsEmpty  = "sections:empty"
	EventSectionsChange = "sections:changed"
)

// EventEmitter delivers controller notifications to whatever shell hosts the
// canvas. Emit may be called from the saver goroutine.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, string, any) {}

// MockEmitter records every emission for test assertions.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
	m.mu.Unlock()
}

// Named returns the recorded payloads of one event, oldest first.
func (m *MockEmitter) Named(event string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}

// Payloads carried by the events above.
type (
	StateEvent struct {
		State    State
		Selected string
	}
	ViewEvent struct {
		Zoom     float64
		ShowGrid bool
	}
	ElementsEvent struct {
		SectionID string
		Count     int
		Dirty     bool
	}
	SaveEvent struct {
		SectionID string
		Status    string
		Err       string
	}
	SectionEvent struct {
		SectionID string
		Title     string
		Err       string
	}
)

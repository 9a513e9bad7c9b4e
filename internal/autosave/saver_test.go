/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/storage"
)

func elementsAt(t *testing.T, xs ...float64) []domain.Element {
	t.Helper()
	out := make([]domain.Element, 0, len(xs))
	for i, x := range xs {
		el, err := domain.NewElement("e"+string(rune('a'+i)), domain.TypeShape, domain.Position{X: x}, i)
		require.NoError(t, err)
		out = append(out, el)
	}
	return out
}

func newStore() *storage.MemoryStore {
	return storage.NewMemoryStore(domain.Section{ID: "s1", ProposalID: "p1", Title: "Intro"})
}

func waitersOf(s *Saver, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.sections[id]; ok {
		return len(sl.waiters)
	}
	return 0
}

func TestSaveCoalescesWhileInFlight(t *testing.T) {
	store := newStore()
	gate := make(chan struct{})
	started := make(chan struct{}, 8)
	store.OnSave(func(string) {
		started <- struct{}{}
		<-gate
	})
	m := NewMetrics(nil)
	s := New(store, WithMetrics(m))
	ctx := context.Background()

	errs := make(chan error, 3)
	go func() { errs <- s.Save(ctx, "s1", Snapshot{Elements: elementsAt(t, 1)}) }()
	<-started
	require.True(t, s.Busy("s1"))
	assert.Equal(t, InFlight, s.State("s1").Status)

	go func() { errs <- s.Save(ctx, "s1", Snapshot{Elements: elementsAt(t, 2)}) }()
	require.Eventually(t, func() bool { return waitersOf(s, "s1") == 1 }, time.Second, time.Millisecond)
	go func() { errs <- s.Save(ctx, "s1", Snapshot{Elements: elementsAt(t, 3, 4)}) }()
	require.Eventually(t, func() bool { return waitersOf(s, "s1") == 2 }, time.Second, time.Millisecond)

	close(gate)
	for i := 0; i < 3; i++ {
		require.NoError(t, <-errs)
	}
	require.NoError(t, s.Wait(ctx))

	// The first save plus one for the two coalesced requests.
	assert.Equal(t, 2, store.Saves())
	sec, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sec.Elements, 2)
	assert.Equal(t, 3.0, sec.Elements[0].Position.X)
	assert.Equal(t, Succeeded, s.State("s1").Status)
	assert.False(t, s.Busy("s1"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Coalesced))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Saves.WithLabelValues("success")))
}

func TestFailedSaveReportsAndRetrySucceeds(t *testing.T) {
	store := newStore()
	boom := errors.New("connection reset")
	store.FailSaves(boom)
	m := NewMetrics(nil)
	s := New(store, WithMetrics(m))

	var mu sync.Mutex
	var seen []Status
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st.Status)
		mu.Unlock()
	})
	defer unsubscribe()

	snap := Snapshot{Elements: elementsAt(t, 10)}
	err := s.Save(context.Background(), "s1", snap)
	require.ErrorIs(t, err, boom)
	st := s.State("s1")
	assert.Equal(t, Failed, st.Status)
	assert.ErrorIs(t, st.Err, boom)
	// the caller's list is untouched
	assert.Equal(t, 10.0, snap.Elements[0].Position.X)

	require.NoError(t, s.Save(context.Background(), "s1", snap))
	assert.Equal(t, Succeeded, s.State("s1").Status)

	mu.Lock()
	assert.Equal(t, []Status{InFlight, Failed, InFlight, Succeeded}, seen)
	mu.Unlock()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Saves.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Saves.WithLabelValues("success")))
}

func TestSaveUpdatesTitle(t *testing.T) {
	store := newStore()
	s := New(store)
	title := "Executive Summary"
	require.NoError(t, s.Save(context.Background(), "s1", Snapshot{Elements: elementsAt(t, 1), Title: &title}))
	sec, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, title, sec.Title)
}

func TestSaveSnapshotIsCopied(t *testing.T) {
	store := newStore()
	gate := make(chan struct{})
	store.OnSave(func(string) { <-gate })
	s := New(store)

	els := elementsAt(t, 5)
	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background(), "s1", Snapshot{Elements: els}) }()
	require.Eventually(t, func() bool { return s.Busy("s1") }, time.Second, time.Millisecond)
	els[0].Position.X = 500
	close(gate)
	require.NoError(t, <-done)

	sec, _ := store.Load(context.Background(), "s1")
	assert.Equal(t, 5.0, sec.Elements[0].Position.X)
}

func TestSaveWaitRespectsContext(t *testing.T) {
	store := newStore()
	gate := make(chan struct{})
	store.OnSave(func(string) { <-gate })
	s := New(store)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Save(ctx, "s1", Snapshot{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(gate)
	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, Succeeded, s.State("s1").Status)
}

func TestMissingSectionFails(t *testing.T) {
	s := New(newStore())
	err := s.Save(context.Background(), "nope", Snapshot{})
	require.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, Idle, s.State("other").Status)
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.observe(0.01, nil)
	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["proposalcanvas_saves_total"])
	assert.True(t, names["proposalcanvas_save_duration_seconds"])
}

func TestSchedulerDisabled(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(0, func(context.Context) error { calls.Add(1); return nil })
	assert.False(t, s.Enabled())
	require.NoError(t, s.Start())
	s.Stop(context.Background())
	assert.Zero(t, calls.Load())
}

func TestSchedulerTicks(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(time.Second, func(context.Context) error {
		calls.Add(1)
		return errors.New("offline")
	})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

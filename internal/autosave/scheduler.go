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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	applog "proposalcanvas/internal/log"
)

// FlushFunc saves whatever is dirty. It is called on every tick.
type FlushFunc func(ctx context.Context) error

// Scheduler triggers periodic auto-save ticks. An interval of zero disables it.
// Ticks never overlap: a tick that fires while the previous flush still runs
// is skipped.
type Scheduler struct {
	interval time.Duration
	flush    FlushFunc

	mu   sync.Mutex
	cron *cron.Cron
}

func NewScheduler(interval time.Duration, flush FlushFunc) *Scheduler {
	return &Scheduler{interval: interval, flush: flush}
}

func (s *Scheduler) Enabled() bool { return s.interval > 0 && s.flush != nil }

// Start begins ticking. Calling Start on a disabled or running scheduler does nothing.
func (s *Scheduler) Start() error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		return fmt.Errorf("schedule auto-save: %w", err)
	}
	c.Start()
	s.cron = c
	applog.WithComponent("autosave").Info("auto-save scheduled", slog.Duration("interval", s.interval))
	return nil
}

// Stop halts ticking and waits for a running flush, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) tick() {
	timeout := s.interval
	if timeout < DefaultTimeout {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.flush(ctx); err != nil {
		applog.WithOperation(applog.WithComponent("autosave"), "tick").Warn("auto-save failed", slog.Any("err", err))
	}
}

// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batch

import (
	"sync"
	"time"
)

// 🎯 EventType identifies a tracker event
type EventType int

const (
	EventStarted EventType = iota
	EventCompleted
	EventSnapshot
)

// 📸 Snapshot is a point-in-time view of batch progress
type Snapshot struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	Skipped   int

	CompletionRate float64 // processed / total
	SuccessRate    float64 // succeeded / processed
	Elapsed        time.Duration
}

// 📣 Event is emitted for every start, completion and periodic snapshot
type Event struct {
	Type     EventType
	Path     string   // empty for snapshots
	Index    int      // 1-based position of the file in the batch
	Outcome  *Outcome // completions only
	Snapshot Snapshot // counters at the time of the event
}

// 👂 Listener receives tracker events in order
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// ⏱️ Tracker counts progress through a batch. It only observes; nothing it
// does affects the run.
type Tracker struct {
	total    int
	interval int
	listener Listener
	now      func() time.Time

	mu           sync.Mutex
	start        time.Time
	index        int
	processed    int
	succeeded    int
	failed       int
	skipped      int
	lastSnapshot int
}

// 🏭 NewTracker creates a tracker for total files. A snapshot is emitted every
// interval completions (interval <= 0 means only at the end).
func NewTracker(total, interval int, listener Listener) *Tracker {
	return &Tracker{
		total:        total,
		interval:     interval,
		listener:     listener,
		now:          time.Now,
		lastSnapshot: -1,
	}
}

// ▶️ Start records that path began processing
func (t *Tracker) Start(path string) {
	t.mu.Lock()
	if t.start.IsZero() {
		t.start = t.now()
	}
	t.index++
	ev := Event{Type: EventStarted, Path: path, Index: t.index, Snapshot: t.snapshotLocked()}
	t.mu.Unlock()

	t.emit(ev)
}

// ✅ Complete records the outcome of path
func (t *Tracker) Complete(path string, outcome Outcome) {
	t.mu.Lock()
	t.processed++
	switch outcome.Status {
	case StatusSucceeded:
		t.succeeded++
	case StatusFailed:
		t.failed++
	case StatusSkipped:
		t.skipped++
	}
	snap := t.snapshotLocked()
	events := []Event{{Type: EventCompleted, Path: path, Index: t.index, Outcome: &outcome, Snapshot: snap}}
	if t.interval > 0 && t.processed%t.interval == 0 {
		t.lastSnapshot = t.processed
		events = append(events, Event{Type: EventSnapshot, Snapshot: snap})
	}
	t.mu.Unlock()

	for _, ev := range events {
		t.emit(ev)
	}
}

// 🏁 Finish emits the final snapshot, unless one was just emitted for the same count.
func (t *Tracker) Finish() Snapshot {
	t.mu.Lock()
	snap := t.snapshotLocked()
	emit := t.lastSnapshot != t.processed
	t.lastSnapshot = t.processed
	t.mu.Unlock()

	if emit {
		t.emit(Event{Type: EventSnapshot, Snapshot: snap})
	}
	return snap
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := Snapshot{
		Total:     t.total,
		Processed: t.processed,
		Succeeded: t.succeeded,
		Failed:    t.failed,
		Skipped:   t.skipped,
	}
	if t.total > 0 {
		s.CompletionRate = float64(t.processed) / float64(t.total)
	}
	if t.processed > 0 {
		s.SuccessRate = float64(t.succeeded) / float64(t.processed)
	}
	if !t.start.IsZero() {
		s.Elapsed = t.now().Sub(t.start)
	}
	return s
}

func (t *Tracker) emit(ev Event) {
	if t.listener != nil {
		t.listener.OnEvent(ev)
	}
}

package ui

import (
	"sync"
	"time"

	"github.com/runready/runready/internal/readiness"
)

// maxEvents caps the watch event log; older entries are dropped.
const maxEvents = 50

// State tracks live watch results shared between the watcher goroutine
// and the renderers. It is safe for concurrent use.
type State struct {
	mu         sync.RWMutex
	report     *readiness.Report
	runs       int
	lastTook   time.Duration
	lastRun    time.Time
	rescanning bool
	events     []Event
	memory     *Sparkline
}

// StateSnapshot is a point-in-time copy for rendering.
type StateSnapshot struct {
	Report     *readiness.Report
	Runs       int
	LastTook   time.Duration
	LastRun    time.Time
	Rescanning bool
	Events     []Event
	MemoryGB   float64
}

// NewState creates an empty watch state.
func NewState() *State {
	return &State{
		memory: NewSparkline(60), // one minute at 1 sample/sec
	}
}

// SetReport records a completed analysis run and logs it.
func (s *State) SetReport(report *readiness.Report, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.report = report
	s.runs++
	s.lastTook = took
	s.lastRun = time.Now()
	s.rescanning = false

	verdict := "ready"
	if !report.Verdict.Ready {
		verdict = "not ready"
	}
	s.appendEvent(Event{Time: s.lastRun, Kind: EventReport, Message: verdict})

	if report.Snapshot != nil {
		s.memory.Add(report.Snapshot.Memory.AvailableGB)
	}
}

// AddEvent appends a watch event to the log. A rescan event flips the
// rescanning flag until the next report lands.
func (s *State) AddEvent(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Kind == EventRescan {
		s.rescanning = true
	}
	s.appendEvent(event)
}

// appendEvent must be called with the lock held.
func (s *State) appendEvent(event Event) {
	s.events = append(s.events, event)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// AddMemorySample feeds one available-memory reading into the trend.
func (s *State) AddMemorySample(availableGB float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory.Add(availableGB)
}

// Snapshot returns a copy of the current state for rendering.
func (s *State) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]Event, len(s.events))
	copy(events, s.events)

	return StateSnapshot{
		Report:     s.report,
		Runs:       s.runs,
		LastTook:   s.lastTook,
		LastRun:    s.lastRun,
		Rescanning: s.rescanning,
		Events:     events,
		MemoryGB:   s.memory.Last(),
	}
}

// RenderSparkline returns the memory trend visualization string.
func (s *State) RenderSparkline() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.memory.Render()
}

// Package audit implements the append-only Audit Log (component J) shared
// by every other component. Events are never mutated or deleted; readers
// see a consistent prefix ordered by an internal monotonic sequence
// counter (spec §5 "Audit events are totally ordered by the audit log's
// internal counter").
package audit

import (
	"sync"
	"time"
)

// Event is a single audit record.
type Event struct {
	EventID     uint64
	Seq         uint64
	EventType   string
	Timestamp   time.Time
	AgentID     string
	InstanceID  string
	CampaignID  string
	ProposalID  string
	OperatorID  string
	Details     map[string]any
}

// Recorder is the write surface every other component depends on. Keeping
// it as a narrow interface (rather than a concrete *Log everywhere) lets
// tests substitute NewNoopRecorder without wiring a full log.
type Recorder interface {
	Record(e Event)
}

// Filter selects a subset of events for Query.
type Filter struct {
	AgentID    string
	InstanceID string
	CampaignID string
	EventType  string
	Since      time.Time
	Until      time.Time
}

// Log is the concrete append-only, single-writer/many-readers audit log.
// Safe for concurrent use.
type Log struct {
	mu     sync.RWMutex
	events []Event
	seq    uint64
	clock  func() time.Time
}

// NewLog builds an empty audit log.
func NewLog() *Log {
	return &Log{clock: time.Now}
}

// WithClock overrides the log's time source (tests).
func (l *Log) WithClock(clock func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
}

// Record appends an event, assigning it the next sequence number and a
// timestamp if the caller left Timestamp zero. Record never returns an
// error and never mutates or removes a prior event — the only mutation
// path in this package.
func (l *Log) Record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	e.Seq = l.seq
	e.EventID = l.seq
	if e.Timestamp.IsZero() {
		e.Timestamp = l.clock()
	}
	l.events = append(l.events, e)
}

// Query returns every event matching Filter, in sequence order. A zero
// Filter field means "match any value" for that dimension.
func (l *Log) Query(f Filter) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.events {
		if f.AgentID != "" && e.AgentID != f.AgentID {
			continue
		}
		if f.InstanceID != "" && e.InstanceID != f.InstanceID {
			continue
		}
		if f.CampaignID != "" && e.CampaignID != f.CampaignID {
			continue
		}
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the total number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// noopRecorder discards every event; used as a safe default when a caller
// does not wire an audit log explicitly (e.g. unit tests of a single
// component in isolation).
type noopRecorder struct{}

// NewNoopRecorder returns a Recorder that discards every event.
func NewNoopRecorder() Recorder { return noopRecorder{} }

func (noopRecorder) Record(Event) {}

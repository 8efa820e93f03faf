// Package events keeps the append-only record of state transitions.
//
// The log is the sole read interface offered to the dashboard and any
// indexer: external observers never reach into component storage.
package events

import (
	"sync"
	"time"
)

// Type names a state transition.
type Type string

const (
	TypeProviderAdded         Type = "provider_added"
	TypeProviderRemoved       Type = "provider_removed"
	TypePaused                Type = "paused"
	TypeUnpaused              Type = "unpaused"
	TypeCooldownSet           Type = "cooldown_set"
	TypeBatchOpened           Type = "batch_opened"
	TypeBatchClosed           Type = "batch_closed"
	TypeContributionSubmitted Type = "contribution_submitted"
	TypeDecryptionRequested   Type = "decryption_requested"
	TypeDecryptionCompleted   Type = "decryption_completed"
)

// Event is one appended record. Only the fields named by the transition are
// set; the rest stay zero.
type Event struct {
	Seq  uint64    `json:"seq"`
	Type Type      `json:"type"`
	At   time.Time `json:"at"`

	Actor           string  `json:"actor,omitempty"`
	BatchID         *uint64 `json:"batch_id,omitempty"`
	ContributionID  string  `json:"contribution_id,omitempty"`
	RequestID       string  `json:"request_id,omitempty"`
	Result          *uint64 `json:"result,omitempty"`
	CooldownSeconds int64   `json:"cooldown_seconds,omitempty"`
}

// subscriberBuffer bounds each subscription channel; a subscriber that falls
// this far behind starts losing events rather than blocking the ledger.
const subscriberBuffer = 256

// Log is the append-only event record with channel fan-out.
type Log struct {
	mu      sync.RWMutex
	entries []Event
	nextSeq uint64
	subs    []chan Event
	closed  bool
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{}
}

// Append stamps the event with the next sequence number and records it.
// Delivery to subscribers is best-effort and never blocks.
func (l *Log) Append(e Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Seq = l.nextSeq
	l.nextSeq++
	l.entries = append(l.entries, e)
	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return e
}

// List returns up to limit events with Seq >= from, oldest first.
func (l *Log) List(from uint64, limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, 0, limit)
	for _, e := range l.entries {
		if len(out) >= limit {
			break
		}
		if e.Seq >= from {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe returns a channel receiving every event appended after the call.
// The channel is closed when the log is closed.
func (l *Log) Subscribe() <-chan Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if l.closed {
		close(ch)
		return ch
	}
	l.subs = append(l.subs, ch)
	return ch
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// CountByType returns how many recorded events carry the given type.
func (l *Log) CountByType(t Type) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Close closes every subscription channel. Appending after Close still
// records but no longer fans out.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for _, ch := range l.subs {
		close(ch)
	}
	l.subs = nil
}

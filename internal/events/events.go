// Package events implements the process-wide event log: a thread-safe,
// append-only queue of typed events with synchronous observer fan-out.
// All cross-goroutine signaling (voice capture state, typed input, action
// results) flows through a single injected *Log.
package events

import (
	"sync"
	"time"

	ierr "github.com/cozmogo/cozmogo/internal/errors"
	"github.com/cozmogo/cozmogo/internal/logger"
)

// Kind identifies what produced an event.
type Kind int

const (
	UserMessage Kind = iota
	ApiCall
	ApiResult
	SystemMessage
	ListeningStarted
	ListeningFinished
)

// String returns the string representation of an event kind.
func (k Kind) String() string {
	switch k {
	case UserMessage:
		return "user_message"
	case ApiCall:
		return "api_call"
	case ApiResult:
		return "api_result"
	case SystemMessage:
		return "system_message"
	case ListeningStarted:
		return "listening_started"
	case ListeningFinished:
		return "listening_finished"
	default:
		return "unknown"
	}
}

// Event is one immutable entry in the log.
type Event struct {
	Kind Kind
	Text string
	At   time.Time
}

// Observer is invoked synchronously on the appending goroutine for every
// event. Observers must be fast and non-blocking; long-running work belongs
// on the consumer side of DrainAll.
type Observer func(Event)

// Log is the append-only event queue. The zero value is not usable; create
// one with NewLog and inject it into every component that needs it.
type Log struct {
	mu        sync.Mutex
	pending   []Event
	observers []Observer
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{}
}

// Append enqueues an event and notifies every registered observer.
// Observer panics are caught and logged; they never corrupt the queue or
// stop later observers from running.
func (l *Log) Append(kind Kind, text string) {
	ev := Event{Kind: kind, Text: text, At: time.Now()}

	l.mu.Lock()
	l.pending = append(l.pending, ev)
	obs := make([]Observer, len(l.observers))
	copy(obs, l.observers)
	l.mu.Unlock()

	// Observers run outside the lock so one that appends does not deadlock.
	for _, fn := range obs {
		fn := fn
		if err := ierr.Recover(func() error { fn(ev); return nil }); err != nil {
			logger.Warn("event observer failed on %s event: %v", ev.Kind, err)
		}
	}
}

// DrainAll atomically removes and returns all pending events in append
// order. Events appended concurrently with a drain land in the next drain,
// never lost and never duplicated.
func (l *Log) DrainAll() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	drained := l.pending
	l.pending = nil
	return drained
}

// Pending reports how many events are queued without removing them.
func (l *Log) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// RegisterObserver adds a callback invoked on every future append. There is
// no unregister: observers live as long as the log does.
func (l *Log) RegisterObserver(fn Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

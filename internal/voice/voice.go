// Package voice is the boundary to speech capture. The program never
// talks to a microphone directly: a Source is triggered, emits
// ListeningStarted, and later appends the transcription as a UserMessage
// followed by ListeningFinished. The Monitor lets the loop wait for that
// sequence to settle before assembling context, so a turn never races an
// in-flight capture.
package voice

import (
	"context"
	"sync"

	"github.com/cozmogo/cozmogo/internal/events"
)

// Source captures one utterance when triggered. Listen must not block;
// the transcription arrives later through the event log.
type Source interface {
	Listen()
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func()

func (f SourceFunc) Listen() { f() }

// Monitor tracks capture state from the listening markers in the event
// log.
type Monitor struct {
	mu        sync.Mutex
	listening bool
	settled   chan struct{}
}

// NewMonitor creates a monitor and registers it on the log.
func NewMonitor(log *events.Log) *Monitor {
	m := &Monitor{settled: closedChan()}
	log.RegisterObserver(func(ev events.Event) {
		switch ev.Kind {
		case events.ListeningStarted:
			m.set(true)
		case events.ListeningFinished:
			m.set(false)
		}
	})
	return m
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (m *Monitor) set(listening bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listening == listening {
		return
	}
	m.listening = listening
	if listening {
		m.settled = make(chan struct{})
	} else {
		close(m.settled)
	}
}

// Listening reports whether a capture is in flight.
func (m *Monitor) Listening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listening
}

// WaitSettled blocks until no capture is in flight or the context ends.
// A capture that starts after the check passes is the next turn's
// problem; the caller drains the log right after this returns.
func (m *Monitor) WaitSettled(ctx context.Context) error {
	for {
		m.mu.Lock()
		ch := m.settled
		m.mu.Unlock()

		select {
		case <-ch:
			if !m.Listening() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

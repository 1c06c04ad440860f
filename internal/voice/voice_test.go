package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozmogo/cozmogo/internal/events"
)

func TestMonitorStartsSettled(t *testing.T) {
	log := events.NewLog()
	m := NewMonitor(log)

	assert.False(t, m.Listening())
	require.NoError(t, m.WaitSettled(context.Background()))
}

func TestMonitorTracksListeningMarkers(t *testing.T) {
	log := events.NewLog()
	m := NewMonitor(log)

	log.Append(events.ListeningStarted, "")
	assert.True(t, m.Listening())

	log.Append(events.ListeningFinished, "")
	assert.False(t, m.Listening())
	require.NoError(t, m.WaitSettled(context.Background()))
}

func TestWaitSettledBlocksDuringCapture(t *testing.T) {
	log := events.NewLog()
	m := NewMonitor(log)

	log.Append(events.ListeningStarted, "")

	var wg sync.WaitGroup
	wg.Add(1)
	settled := make(chan struct{})
	go func() {
		defer wg.Done()
		require.NoError(t, m.WaitSettled(context.Background()))
		close(settled)
	}()

	select {
	case <-settled:
		t.Fatal("WaitSettled returned while still listening")
	case <-time.After(50 * time.Millisecond):
	}

	log.Append(events.UserMessage, "hello")
	log.Append(events.ListeningFinished, "")

	select {
	case <-settled:
	case <-time.After(time.Second):
		t.Fatal("WaitSettled did not return after ListeningFinished")
	}
	wg.Wait()
}

func TestWaitSettledContextCancel(t *testing.T) {
	log := events.NewLog()
	m := NewMonitor(log)
	log.Append(events.ListeningStarted, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.WaitSettled(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDuplicateMarkersAreIdempotent(t *testing.T) {
	log := events.NewLog()
	m := NewMonitor(log)

	log.Append(events.ListeningFinished, "")
	assert.False(t, m.Listening())

	log.Append(events.ListeningStarted, "")
	log.Append(events.ListeningStarted, "")
	assert.True(t, m.Listening())

	log.Append(events.ListeningFinished, "")
	require.NoError(t, m.WaitSettled(context.Background()))
}

func TestSourceFunc(t *testing.T) {
	called := false
	var s Source = SourceFunc(func() { called = true })
	s.Listen()
	assert.True(t, called)
}

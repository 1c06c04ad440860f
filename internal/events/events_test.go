package events

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendDrainOrder(t *testing.T) {
	log := NewLog()
	log.Append(UserMessage, "first")
	log.Append(SystemMessage, "second")
	log.Append(ApiResult, "third")

	drained := log.DrainAll()
	require.Len(t, drained, 3)
	assert.Equal(t, "first", drained[0].Text)
	assert.Equal(t, "second", drained[1].Text)
	assert.Equal(t, "third", drained[2].Text)

	assert.Empty(t, log.DrainAll(), "second drain should be empty")
}

func TestAppendAfterDrainStartsFreshQueue(t *testing.T) {
	log := NewLog()
	log.Append(UserMessage, "old")
	_ = log.DrainAll()

	log.Append(UserMessage, "new")
	drained := log.DrainAll()
	require.Len(t, drained, 1)
	assert.Equal(t, "new", drained[0].Text)
}

// No event is lost or duplicated when appends and drains race from many
// goroutines, and per-producer order is preserved within each drain.
func TestConcurrentAppendDrain(t *testing.T) {
	const producers = 8
	const perProducer = 200

	log := NewLog()

	var drainMu sync.Mutex
	var drains [][]Event

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			batch := log.DrainAll()
			if len(batch) > 0 {
				drainMu.Lock()
				drains = append(drains, batch)
				drainMu.Unlock()
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				log.Append(UserMessage, fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	// Stop the drainer, then take whatever is left.
	done <- struct{}{}
	<-done
	if final := log.DrainAll(); len(final) > 0 {
		drains = append(drains, final)
	}

	seen := make(map[string]int)
	lastPerProducer := make(map[int]int)
	for _, batch := range drains {
		perProducerInBatch := make(map[int]int, producers)
		for _, ev := range batch {
			seen[ev.Text]++

			var p, i int
			_, err := fmt.Sscanf(ev.Text, "p%d-%d", &p, &i)
			require.NoError(t, err)

			// Within one drain a producer's events stay in append order.
			if prev, ok := perProducerInBatch[p]; ok {
				assert.Greater(t, i, prev, "order violated for producer %d in one drain", p)
			}
			perProducerInBatch[p] = i
			lastPerProducer[p] = i
		}
	}

	require.Len(t, seen, producers*perProducer, "event loss or duplication")
	for text, count := range seen {
		require.Equal(t, 1, count, "event %s drained %d times", text, count)
	}
}

func TestObserversSeeEveryAppend(t *testing.T) {
	log := NewLog()

	var got []Event
	log.RegisterObserver(func(ev Event) {
		got = append(got, ev)
	})

	log.Append(ListeningStarted, "Listening...")
	log.Append(ListeningFinished, "Stopped listening")

	require.Len(t, got, 2)
	assert.Equal(t, ListeningStarted, got[0].Kind)
	assert.Equal(t, ListeningFinished, got[1].Kind)

	// Observed events are still pending for the next drain.
	assert.Equal(t, 2, log.Pending())
}

func TestObserverPanicDoesNotStopOthers(t *testing.T) {
	log := NewLog()

	log.RegisterObserver(func(Event) { panic("observer bug") })

	var calls int
	log.RegisterObserver(func(Event) { calls++ })

	log.Append(SystemMessage, "battery low")

	assert.Equal(t, 1, calls, "second observer should still run")
	assert.Equal(t, 1, log.Pending(), "queue intact after observer panic")
}

func TestObserverMayAppend(t *testing.T) {
	log := NewLog()

	log.RegisterObserver(func(ev Event) {
		if ev.Kind == UserMessage {
			log.Append(SystemMessage, "echo")
		}
	})

	log.Append(UserMessage, "hello")

	drained := log.DrainAll()
	require.Len(t, drained, 2)
	assert.Equal(t, "hello", drained[0].Text)
	assert.Equal(t, "echo", drained[1].Text)
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{UserMessage, "user_message"},
		{ApiCall, "api_call"},
		{ApiResult, "api_result"},
		{SystemMessage, "system_message"},
		{ListeningStarted, "listening_started"},
		{ListeningFinished, "listening_finished"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/cozmogo/cozmogo/internal/natsutil"
	"github.com/cozmogo/cozmogo/internal/transcript"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamStore persists entries to the embedded event stream, one
// message per entry on the session's transcript subject.
type JetStreamStore struct {
	js      jetstream.JetStream
	stream  jetstream.Stream
	session string
}

// NewJetStreamStore creates a store for the given session name.
func NewJetStreamStore(js jetstream.JetStream, stream jetstream.Stream, session string) *JetStreamStore {
	return &JetStreamStore{js: js, stream: stream, session: session}
}

// Append publishes one entry to the session's transcript subject.
func (s *JetStreamStore) Append(ctx context.Context, e transcript.Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	data, err := json.Marshal(toRecord(uuid.NewString(), e))
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	if _, err := s.js.Publish(ctx, natsutil.SubjectForSession(s.session), data); err != nil {
		return fmt.Errorf("publish history record: %w", err)
	}
	return nil
}

// ReadAll replays the session's transcript subject from the beginning.
// Malformed messages are acknowledged and skipped so one bad record never
// wedges the replay.
func (s *JetStreamStore) ReadAll(ctx context.Context) ([]transcript.Entry, error) {
	consumer, err := s.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: natsutil.SubjectForSession(s.session),
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create replay consumer: %w", err)
	}

	const batchSize = 1000
	var entries []transcript.Entry
	for {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}

		count := 0
		for msg := range msgs.Messages() {
			count++
			var rec Record
			if err := json.Unmarshal(msg.Data(), &rec); err != nil {
				logger.Warn("skipping malformed history record: %v", err)
				msg.Ack()
				continue
			}
			entries = append(entries, toEntry(rec))
			msg.Ack()
		}

		if count < batchSize {
			break
		}
	}
	return entries, nil
}

// Truncate purges the session's transcript subject from the stream.
func (s *JetStreamStore) Truncate(ctx context.Context) error {
	return s.stream.Purge(ctx, jetstream.WithPurgeSubject(natsutil.SubjectForSession(s.session)))
}

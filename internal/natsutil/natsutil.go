// Package natsutil manages the embedded NATS server that backs transcript
// persistence. The server runs in-process with no network listener; the
// rest of the program talks to it through an in-process connection and a
// JetStream context.
package natsutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const streamName = "cozmogo_transcript"

// SubjectForSession returns the transcript subject for one session.
func SubjectForSession(session string) string {
	return fmt.Sprintf("cozmogo.%s.transcript", session)
}

// StartEmbedded starts an embedded NATS server with JetStream enabled,
// storing stream data under dataDir. DontListen keeps it off the network.
func StartEmbedded(dataDir string) (*server.Server, error) {
	logger.Debug("starting embedded NATS server, data dir: %s", dataDir)

	ns, err := server.NewServer(&server.Options{
		JetStream:  true,
		StoreDir:   dataDir,
		DontListen: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		return nil, errors.New("nats server failed to start within timeout")
	}

	logger.Debug("NATS server ready")
	return ns, nil
}

// Connect opens an in-process connection to the embedded server and
// returns it with a JetStream context.
func Connect(ns *server.Server) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		return nil, nil, fmt.Errorf("connect in-process: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

// SetupStream creates or updates the transcript stream. Sessions are long
// conversations, not hot paths, so retention is generous.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"cozmogo.>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   90 * 24 * time.Hour,
	})
}

// Shutdown drains the connection and stops the server, each under its own
// timeout so teardown never hangs the process.
func Shutdown(nc *nats.Conn, ns *server.Server) error {
	if nc != nil {
		drained := make(chan error, 1)
		go func() { drained <- nc.Drain() }()

		select {
		case err := <-drained:
			if err != nil {
				logger.Warn("NATS drain failed, forcing close: %v", err)
				nc.Close()
			}
		case <-time.After(2 * time.Second):
			logger.Warn("NATS drain timed out, forcing close")
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()

		done := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(done)
		}()

		select {
		case <-done:
			logger.Debug("NATS server shut down cleanly")
		case <-time.After(5 * time.Second):
			return errors.New("nats server shutdown timed out")
		}
	}
	return nil
}

// Package memory persists conversation history across sessions. Two
// implementations share one interface: a plain JSON-lines file for simple
// setups, and a JetStream-backed store that appends each entry to the
// embedded event stream. Both satisfy transcript.Sink, so the live
// transcript never knows which one it writes through.
package memory

import (
	"context"
	"time"

	"github.com/cozmogo/cozmogo/internal/transcript"
)

// Record is the persisted form of one transcript entry.
type Record struct {
	ID   string    `json:"id"`
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Store persists transcript entries. Append must keep entries in arrival
// order; ReadAll returns them in that order.
type Store interface {
	Append(ctx context.Context, e transcript.Entry) error
	ReadAll(ctx context.Context) ([]transcript.Entry, error)
	Truncate(ctx context.Context) error
}

func toRecord(id string, e transcript.Entry) Record {
	return Record{ID: id, Role: e.Role.String(), Text: e.Text, At: e.At}
}

func toEntry(r Record) transcript.Entry {
	return transcript.Entry{Role: parseRole(r.Role), Text: r.Text, At: r.At}
}

func parseRole(s string) transcript.Role {
	switch s {
	case "user":
		return transcript.RoleUser
	case "assistant":
		return transcript.RoleAssistant
	default:
		return transcript.RoleSystem
	}
}

// RenderHistory joins stored entries into the recap block prepended to a
// new session's context.
func RenderHistory(entries []transcript.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	out := ""
	for _, e := range entries {
		out += e.Text + "\n"
	}
	return out
}

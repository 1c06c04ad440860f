// Package completer abstracts the model backend that turns assembled
// context into the next robot reply. One implementation talks to the
// Anthropic Messages API; tests substitute scripted fakes. The loop only
// ever sees the Completer interface.
package completer

import (
	"context"
	"errors"

	"github.com/cozmogo/cozmogo/internal/schema"
)

// ErrBlocked reports that the backend refused to complete the request.
// It is permanent for the offending context: retrying the same request
// cannot succeed, so the loop surfaces it instead of retrying.
var ErrBlocked = errors.New("completion blocked by the model backend")

// ToolCall is one structured action request from a backend with native
// tool-calling.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Reply is the model's output for one turn. Backends without native
// tool-calling leave ToolCalls empty and put the call lines in Text.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Request carries everything the backend needs for one completion.
type Request struct {
	// System is the instruction preamble, including the function catalog.
	System string
	// Context is the rendered conversation history plus the current turn's
	// events.
	Context string
	// Image is an optional camera frame captured during the previous
	// dispatch batch.
	Image []byte
	// Tools carries structured declarations for backends that support
	// native tool-calling. Backends that do not simply ignore it.
	Tools []schema.ToolDecl
}

// Completer produces the next reply for an assembled request. Transient
// failures are reported as *errors.TransientError so the caller can
// retry; ErrBlocked and malformed-request errors are permanent.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
}

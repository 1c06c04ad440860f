// Package transcript folds drained events into the rendered conversation
// history: one line per entry, in the exact form the model sees it on the
// next turn. Rendering is the single place where event kinds become prose,
// so the live session, the persisted history, and the web console always
// agree.
package transcript

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cozmogo/cozmogo/internal/dispatch"
	"github.com/cozmogo/cozmogo/internal/events"
	"github.com/cozmogo/cozmogo/internal/logger"
)

// StopKeyword ends the session when a user message equals it after
// trimming and lowercasing. Substring matches do not count.
const StopKeyword = "bye"

// ApiLabel prefixes dispatched call lines in the rendered history. The
// parser tolerates the same label in model replies.
const ApiLabel = "API calls"

// Role identifies who produced a transcript entry.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
	RoleSystem
)

// String returns the string representation of a role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	case RoleSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Entry is one rendered line of conversation history.
type Entry struct {
	Role Role
	Text string
	At   time.Time
}

// Sink persists rendered entries as they are appended. The live transcript
// works the same with or without one.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// Voice transcriptions arrive pre-tagged with the recognized speaker,
// either bracketed ("<Alan>: ", "[unrecognized]: ") or a bare short name
// ("Alice: "); those lines pass through unchanged instead of getting the
// generic user prefix.
var speakerTag = regexp.MustCompile(`^(<[^>]+>|\[[^\]]+\]|[^\s:]{1,24}): `)

// ShouldStop reports whether a raw user message is the session-ending
// keyword. Matching is exact on the trimmed, lowercased text.
func ShouldStop(text string) bool {
	return strings.ToLower(strings.TrimSpace(text)) == StopKeyword
}

// Fold renders a drained event batch into transcript entries and reports
// whether the batch asked to end the session. Duplicate system messages
// within the batch collapse to one entry; listening markers fold into a
// single closing line.
func Fold(evs []events.Event) (entries []Entry, stop bool) {
	seenSystem := make(map[string]bool)

	for _, ev := range evs {
		switch ev.Kind {
		case events.UserMessage:
			if ShouldStop(ev.Text) {
				stop = true
			}
			entries = append(entries, Entry{Role: RoleUser, Text: renderUser(ev.Text), At: ev.At})

		case events.ApiCall:
			entries = append(entries, Entry{Role: RoleAssistant, Text: ApiLabel + ": " + ev.Text, At: ev.At})

		case events.ApiResult:
			entries = append(entries, Entry{Role: RoleSystem, Text: ev.Text, At: ev.At})

		case events.SystemMessage:
			if seenSystem[ev.Text] {
				continue
			}
			seenSystem[ev.Text] = true
			entries = append(entries, Entry{
				Role: RoleSystem,
				Text: fmt.Sprintf("System message (%s): %s", ev.At.Format("15:04:05"), ev.Text),
				At:   ev.At,
			})

		case events.ListeningStarted:
			// Not part of the conversation; it only drives the lights.

		case events.ListeningFinished:
			entries = append(entries, Entry{Role: RoleSystem, Text: "Cozmo stopped listening.", At: ev.At})
		}
	}
	return entries, stop
}

func renderUser(text string) string {
	if speakerTag.MatchString(text) && !strings.HasPrefix(text, "User") {
		return text
	}
	return "User says: " + text
}

// RenderOutcomes renders a dispatch batch as an indented result block, one
// call per line.
func RenderOutcomes(outcomes []dispatch.Outcome) string {
	var b strings.Builder
	for _, out := range outcomes {
		fmt.Fprintf(&b, "    %s -> %s\n", dispatch.RenderCall(out.Call), outcomeText(out))
	}
	return b.String()
}

func outcomeText(out dispatch.Outcome) string {
	switch out.Status {
	case dispatch.StatusOK:
		if out.Result == "" {
			return "succeeded"
		}
		return out.Result
	default:
		return "error: " + out.Reason
	}
}

// Transcript is the live, append-only conversation history for one
// session.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
	sink    Sink
}

// New creates a transcript. sink may be nil for an in-memory-only session.
func New(sink Sink) *Transcript {
	return &Transcript{sink: sink}
}

// Append adds entries to the history and forwards each to the sink.
// Persistence failures are logged, not fatal: the live session keeps its
// in-memory history either way.
func (t *Transcript) Append(ctx context.Context, entries ...Entry) {
	t.mu.Lock()
	t.entries = append(t.entries, entries...)
	t.mu.Unlock()

	if t.sink == nil {
		return
	}
	for _, e := range entries {
		if err := t.sink.Append(ctx, e); err != nil {
			logger.Warn("transcript persist failed: %v", err)
		}
	}
}

// Entries returns a copy of the history in order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports how many entries the history holds.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Render joins the history into the conversation block included in the
// model context, one entry per line.
func (t *Transcript) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	for _, e := range t.entries {
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	return b.String()
}

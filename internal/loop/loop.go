// Package loop runs the conversation: wait for events, assemble context,
// complete, dispatch, fold the results back into the transcript, repeat.
// One Loop drives one session; everything it touches is injected so tests
// can run a whole conversation against a scripted backend.
package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cozmogo/cozmogo/internal/actions"
	"github.com/cozmogo/cozmogo/internal/completer"
	"github.com/cozmogo/cozmogo/internal/dispatch"
	ierr "github.com/cozmogo/cozmogo/internal/errors"
	"github.com/cozmogo/cozmogo/internal/events"
	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/cozmogo/cozmogo/internal/memory"
	"github.com/cozmogo/cozmogo/internal/schema"
	"github.com/cozmogo/cozmogo/internal/transcript"
	"github.com/cozmogo/cozmogo/internal/voice"
)

// State is the loop's current phase, readable from other goroutines for
// display.
type State int

const (
	StateIdle State = iota
	StateAwaitingVoice
	StateBuildingContext
	StateCompleting
	StateDispatching
	StateFolding
	StateStopped
)

// String returns the string representation of a loop state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingVoice:
		return "awaiting_voice"
	case StateBuildingContext:
		return "building_context"
	case StateCompleting:
		return "completing"
	case StateDispatching:
		return "dispatching"
	case StateFolding:
		return "folding"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config wires a Loop. Log, Transcript, Completer, Parser, Dispatcher,
// and Catalog are required; the rest have working defaults.
type Config struct {
	Log        *events.Log
	Monitor    *voice.Monitor
	Transcript *transcript.Transcript
	Completer  completer.Completer
	Parser     *actions.Parser
	Dispatcher *dispatch.Dispatcher
	Catalog    *schema.Catalog

	// History, when set, is replayed into the context at session start.
	History memory.Store

	// Persona is the instruction preamble placed before the function
	// catalog in the system prompt.
	Persona string

	// UseTools sends structured tool declarations instead of relying on
	// the text grammar alone.
	UseTools bool

	// RetryAttempts bounds turn-level completion retries on transient
	// errors. RetryBackoff is the fixed delay between attempts.
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Loop is the session driver.
type Loop struct {
	cfg Config

	mu        sync.Mutex
	state     State
	lastImage []byte
	memText   string
	hasUser   bool

	wake chan struct{}
}

// New creates a loop and registers its wake-up observer on the log.
func New(cfg Config) *Loop {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 15 * time.Second
	}

	l := &Loop{cfg: cfg, wake: make(chan struct{}, 1)}
	cfg.Log.RegisterObserver(func(ev events.Event) {
		if ev.Kind == events.UserMessage {
			l.mu.Lock()
			l.hasUser = true
			l.mu.Unlock()
		}
		select {
		case l.wake <- struct{}{}:
		default:
		}
	})
	return l
}

// State returns the loop's current phase.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	logger.Debug("loop state: %s", s)
}

// Run drives the session until the stop keyword, a permanent failure, or
// context cancellation. It blocks; callers wanting a background session
// run it in a goroutine.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateStopped)

	if err := l.preamble(ctx); err != nil {
		return err
	}

	for {
		l.setState(StateIdle)
		if err := l.waitForEvents(ctx); err != nil {
			return err
		}

		l.setState(StateAwaitingVoice)
		if l.cfg.Monitor != nil {
			if err := l.cfg.Monitor.WaitSettled(ctx); err != nil {
				return err
			}
		}

		stop, err := l.turn(ctx)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// preamble seeds the session: prior history loads into the context prefix
// and the current date and time land as the first system message, so the
// model can answer "what day is it" without a clock action.
func (l *Loop) preamble(ctx context.Context) error {
	if l.cfg.History != nil {
		prior, err := l.cfg.History.ReadAll(ctx)
		if err != nil {
			logger.Warn("loading session history failed: %v", err)
		}
		l.mu.Lock()
		l.memText = memory.RenderHistory(prior)
		l.mu.Unlock()
		if len(prior) > 0 {
			logger.Info("loaded %d entries of prior history", len(prior))
		}
	}

	now := time.Now()
	l.cfg.Log.Append(events.SystemMessage,
		fmt.Sprintf("Session started on %s at %s.",
			now.Format("Monday, January 2 2006"), now.Format("15:04")))
	return nil
}

// waitForEvents blocks until user input is pending. System notices and
// listening markers accumulate in the log but do not start a turn on
// their own; they ride along with the next user message.
func (l *Loop) waitForEvents(ctx context.Context) error {
	for !l.userPending() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
	return nil
}

func (l *Loop) userPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasUser
}

// turn runs one full cycle: fold pending events, complete, dispatch. A
// user message that arrives while actions run is folded together with
// the outcomes and answered by a follow-up completion in the same turn
// instead of waiting silently for the next wake.
func (l *Loop) turn(ctx context.Context) (bool, error) {
	l.setState(StateBuildingContext)

	entries, stop := l.drainFold(ctx)
	if stop {
		logger.Info("stop keyword received, ending session")
		return true, nil
	}
	if len(entries) == 0 {
		return false, nil
	}

	for {
		req := l.buildRequest()

		l.setState(StateCompleting)
		reply, err := l.completeWithRetry(ctx, req)
		if err != nil {
			if errors.Is(err, completer.ErrBlocked) {
				l.cfg.Transcript.Append(ctx, transcript.Entry{
					Role: transcript.RoleSystem,
					Text: "The model declined to respond to that.",
					At:   time.Now(),
				})
				return false, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			var terr *ierr.TransientError
			if errors.As(err, &terr) {
				// Out of retries. The turn yields no actions; the session
				// keeps going and the next user message tries again.
				logger.Error("completion failed after %d attempts: %v", l.cfg.RetryAttempts, err)
				l.cfg.Transcript.Append(ctx, transcript.Entry{
					Role: transcript.RoleSystem,
					Text: "The model did not respond this turn.",
					At:   time.Now(),
				})
				return false, nil
			}
			return false, fmt.Errorf("completion failed: %w", err)
		}

		calls, diag := l.parseReply(reply)
		if diag != "" {
			l.cfg.Log.Append(events.SystemMessage, diag)
		}
		if len(calls) == 0 {
			return false, nil
		}

		l.setState(StateDispatching)
		batch := l.cfg.Dispatcher.Execute(ctx, calls)

		l.setState(StateFolding)
		l.mu.Lock()
		l.lastImage = batch.Image
		l.mu.Unlock()
		logger.Debug("dispatched %d calls:\n%s", len(batch.Outcomes), transcript.RenderOutcomes(batch.Outcomes))

		// Results landed in the log as ApiCall/ApiResult events; fold
		// them into the transcript now so the next completion sees them.
		folded, stop := l.drainFold(ctx)
		if stop {
			logger.Info("stop keyword received, ending session")
			return true, nil
		}
		if !hasUserEntry(folded) {
			return false, nil
		}
		// The user spoke while actions ran; complete again before idling.
	}
}

// drainFold drains pending events into the transcript and reports
// whether the batch asked to stop. The pending-user flag resets before
// the drain so a message appended concurrently is never lost between
// the two.
func (l *Loop) drainFold(ctx context.Context) ([]transcript.Entry, bool) {
	l.mu.Lock()
	l.hasUser = false
	l.mu.Unlock()

	entries, stop := transcript.Fold(l.cfg.Log.DrainAll())
	l.cfg.Transcript.Append(ctx, entries...)
	return entries, stop
}

func hasUserEntry(entries []transcript.Entry) bool {
	for _, e := range entries {
		if e.Role == transcript.RoleUser {
			return true
		}
	}
	return false
}

func (l *Loop) buildRequest() completer.Request {
	l.mu.Lock()
	image := l.lastImage
	l.lastImage = nil
	memText := l.memText
	l.mu.Unlock()

	system := l.cfg.Persona
	if system != "" && !strings.HasSuffix(system, "\n") {
		system += "\n"
	}
	system += "\n" + l.cfg.Catalog.PromptText()

	ctxText := ""
	if memText != "" {
		ctxText = "Previous conversations:\n" + memText + "\n"
	}
	ctxText += l.cfg.Transcript.Render()

	req := completer.Request{System: system, Context: ctxText, Image: image}
	if l.cfg.UseTools {
		req.Tools = l.cfg.Catalog.ModelSchema()
	}
	return req
}

var errEmptyReply = errors.New("empty reply")

// completeWithRetry retries transient backend failures with a fixed
// backoff. A reply carrying neither text nor tool calls counts as
// transient too. Blocked and otherwise permanent errors return
// immediately.
func (l *Loop) completeWithRetry(ctx context.Context, req completer.Request) (*completer.Reply, error) {
	var lastErr error
	for attempt := 1; attempt <= l.cfg.RetryAttempts; attempt++ {
		reply, err := l.cfg.Completer.Complete(ctx, req)
		if err == nil && len(reply.ToolCalls) == 0 && strings.TrimSpace(reply.Text) == "" {
			err = ierr.NewTransientError("completion", errEmptyReply)
		}
		if err == nil {
			return reply, nil
		}
		if errors.Is(err, completer.ErrBlocked) {
			return nil, err
		}
		var terr *ierr.TransientError
		if !errors.As(err, &terr) {
			return nil, err
		}

		lastErr = err
		logger.Warn("completion attempt %d/%d failed: %v", attempt, l.cfg.RetryAttempts, err)
		if attempt < l.cfg.RetryAttempts {
			if err := sleepContext(ctx, l.cfg.RetryBackoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// parseReply turns a model reply into dispatchable calls. Structured tool
// calls win when present; otherwise the text grammar applies, and a reply
// that contains no calls at all is treated as speech.
func (l *Loop) parseReply(reply *completer.Reply) ([]actions.ParsedAction, string) {
	if len(reply.ToolCalls) > 0 {
		calls := make([]actions.ParsedAction, 0, len(reply.ToolCalls))
		for _, tc := range reply.ToolCalls {
			calls = append(calls, actions.FromStructured(tc.Name, tc.Args))
		}
		return calls, ""
	}

	calls, diag := l.cfg.Parser.Parse(reply.Text)
	if len(calls) == 0 && strings.TrimSpace(reply.Text) != "" {
		return []actions.ParsedAction{{
			Name: "cozmo_says",
			Args: []actions.Arg{{Name: "text", Value: strings.TrimSpace(reply.Text)}},
		}}, ""
	}
	return calls, diag
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

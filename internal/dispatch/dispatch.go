// Package dispatch executes parsed action calls against the capability
// set. Each call is bound to its declared parameters, coerced to the
// declared types, run under a per-action deadline, and reported back into
// the event log as an ApiResult the moment it finishes. Calls are isolated
// from each other: one failure or timeout never aborts the rest of the
// batch.
package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cozmogo/cozmogo/internal/actions"
	"github.com/cozmogo/cozmogo/internal/capability"
	ierr "github.com/cozmogo/cozmogo/internal/errors"
	"github.com/cozmogo/cozmogo/internal/events"
	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/cozmogo/cozmogo/internal/schema"
)

// DefaultTimeout bounds an action that declares no timeout of its own.
const DefaultTimeout = 15 * time.Second

// Status classifies how one dispatched call ended.
type Status int

const (
	StatusOK Status = iota
	StatusUnknownAction
	StatusArgumentError
	StatusTimeout
	StatusFailure
)

// String returns the string representation of a dispatch status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknownAction:
		return "unknown_action"
	case StatusArgumentError:
		return "argument_error"
	case StatusTimeout:
		return "timeout"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome records one dispatched call. Result holds the handler's output
// when Status is StatusOK; Reason holds the error detail otherwise.
type Outcome struct {
	Call   actions.ParsedAction
	Status Status
	Result string
	Reason string
}

// Batch is the result of executing one reply's worth of calls, plus at
// most one camera frame captured during the batch.
type Batch struct {
	Outcomes []Outcome
	Image    []byte
}

// Dispatcher routes parsed calls to their handlers.
type Dispatcher struct {
	set *capability.Set
	log *events.Log
}

// New creates a dispatcher over the given capability set and event log.
func New(set *capability.Set, log *events.Log) *Dispatcher {
	return &Dispatcher{set: set, log: log}
}

// Execute runs the calls in order. The frame buffer is reset once at the
// start, so a batch yields at most one captured image regardless of how
// many capture actions it contains.
func (d *Dispatcher) Execute(ctx context.Context, calls []actions.ParsedAction) Batch {
	if images := d.set.Images(); images != nil {
		images.ResetImage()
	}

	batch := Batch{Outcomes: make([]Outcome, 0, len(calls))}
	for _, call := range calls {
		rendered := RenderCall(call)
		d.log.Append(events.ApiCall, rendered)

		out := d.executeOne(ctx, call)
		batch.Outcomes = append(batch.Outcomes, out)

		d.log.Append(events.ApiResult, fmt.Sprintf("Result of %s: %s", rendered, resultText(out)))
	}

	if images := d.set.Images(); images != nil {
		batch.Image = images.CapturedImage()
	}
	return batch
}

func (d *Dispatcher) executeOne(ctx context.Context, call actions.ParsedAction) Outcome {
	action, ok := d.set.Lookup(call.Name)
	if !ok {
		return Outcome{Call: call, Status: StatusUnknownAction, Reason: fmt.Sprintf("unknown action %q", call.Name)}
	}

	args, err := BindArgs(action.Spec, call.Args)
	if err != nil {
		return Outcome{Call: call, Status: StatusArgumentError, Reason: err.Error()}
	}

	timeout := action.Spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		err := ierr.Recover(func() error {
			text, err := action.Handler(cctx, args)
			done <- result{text: text, err: err}
			return err
		})
		// A panic means no result was sent; report it as the failure.
		if _, isPanic := err.(*ierr.PanicError); isPanic {
			done <- result{err: err}
		}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			logger.Warn("action %s failed: %v", call.Name, res.err)
			return Outcome{Call: call, Status: StatusFailure, Reason: res.err.Error()}
		}
		return Outcome{Call: call, Status: StatusOK, Result: res.text}
	case <-cctx.Done():
		// The handler goroutine keeps running until it observes the
		// cancelled context; the buffered channel lets it exit.
		logger.Warn("action %s timed out after %s", call.Name, timeout)
		return Outcome{Call: call, Status: StatusTimeout, Reason: fmt.Sprintf("timed out after %s", timeout)}
	}
}

// BindArgs matches call arguments to declared parameters and coerces each
// value to its declared type. Positional arguments bind in declaration
// order; keyword arguments bind by name and may follow positional ones.
func BindArgs(spec schema.ActionSpec, callArgs []actions.Arg) (map[string]any, error) {
	bound := make(map[string]any, len(spec.Params))
	byName := make(map[string]schema.Param, len(spec.Params))
	for _, p := range spec.Params {
		byName[p.Name] = p
	}

	pos := 0
	sawKeyword := false
	for _, arg := range callArgs {
		var param schema.Param
		switch {
		case arg.Name != "":
			sawKeyword = true
			p, ok := byName[arg.Name]
			if !ok {
				return nil, fmt.Errorf("%s: unknown argument %q", spec.Name, arg.Name)
			}
			param = p
		case sawKeyword:
			return nil, fmt.Errorf("%s: positional argument after keyword argument", spec.Name)
		case pos >= len(spec.Params):
			return nil, fmt.Errorf("%s: too many arguments (expected %d)", spec.Name, len(spec.Params))
		default:
			param = spec.Params[pos]
			pos++
		}

		if _, dup := bound[param.Name]; dup {
			return nil, fmt.Errorf("%s: argument %q given twice", spec.Name, param.Name)
		}
		val, err := coerce(arg.Value, param.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %q: %w", spec.Name, param.Name, err)
		}
		bound[param.Name] = val
	}

	for _, p := range spec.Params {
		if p.Required {
			if _, ok := bound[p.Name]; !ok {
				return nil, fmt.Errorf("%s: missing required argument %q", spec.Name, p.Name)
			}
		}
	}
	return bound, nil
}

// coerce converts a parsed literal to the declared parameter type.
// Conversion is lenient where intent is unambiguous: numeric strings
// parse, integers widen to number, whole floats narrow to integer, and
// lists flatten to a comma-joined string for string parameters.
func coerce(val any, typ schema.ParamType) (any, error) {
	switch typ {
	case schema.TypeString:
		switch v := val.(type) {
		case string:
			return v, nil
		case []any:
			parts := make([]string, len(v))
			for i, elem := range v {
				parts[i] = fmt.Sprint(elem)
			}
			return strings.Join(parts, ", "), nil
		default:
			return fmt.Sprint(v), nil
		}

	case schema.TypeInteger:
		switch v := val.(type) {
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
			return nil, fmt.Errorf("expected integer, got %v", v)
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return i, nil
			}
			return nil, fmt.Errorf("expected integer, got %q", v)
		default:
			return nil, fmt.Errorf("expected integer, got %T", v)
		}

	case schema.TypeNumber:
		switch v := val.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, nil
			}
			return nil, fmt.Errorf("expected number, got %q", v)
		default:
			return nil, fmt.Errorf("expected number, got %T", v)
		}

	case schema.TypeBoolean:
		switch v := val.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "on", "yes":
				return true, nil
			case "false", "off", "no":
				return false, nil
			}
			return nil, fmt.Errorf("expected boolean, got %q", v)
		default:
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
	}
	return nil, fmt.Errorf("unsupported parameter type %q", typ)
}

// RenderCall reconstructs a call as source text for result reporting.
// String values are double-quoted; everything else prints in literal form.
func RenderCall(call actions.ParsedAction) string {
	parts := make([]string, len(call.Args))
	for i, arg := range call.Args {
		lit := renderLiteral(arg.Value)
		if arg.Name != "" {
			parts[i] = arg.Name + "=" + lit
		} else {
			parts[i] = lit
		}
	}
	return fmt.Sprintf("%s(%s)", call.Name, strings.Join(parts, ", "))
}

func renderLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = renderLiteral(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}

// resultText renders an outcome for the ApiResult event.
func resultText(out Outcome) string {
	switch out.Status {
	case StatusOK:
		if out.Result == "" {
			return "succeeded."
		}
		return out.Result
	default:
		return "error: " + out.Reason
	}
}

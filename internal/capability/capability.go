// Package capability binds the robot's action surface: a declarative
// registry mapping action names to typed specs and handlers, plus the
// simulated actuator used when no robot is attached.
package capability

import (
	"context"

	"github.com/cozmogo/cozmogo/internal/schema"
)

// Handler executes one action. Arguments arrive coerced to their declared
// types, keyed by parameter name. The returned string is the short
// human-readable result folded into the transcript; an empty string renders
// as plain success.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Action pairs a declared spec with its bound handler.
type Action struct {
	Spec    schema.ActionSpec
	Handler Handler
}

// ImageSource is implemented by capability objects that can capture camera
// frames. The dispatcher resets the buffer at the start of every batch and
// collects at most one frame per turn.
type ImageSource interface {
	// ResetImage clears the captured frame buffer.
	ResetImage()
	// CapturedImage returns the frame captured during the current batch,
	// or nil.
	CapturedImage() []byte
}

// Set is the validated collection of actions exposed to the model. Exactly
// one Set is live per session.
type Set struct {
	actions []Action
	byName  map[string]Action
	catalog *schema.Catalog
	images  ImageSource
}

// NewSet builds a Set from the given actions. Spec validation happens here,
// once, so a malformed declaration aborts startup with a *schema.SchemaError
// instead of surfacing at call time. images may be nil when the capability
// object has no camera.
func NewSet(actions []Action, images ImageSource) (*Set, error) {
	specs := make([]schema.ActionSpec, len(actions))
	for i, a := range actions {
		specs[i] = a.Spec
	}
	catalog, err := schema.NewCatalog(specs)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Action, len(actions))
	for _, a := range actions {
		byName[a.Spec.Name] = a
	}

	return &Set{
		actions: actions,
		byName:  byName,
		catalog: catalog,
		images:  images,
	}, nil
}

// Catalog returns the schema catalog derived from this set.
func (s *Set) Catalog() *schema.Catalog {
	return s.catalog
}

// Lookup returns the bound action for name.
func (s *Set) Lookup(name string) (Action, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Images returns the set's image source, or nil.
func (s *Set) Images() ImageSource {
	return s.images
}

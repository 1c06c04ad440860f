// Package schema derives a machine-readable catalog of robot actions from
// the capability registry. The same ActionSpec table backs the prompt text
// shown to the model and the structured tool declarations handed to
// backends with native tool-calling, so the two can never disagree.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ParamType enumerates the argument types an action may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeNumber  ParamType = "number"
)

// Param describes one declared action parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// ActionSpec describes one action: its wire name, human description, and
// ordered parameter list. Timeout overrides the dispatcher default when
// non-zero.
type ActionSpec struct {
	Name        string
	Description string
	Params      []Param
	Timeout     time.Duration
}

// ToolDecl is the structured tool declaration handed to a Completer that
// supports native tool-calling. InputSchema is a JSON Schema object.
type ToolDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// SchemaError reports a malformed capability declaration. It is a
// configuration bug: raised once at startup, never caught per-call.
type SchemaError struct {
	Action string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("capability schema: %s", e.Reason)
	}
	return fmt.Sprintf("capability schema: action %q: %s", e.Action, e.Reason)
}

var snakeCase = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Catalog is the validated, read-only set of action specs, built once at
// startup.
type Catalog struct {
	specs  []ActionSpec
	byName map[string]ActionSpec
}

// NewCatalog validates the given specs and builds the catalog. Any
// non-snake_case action or parameter name, duplicate action, or unknown
// parameter type yields a *SchemaError.
func NewCatalog(specs []ActionSpec) (*Catalog, error) {
	c := &Catalog{
		specs:  make([]ActionSpec, 0, len(specs)),
		byName: make(map[string]ActionSpec, len(specs)),
	}

	for _, spec := range specs {
		if !snakeCase.MatchString(spec.Name) {
			return nil, &SchemaError{Action: spec.Name, Reason: "name is not snake_case"}
		}
		if _, dup := c.byName[spec.Name]; dup {
			return nil, &SchemaError{Action: spec.Name, Reason: "duplicate action name"}
		}
		if spec.Description == "" {
			return nil, &SchemaError{Action: spec.Name, Reason: "missing description"}
		}

		seen := make(map[string]bool, len(spec.Params))
		for _, p := range spec.Params {
			if !snakeCase.MatchString(p.Name) {
				return nil, &SchemaError{Action: spec.Name, Reason: fmt.Sprintf("parameter %q is not snake_case", p.Name)}
			}
			if seen[p.Name] {
				return nil, &SchemaError{Action: spec.Name, Reason: fmt.Sprintf("duplicate parameter %q", p.Name)}
			}
			seen[p.Name] = true

			switch p.Type {
			case TypeString, TypeInteger, TypeBoolean, TypeNumber:
			default:
				return nil, &SchemaError{Action: spec.Name, Reason: fmt.Sprintf("parameter %q has unsupported type %q", p.Name, p.Type)}
			}
		}

		c.specs = append(c.specs, spec)
		c.byName[spec.Name] = spec
	}

	return c, nil
}

// Specs returns the action specs in declaration order.
func (c *Catalog) Specs() []ActionSpec {
	return c.specs
}

// Lookup returns the spec for name, if declared.
func (c *Catalog) Lookup(name string) (ActionSpec, bool) {
	spec, ok := c.byName[name]
	return spec, ok
}

// Has reports whether name is a declared action.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// PromptText renders the human-readable function catalog included in the
// system prompt: one block per action with its signature, description, and
// parameter notes.
func (c *Catalog) PromptText() string {
	var b strings.Builder
	b.WriteString("CozmoAPI Functions:\n\n")

	for _, spec := range c.specs {
		names := make([]string, len(spec.Params))
		for i, p := range spec.Params {
			names[i] = p.Name
		}
		fmt.Fprintf(&b, "%s(%s):\n%s\n", spec.Name, strings.Join(names, ", "), spec.Description)

		for _, p := range spec.Params {
			if p.Description == "" {
				continue
			}
			fmt.Fprintf(&b, "    %s (%s): %s\n", p.Name, promptType(p.Type), p.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ModelSchema renders the catalog as structured tool declarations. The
// declared JSON types are limited to string, integer, and boolean; number
// parameters are declared integer and coerced leniently at dispatch.
func (c *Catalog) ModelSchema() []ToolDecl {
	decls := make([]ToolDecl, 0, len(c.specs))
	for _, spec := range c.specs {
		decls = append(decls, ToolDecl{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: inputSchema(spec),
		})
	}
	return decls
}

func inputSchema(spec ActionSpec) json.RawMessage {
	properties := make(map[string]any, len(spec.Params))
	var required []string
	for _, p := range spec.Params {
		prop := map[string]any{"type": declaredType(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	sort.Strings(required)

	obj := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		obj["required"] = required
	}

	// Marshal of plain maps and strings cannot fail.
	raw, _ := json.Marshal(obj)
	return raw
}

// declaredType maps internal parameter types to the baseline set supported
// by every Completer backend.
func declaredType(t ParamType) string {
	if t == TypeNumber {
		return "integer"
	}
	return string(t)
}

func promptType(t ParamType) string {
	return string(t)
}

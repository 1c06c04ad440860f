package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSpecs() []ActionSpec {
	return []ActionSpec{
		{
			Name:        "cozmo_says",
			Description: "Makes Cozmo say the provided text.",
			Params: []Param{
				{Name: "text", Type: TypeString, Description: "The text for Cozmo to speak.", Required: true},
			},
		},
		{
			Name:        "cozmo_drives",
			Description: "Makes Cozmo drive straight for a specified distance at a specific speed.",
			Params: []Param{
				{Name: "distance", Type: TypeNumber, Required: true},
				{Name: "speed", Type: TypeNumber, Required: true},
			},
		},
		{
			Name:        "cozmo_sets_headlight",
			Description: "Turns Cozmo's headlight on or off.",
			Params: []Param{
				{Name: "on_off", Type: TypeString, Required: true},
			},
		},
	}
}

func TestNewCatalogRejectsBadDeclarations(t *testing.T) {
	tests := []struct {
		name  string
		specs []ActionSpec
	}{
		{
			name:  "camelCase action name",
			specs: []ActionSpec{{Name: "cozmoSays", Description: "x"}},
		},
		{
			name: "camelCase parameter",
			specs: []ActionSpec{{
				Name: "cozmo_says", Description: "x",
				Params: []Param{{Name: "theText", Type: TypeString}},
			}},
		},
		{
			name: "duplicate action",
			specs: []ActionSpec{
				{Name: "cozmo_says", Description: "x"},
				{Name: "cozmo_says", Description: "y"},
			},
		},
		{
			name: "duplicate parameter",
			specs: []ActionSpec{{
				Name: "cozmo_drives", Description: "x",
				Params: []Param{
					{Name: "distance", Type: TypeNumber},
					{Name: "distance", Type: TypeNumber},
				},
			}},
		},
		{
			name: "unsupported type",
			specs: []ActionSpec{{
				Name: "cozmo_says", Description: "x",
				Params: []Param{{Name: "text", Type: ParamType("blob")}},
			}},
		},
		{
			name:  "missing description",
			specs: []ActionSpec{{Name: "cozmo_says"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.specs)
			require.Error(t, err)

			var se *SchemaError
			assert.True(t, errors.As(err, &se), "want *SchemaError, got %T", err)
		})
	}
}

func TestCatalogLookup(t *testing.T) {
	c, err := NewCatalog(sampleSpecs())
	require.NoError(t, err)

	spec, ok := c.Lookup("cozmo_drives")
	require.True(t, ok)
	assert.Equal(t, "cozmo_drives", spec.Name)
	require.Len(t, spec.Params, 2)
	assert.Equal(t, "distance", spec.Params[0].Name)

	_, ok = c.Lookup("cozmo_flies")
	assert.False(t, ok)
	assert.False(t, c.Has("cozmo_flies"))
}

// PromptText and ModelSchema must describe identical action and parameter
// sets for any catalog.
func TestPromptAndModelSchemaAgree(t *testing.T) {
	c, err := NewCatalog(sampleSpecs())
	require.NoError(t, err)

	prompt := c.PromptText()
	decls := c.ModelSchema()

	require.Len(t, decls, len(c.Specs()))
	for i, spec := range c.Specs() {
		assert.Equal(t, spec.Name, decls[i].Name)
		assert.Equal(t, spec.Description, decls[i].Description)
		assert.Contains(t, prompt, spec.Name+"(")
		assert.Contains(t, prompt, spec.Description)

		var schemaObj struct {
			Type       string                    `json:"type"`
			Properties map[string]map[string]any `json:"properties"`
			Required   []string                  `json:"required"`
		}
		require.NoError(t, json.Unmarshal(decls[i].InputSchema, &schemaObj))
		assert.Equal(t, "object", schemaObj.Type)
		require.Len(t, schemaObj.Properties, len(spec.Params))
		for _, p := range spec.Params {
			prop, ok := schemaObj.Properties[p.Name]
			require.True(t, ok, "parameter %s missing from model schema", p.Name)
			declared, _ := prop["type"].(string)
			assert.Contains(t, []string{"string", "integer", "boolean"}, declared,
				"declared type outside baseline set")
			if p.Required {
				assert.Contains(t, schemaObj.Required, p.Name)
			}
		}
	}
}

func TestPromptTextSignatureLine(t *testing.T) {
	c, err := NewCatalog(sampleSpecs())
	require.NoError(t, err)

	prompt := c.PromptText()
	assert.True(t, strings.HasPrefix(prompt, "CozmoAPI Functions:\n\n"))
	assert.Contains(t, prompt, "cozmo_drives(distance, speed):")
	assert.Contains(t, prompt, "cozmo_says(text):")
}

func TestNumberDeclaredAsInteger(t *testing.T) {
	c, err := NewCatalog([]ActionSpec{{
		Name:        "cozmo_turns",
		Description: "Makes Cozmo turn in place by a specific angle.",
		Params:      []Param{{Name: "angle", Type: TypeNumber, Required: true}},
	}})
	require.NoError(t, err)

	decls := c.ModelSchema()
	require.Len(t, decls, 1)
	assert.Contains(t, string(decls[0].InputSchema), `"type":"integer"`)
}

package ginstream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepankarm/streamjson/pkg/debounce"
	"github.com/deepankarm/streamjson/pkg/pipeline"
)

func TestSchema_Event(t *testing.T) {
	s, err := Schema[debounce.Event]()
	require.NoError(t, err)

	assert.Equal(t, "object", s["type"])
	assert.NotContains(t, s, "$ref")
	assert.Equal(t, []any{"type"}, s["required"])
	assert.Equal(t, false, s["additionalProperties"])

	props := s["properties"].(map[string]any)
	assert.Contains(t, props, "type")
	assert.Contains(t, props, "data")
}

func TestSchema_ConfigKeepsNestedDefs(t *testing.T) {
	s, err := Schema[pipeline.Config](WithTitle("Pipeline config"), WithDescription("Relay settings"))
	require.NoError(t, err)

	assert.Equal(t, "Pipeline config", s["title"])
	assert.Equal(t, "Relay settings", s["description"])

	props := s["properties"].(map[string]any)
	assert.NotContains(t, props, "Logger")
	framing := props["framing"].(map[string]any)
	assert.Equal(t, []any{"brace", "line"}, framing["enum"])

	debounceRef := props["debounce"].(map[string]any)["$ref"]
	assert.Equal(t, "#/$defs/DebounceConfig", debounceRef)

	defs := s["$defs"].(map[string]any)
	assert.NotContains(t, defs, "Config")
	interval := defs["DebounceConfig"].(map[string]any)["properties"].(map[string]any)["interval"].(map[string]any)
	if ref, ok := interval["$ref"].(string); ok {
		interval = defs[strings.TrimPrefix(ref, "#/$defs/")].(map[string]any)
	}
	assert.Equal(t, "string", interval["type"])
	assert.Contains(t, interval["description"], "duration")
}

func TestFlatten_NoRef(t *testing.T) {
	in := map[string]any{"type": "string"}
	out, err := flatten(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = flatten(map[string]any{"$ref": "#/definitions/X"})
	assert.ErrorContains(t, err, "unexpected $ref format")

	_, err = flatten(map[string]any{"$ref": "#/$defs/X", "$defs": map[string]any{}})
	assert.ErrorContains(t, err, "root definition X not found")
}

func TestFlatten_PrunesRootAndRetargetsSelfRefs(t *testing.T) {
	in := map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id":     "https://example.com/node",
		"$ref":    "#/$defs/Node",
		"$defs": map[string]any{
			"Node": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"children": map[string]any{
						"type":  "array",
						"items": map[string]any{"$ref": "#/$defs/Node"},
					},
					"meta": map[string]any{"$ref": "#/$defs/Meta"},
				},
			},
			"Meta": map[string]any{"type": "object"},
		},
	}

	out, err := flatten(in)
	require.NoError(t, err)
	assert.NotContains(t, out, "$ref")
	assert.Equal(t, "https://json-schema.org/draft/2020-12/schema", out["$schema"])
	assert.Equal(t, "https://example.com/node", out["$id"])

	defs := out["$defs"].(map[string]any)
	assert.NotContains(t, defs, "Node")
	assert.Contains(t, defs, "Meta")

	props := out["properties"].(map[string]any)
	items := props["children"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, "#", items["$ref"])
	assert.Equal(t, "#/$defs/Meta", props["meta"].(map[string]any)["$ref"])
}

func TestFlatten_SingleDefDropsDefs(t *testing.T) {
	out, err := flatten(map[string]any{
		"$ref":  "#/$defs/Only",
		"$defs": map[string]any{"Only": map[string]any{"type": "object"}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "object"}, out)
}

func TestSchemaHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/schema/stats", SchemaHandler[pipeline.Stats]())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schema/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var s map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	props := s["properties"].(map[string]any)
	assert.Equal(t, "integer", props["delivered"].(map[string]any)["type"])
}

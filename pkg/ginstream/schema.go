package ginstream

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"
)

// SchemaOption customizes a generated schema.
type SchemaOption func(map[string]any)

// WithTitle sets the schema title.
func WithTitle(title string) SchemaOption {
	return func(s map[string]any) {
		s["title"] = title
	}
}

// WithDescription sets the schema description.
func WithDescription(desc string) SchemaOption {
	return func(s map[string]any) {
		s["description"] = desc
	}
}

// Schema returns the JSON Schema of T with the root definition at the top
// level instead of behind a $ref.
func Schema[T any](opts ...SchemaOption) (map[string]any, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
	}
	var zero T
	raw, err := json.Marshal(r.Reflect(zero))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	flat, err := flatten(schema)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(flat)
	}
	return flat, nil
}

// flatten hoists the definition a top-level $ref points at into the
// document root. The hoisted entry leaves $defs and references to it become
// "#", so recursive types stay valid.
func flatten(schema map[string]any) (map[string]any, error) {
	ref, ok := schema["$ref"].(string)
	if !ok {
		return schema, nil
	}
	name, found := strings.CutPrefix(ref, "#/$defs/")
	if !found {
		return nil, fmt.Errorf("unexpected $ref format: %s", ref)
	}
	defs, _ := schema["$defs"].(map[string]any)
	root, ok := defs[name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("root definition %s not found in $defs", name)
	}

	rest := make(map[string]any, len(defs)-1)
	for k, v := range defs {
		if k != name {
			rest[k] = v
		}
	}

	out := maps.Clone(root)
	for _, key := range []string{"$schema", "$id"} {
		if v, ok := schema[key]; ok {
			out[key] = v
		}
	}
	if len(rest) > 0 {
		out["$defs"] = rest
	}
	retarget(out, ref)
	return out, nil
}

// retarget rewrites every $ref equal to from into a root reference.
func retarget(node any, from string) {
	switch n := node.(type) {
	case map[string]any:
		if r, ok := n["$ref"].(string); ok && r == from {
			n["$ref"] = "#"
		}
		for _, v := range n {
			retarget(v, from)
		}
	case []any:
		for _, v := range n {
			retarget(v, from)
		}
	}
}

// SchemaHandler serves the schema of T as JSON. The schema is generated once.
func SchemaHandler[T any](opts ...SchemaOption) gin.HandlerFunc {
	schema, err := Schema[T](opts...)
	return func(c *gin.Context) {
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, schema)
	}
}

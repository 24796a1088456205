package pipeline

import (
	"github.com/tidwall/gjson"

	"github.com/deepankarm/streamjson/pkg/debounce"
	"github.com/deepankarm/streamjson/pkg/streamjson"
)

// Mapper turns decoded values into tagged events.
type Mapper struct {
	typePath string
	untyped  string
	rules    []Rule
}

// NewMapper builds a mapper from cfg's TypePath, UntypedTag and Rules.
func NewMapper(cfg Config) *Mapper {
	cfg.defaults()
	return &Mapper{
		typePath: cfg.TypePath,
		untyped:  cfg.UntypedTag,
		rules:    cfg.Rules,
	}
}

// Map returns the event for v. The first matching rule decides the type and
// payload. Otherwise the type is the string at the type path, or the
// untyped tag when there is none, and the payload is the whole value.
func (m *Mapper) Map(v streamjson.DecodedValue) debounce.Event {
	for _, r := range m.rules {
		if gjson.Get(v.Raw, r.Path).String() != r.Equals {
			continue
		}
		ev := debounce.Event{Type: r.Emit, Data: v.Value}
		if r.DataPath != "" {
			ev.Data = gjson.Get(v.Raw, r.DataPath).Value()
		}
		return ev
	}

	tag := gjson.Get(v.Raw, m.typePath)
	if tag.Type != gjson.String || tag.Str == "" {
		return debounce.Event{Type: m.untyped, Data: v.Value}
	}
	return debounce.Event{Type: tag.Str, Data: v.Value}
}

package debounce

import (
	"fmt"
	"slices"

	"github.com/deepankarm/streamjson/pkg/internal/errors"
)

// Event is a tagged payload.
type Event struct {
	Type string `json:"type" jsonschema:"required,description=Event type tag"`
	Data any    `json:"data,omitempty" jsonschema:"description=Payload; a string for coalescible types"`
}

// Sink receives delivered events. A returned error is passed back to the
// caller of the operation that triggered the delivery.
type Sink func(Event) error

// Kind is how an event type is treated.
type Kind int

const (
	// KindPassThrough events are delivered at once without flushing.
	KindPassThrough Kind = iota
	// KindImmediate events flush pending content, then are delivered at once.
	KindImmediate
	// KindCoalescible events are concatenated and delivered later.
	KindCoalescible
)

func (k Kind) String() string {
	switch k {
	case KindImmediate:
		return "immediate"
	case KindCoalescible:
		return "coalescible"
	default:
		return "pass-through"
	}
}

// Classifier maps event types to kinds. The zero value treats every type
// as pass-through.
type Classifier struct {
	immediate   map[string]struct{}
	coalescible map[string]struct{}
}

// NewClassifier builds a classifier from two disjoint sets of type tags.
func NewClassifier(immediate, coalescible []string) (*Classifier, error) {
	c := &Classifier{
		immediate:   make(map[string]struct{}, len(immediate)),
		coalescible: make(map[string]struct{}, len(coalescible)),
	}
	for _, t := range immediate {
		c.immediate[t] = struct{}{}
	}
	var overlap []string
	for _, t := range coalescible {
		if _, ok := c.immediate[t]; ok {
			overlap = append(overlap, t)
		}
		c.coalescible[t] = struct{}{}
	}
	if len(overlap) > 0 {
		slices.Sort(overlap)
		return nil, errors.New(errors.ErrorTypeConfig,
			fmt.Sprintf("types both immediate and coalescible: %v", overlap), "classifier")
	}
	return c, nil
}

// MustClassifier is like NewClassifier but panics on overlapping sets.
func MustClassifier(immediate, coalescible []string) *Classifier {
	c, err := NewClassifier(immediate, coalescible)
	if err != nil {
		panic(err)
	}
	return c
}

// Kind returns how events of type tag are treated.
func (c *Classifier) Kind(tag string) Kind {
	if c == nil {
		return KindPassThrough
	}
	if _, ok := c.immediate[tag]; ok {
		return KindImmediate
	}
	if _, ok := c.coalescible[tag]; ok {
		return KindCoalescible
	}
	return KindPassThrough
}

package pipeline

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/deepankarm/streamjson/pkg/debounce"
	"github.com/deepankarm/streamjson/pkg/internal/errors"
	"github.com/deepankarm/streamjson/pkg/streamjson"
)

// Config describes how a producer's stream is decoded and delivered.
type Config struct {
	// Framing is "brace" (default) or "line".
	Framing streamjson.Framing `toml:"framing" yaml:"framing" json:"framing,omitempty" validate:"omitempty,oneof=brace line" jsonschema:"enum=brace,enum=line,default=brace"`
	// TypePath is the gjson path of the type tag inside each value. Default: "type".
	TypePath string `toml:"type_path" yaml:"type_path" json:"type_path,omitempty"`
	// UntypedTag is the tag given to values without a string type tag. Default: "raw".
	UntypedTag string `toml:"untyped_tag" yaml:"untyped_tag" json:"untyped_tag,omitempty"`
	// MaxBufferBytes aborts the session when the decoder holds more than
	// this many bytes after a chunk. Default: 16 MiB. Negative disables.
	MaxBufferBytes int `toml:"max_buffer_bytes" yaml:"max_buffer_bytes" json:"max_buffer_bytes,omitempty"`
	// ReadSize is the buffer size used by Session.Run. Default: 32 KiB.
	ReadSize int `toml:"read_size" yaml:"read_size" json:"read_size,omitempty" validate:"gte=0"`
	// UseNumber decodes numbers as json.Number.
	UseNumber bool `toml:"use_number" yaml:"use_number" json:"use_number,omitempty"`

	Debounce DebounceConfig `toml:"debounce" yaml:"debounce" json:"debounce"`
	Rules    []Rule         `toml:"rules" yaml:"rules" json:"rules,omitempty" validate:"dive"`

	Logger *slog.Logger `toml:"-" yaml:"-" json:"-"`
}

// DebounceConfig holds the event classification and delivery timing.
type DebounceConfig struct {
	Interval    Duration `toml:"interval" yaml:"interval" json:"interval,omitempty" validate:"gte=0"`
	MaxWait     Duration `toml:"max_wait" yaml:"max_wait" json:"max_wait,omitempty" validate:"gte=0"`
	Strict      bool     `toml:"strict" yaml:"strict" json:"strict,omitempty"`
	Immediate   []string `toml:"immediate" yaml:"immediate" json:"immediate,omitempty" validate:"dive,required"`
	Coalescible []string `toml:"coalescible" yaml:"coalescible" json:"coalescible,omitempty" validate:"dive,required"`
}

// Rule rewrites matching values into events of another type.
// Rules are tried in order and the first match wins.
type Rule struct {
	// Path is the gjson path compared against Equals. Default: the config's TypePath.
	Path string `toml:"path" yaml:"path" json:"path,omitempty"`
	// Equals is the value Path must have for the rule to match.
	Equals string `toml:"equals" yaml:"equals" json:"equals" validate:"required"`
	// Emit is the event type produced. Default: Equals.
	Emit string `toml:"emit" yaml:"emit" json:"emit,omitempty"`
	// DataPath, when set, replaces the payload with the value at this gjson path.
	DataPath string `toml:"data_path" yaml:"data_path" json:"data_path,omitempty"`
}

// DefaultConfig returns a configuration for producers that emit
// Anthropic-style stream-json: text and thinking deltas are coalesced,
// everything carrying a top-level type is delivered at once.
func DefaultConfig() Config {
	cfg := Config{
		Debounce: DebounceConfig{
			Immediate:   []string{"system", "assistant", "user", "result", "error"},
			Coalescible: []string{"output", "thinking"},
		},
		Rules: []Rule{
			{Path: "event.delta.type", Equals: "text_delta", Emit: "output", DataPath: "event.delta.text"},
			{Path: "event.delta.type", Equals: "thinking_delta", Emit: "thinking", DataPath: "event.delta.thinking"},
		},
	}
	cfg.defaults()
	return cfg
}

func (c *Config) defaults() {
	if c.Framing == "" {
		c.Framing = streamjson.FramingBrace
	}
	if c.TypePath == "" {
		c.TypePath = "type"
	}
	if c.UntypedTag == "" {
		c.UntypedTag = "raw"
	}
	if c.MaxBufferBytes == 0 {
		c.MaxBufferBytes = 16 << 20
	}
	if c.ReadSize <= 0 {
		c.ReadSize = 32 << 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	for i := range c.Rules {
		if c.Rules[i].Path == "" {
			c.Rules[i].Path = c.TypePath
		}
		if c.Rules[i].Emit == "" {
			c.Rules[i].Emit = c.Rules[i].Equals
		}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and that no type is classified both
// immediate and coalescible.
func (c *Config) Validate() error {
	var errs errors.StreamErrors
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			return errors.Wrap(errors.ErrorTypeConfig, err, "validate")
		}
		for _, fe := range verrs {
			loc := strings.Split(fe.Namespace(), ".")[1:]
			errs = append(errs, errors.New(errors.ErrorTypeConfig, describe(fe), loc...))
		}
	}
	if _, err := c.Debounce.classifier(); err != nil {
		var se *errors.StreamError
		if stderrors.As(err, &se) {
			errs = append(errs, se)
		}
	}
	return errs.ErrOrNil()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}

func (d DebounceConfig) classifier() (*debounce.Classifier, error) {
	return debounce.NewClassifier(d.Immediate, d.Coalescible)
}

func (d DebounceConfig) debounceConfig(logger *slog.Logger) debounce.Config {
	return debounce.Config{
		Interval: time.Duration(d.Interval),
		MaxWait:  time.Duration(d.MaxWait),
		Strict:   d.Strict,
		Logger:   logger,
	}
}

// LoadConfig reads a TOML, YAML or JSON file, chosen by extension, applies
// defaults and validates the result. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrorTypeConfig, err, "read", path)
	}
	return ParseConfig(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseConfig decodes data in the given format ("toml", "yaml", "yml" or
// "json"), applies defaults and validates.
func ParseConfig(data []byte, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrorTypeConfig, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unknown keys %v", undecoded), "toml")
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrorTypeConfig, err, "decode yaml")
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrorTypeConfig, err, "decode json")
		}
	default:
		return Config{}, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unsupported format %q", format))
	}

	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Duration is a time.Duration written as a string such as "50ms" in
// config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration, e.g. 50ms",
	}
}

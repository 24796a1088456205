package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/deepankarm/streamjson/pkg/debounce"
	"github.com/deepankarm/streamjson/pkg/internal/errors"
	"github.com/deepankarm/streamjson/pkg/streamjson"
)

var (
	// ErrBufferLimit is returned when the decoder holds more undelivered
	// bytes than Config.MaxBufferBytes allows.
	ErrBufferLimit = errors.New(errors.ErrorTypeBufferLimit, "decoder buffer limit exceeded")

	// ErrClosed is returned by Feed after Close or Cancel.
	ErrClosed = errors.New(errors.ErrorTypeClosed, "session closed")
)

// Stats counts what a session has seen so far.
type Stats struct {
	Chunks    int64 `json:"chunks"`
	Bytes     int64 `json:"bytes"`
	Decoded   int64 `json:"decoded"`
	Malformed int64 `json:"malformed"`
	Delivered int64 `json:"delivered"`
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// WithTrailingHandler registers fn to receive the undecoded remainder left
// when the stream ends in the middle of a value.
func WithTrailingHandler(fn func(*streamjson.Trailing)) SessionOption {
	return func(s *Session) {
		s.onTrailing = fn
	}
}

// WithClock replaces the debouncer's clock.
func WithClock(c debounce.Clock) SessionOption {
	return func(s *Session) {
		s.clock = c
	}
}

// Session feeds one producer stream through a decoder, a mapper and a
// debouncer into a sink. Feed, Close and Cancel may be called from
// different goroutines; calls are serialized.
type Session struct {
	id         string
	cfg        Config
	logger     *slog.Logger
	onTrailing func(*streamjson.Trailing)
	clock      debounce.Clock

	mu        sync.Mutex
	closed    bool
	decoder   streamjson.ChunkDecoder
	mapper    *Mapper
	debouncer *debounce.Debouncer

	chunks    atomic.Int64
	bytes     atomic.Int64
	decoded   atomic.Int64
	malformed atomic.Int64
	delivered atomic.Int64
}

// NewSession validates cfg and returns a session delivering to sink.
func NewSession(cfg Config, sink debounce.Sink, opts ...SessionOption) (*Session, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classifier, err := cfg.Debounce.classifier()
	if err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.logger = cfg.Logger.With("session", s.id)

	decOpts := []streamjson.Option{
		streamjson.WithLogger(s.logger),
		streamjson.WithMalformedHandler(func(*streamjson.MalformedError) {
			s.malformed.Add(1)
		}),
	}
	if cfg.UseNumber {
		decOpts = append(decOpts, streamjson.WithUseNumber())
	}
	s.decoder, err = streamjson.New(cfg.Framing, decOpts...)
	if err != nil {
		return nil, err
	}
	s.mapper = NewMapper(cfg)

	dcfg := cfg.Debounce.debounceConfig(s.logger)
	dcfg.Clock = s.clock
	s.debouncer = debounce.New(func(ev debounce.Event) error {
		if err := sink(ev); err != nil {
			return err
		}
		s.delivered.Add(1)
		return nil
	}, classifier, dcfg)

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	return Stats{
		Chunks:    s.chunks.Load(),
		Bytes:     s.bytes.Load(),
		Decoded:   s.decoded.Load(),
		Malformed: s.malformed.Load(),
		Delivered: s.delivered.Load(),
	}
}

// Feed decodes chunk and sends every complete value to the debouncer.
// A sink error stops processing of the chunk and is returned; values after
// the failing one are lost.
func (s *Session) Feed(chunk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed.At(s.id)
	}

	s.chunks.Add(1)
	s.bytes.Add(int64(len(chunk)))
	for _, v := range s.decoder.Parse(chunk) {
		s.decoded.Add(1)
		if err := s.debouncer.Send(s.mapper.Map(v)); err != nil {
			return fmt.Errorf("session %s: %w", s.id, err)
		}
	}

	if limit := s.cfg.MaxBufferBytes; limit > 0 {
		if n := s.decoder.BufferLength(); n > limit {
			s.decoder.Reset()
			s.logger.Error("pipeline: decoder buffer limit exceeded", "buffered", n, "limit", limit)
			return &errors.StreamError{
				Type:    errors.ErrorTypeBufferLimit,
				Loc:     []string{s.id},
				Message: fmt.Sprintf("decoder holds %d bytes, limit %d", n, limit),
			}
		}
	}
	return nil
}

// Close ends the stream normally: an unterminated value is reported to the
// trailing handler, then pending events are flushed. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if t := s.decoder.FlushPartial(); t != nil {
		s.logger.Warn("pipeline: stream ended inside a value",
			"bytes", len(t.Text),
			"truncated_at", t.TruncatedAt,
			"incomplete", t.Incomplete,
		)
		if s.onTrailing != nil {
			s.onTrailing(t)
		}
	}
	return s.debouncer.Dispose()
}

// Cancel ends the stream abnormally: pending events and buffered bytes are
// discarded without delivery.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.debouncer.Clear()
	s.decoder.Reset()
}

// Run reads r until EOF, feeding every read to the session, then closes it.
// If ctx is done first the session is cancelled and ctx.Err() returned; a
// blocked Read is left to finish on its own, so callers should also close
// r (or kill the producer) on cancellation.
func (s *Session) Run(ctx context.Context, r io.Reader) error {
	chunks := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		buf := make([]byte, s.cfg.ReadSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case chunks <- string(buf[:n]):
				case <-done:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.Cancel()
			return ctx.Err()
		case chunk := <-chunks:
			if err := s.Feed(chunk); err != nil {
				s.Cancel()
				return err
			}
		case err := <-readErr:
			closeErr := s.Close()
			if stderrors.Is(err, io.EOF) {
				return closeErr
			}
			s.logger.Error("pipeline: read failed", "error", err)
			return stderrors.Join(fmt.Errorf("session %s: read: %w", s.id, err), closeErr)
		}
	}
}

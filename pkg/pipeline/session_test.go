package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepankarm/streamjson/pkg/debounce"
	"github.com/deepankarm/streamjson/pkg/streamjson"
)

// claudeStream is a stream-json transcript with a brace inside a text delta.
const claudeStream = `{"type":"system","subtype":"init"}
{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hel"}}}
{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"lo"}}}
{"type":"assistant","message":{"content":"Hello"}}
{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":" {world}"}}}
{"type":"result","result":"ok"}
`

type collector struct {
	mu     sync.Mutex
	events []debounce.Event
	err    error
}

func (c *collector) sink(ev debounce.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

func (c *collector) outputs() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []any
	for _, ev := range c.events {
		if ev.Type == "output" {
			out = append(out, ev.Data)
		}
	}
	return out
}

// testConfig never fires timers on its own; delivery of coalesced content
// happens on immediate events and on Close.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Debounce.Interval = Duration(time.Hour)
	cfg.Debounce.MaxWait = Duration(time.Hour)
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func feedInChunks(t *testing.T, s *Session, stream string, size int) {
	t.Helper()
	for i := 0; i < len(stream); i += size {
		end := min(i+size, len(stream))
		require.NoError(t, s.Feed(stream[i:end]))
	}
}

func TestSession_Feed(t *testing.T) {
	for _, size := range []int{1, 7, 64, len(claudeStream)} {
		c := &collector{}
		s, err := NewSession(testConfig(), c.sink)
		require.NoError(t, err)

		feedInChunks(t, s, claudeStream, size)
		require.NoError(t, s.Close())

		assert.Equal(t, []string{"system", "output", "assistant", "output", "result"}, c.types(), "chunk size %d", size)
		assert.Equal(t, []any{"Hello", " {world}"}, c.outputs(), "chunk size %d", size)

		stats := s.Stats()
		assert.Equal(t, int64(6), stats.Decoded)
		assert.Equal(t, int64(5), stats.Delivered)
		assert.Equal(t, int64(len(claudeStream)), stats.Bytes)
		assert.Zero(t, stats.Malformed)
	}
}

func TestSession_CloseFlushesPending(t *testing.T) {
	c := &collector{}
	s, err := NewSession(testConfig(), c.sink)
	require.NoError(t, err)

	require.NoError(t, s.Feed(`{"type":"stream_event","event":{"delta":{"type":"text_delta","text":"tail"}}}`))
	assert.Empty(t, c.types())

	require.NoError(t, s.Close())
	assert.Equal(t, []any{"tail"}, c.outputs())

	require.NoError(t, s.Close(), "close is idempotent")
	assert.ErrorIs(t, s.Feed(`{}`), ErrClosed)
}

func TestSession_Cancel(t *testing.T) {
	c := &collector{}
	s, err := NewSession(testConfig(), c.sink)
	require.NoError(t, err)

	require.NoError(t, s.Feed(`{"type":"stream_event","event":{"delta":{"type":"text_delta","text":"lost"}}}{"type":"res`))
	s.Cancel()

	assert.Empty(t, c.types())
	assert.ErrorIs(t, s.Feed(`ult"}`), ErrClosed)
	require.NoError(t, s.Close())
	assert.Empty(t, c.types())
}

func TestSession_Trailing(t *testing.T) {
	var trailing *streamjson.Trailing
	c := &collector{}
	s, err := NewSession(testConfig(), c.sink, WithTrailingHandler(func(tr *streamjson.Trailing) {
		trailing = tr
	}))
	require.NoError(t, err)

	require.NoError(t, s.Feed(`{"type":"system"}{"type":"result","result":"partial te`))
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"system"}, c.types())
	require.NotNil(t, trailing)
	assert.Equal(t, `{"type":"result","result":"partial te`, trailing.Text)
	assert.Equal(t, "string", trailing.TruncatedAt)
	assert.True(t, trailing.Truncates("result"))
	assert.JSONEq(t, `{"type":"result","result":"partial te"}`, string(trailing.Repaired))
}

func TestSession_NoTrailingOnCleanEnd(t *testing.T) {
	called := false
	s, err := NewSession(testConfig(), (&collector{}).sink, WithTrailingHandler(func(*streamjson.Trailing) {
		called = true
	}))
	require.NoError(t, err)

	require.NoError(t, s.Feed("{\"type\":\"system\"}\n  \n"))
	require.NoError(t, s.Close())
	assert.False(t, called)
}

func TestSession_Malformed(t *testing.T) {
	c := &collector{}
	s, err := NewSession(testConfig(), c.sink)
	require.NoError(t, err)

	require.NoError(t, s.Feed(`{"type":}{"type":"system"}`))
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"system"}, c.types())
	assert.Equal(t, int64(1), s.Stats().Malformed)
	assert.Equal(t, int64(1), s.Stats().Decoded)
}

func TestSession_BufferLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBufferBytes = 32
	c := &collector{}
	s, err := NewSession(cfg, c.sink)
	require.NoError(t, err)

	err = s.Feed(`{"type":"result","result":"` + strings.Repeat("x", 40))
	require.ErrorIs(t, err, ErrBufferLimit)
	assert.ErrorContains(t, err, "limit 32")

	// The oversized value is dropped and the session keeps working.
	require.Zero(t, s.decoder.BufferLength())
	require.NoError(t, s.Feed(`{"type":"system"}`))
	require.NoError(t, s.Close())
	assert.Equal(t, []string{"system"}, c.types())
}

func TestSession_SinkError(t *testing.T) {
	boom := errors.New("boom")
	c := &collector{err: boom}
	s, err := NewSession(testConfig(), c.sink)
	require.NoError(t, err)

	err = s.Feed(`{"type":"system"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, debounce.ErrSink)
	assert.ErrorContains(t, err, s.ID())
}

func TestSession_LineFraming(t *testing.T) {
	cfg := testConfig()
	cfg.Framing = streamjson.FramingLine
	c := &collector{}
	s, err := NewSession(cfg, c.sink)
	require.NoError(t, err)

	feedInChunks(t, s, "{\"type\":\"system\"}\n[1,2]\nnot json\n\"str\"\n", 3)
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"system", "raw", "raw"}, c.types())
	assert.Equal(t, int64(1), s.Stats().Malformed)
}

func TestSession_ID(t *testing.T) {
	s, err := NewSession(testConfig(), (&collector{}).sink)
	require.NoError(t, err)
	_, err = uuid.Parse(s.ID())
	assert.NoError(t, err)

	s, err = NewSession(testConfig(), (&collector{}).sink, WithSessionID("chat-42"))
	require.NoError(t, err)
	assert.Equal(t, "chat-42", s.ID())
}

func TestNewSession_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Debounce.Coalescible = append(cfg.Debounce.Coalescible, "system")
	_, err := NewSession(cfg, (&collector{}).sink)
	assert.ErrorContains(t, err, "both immediate and coalescible")
}

func TestSession_Run(t *testing.T) {
	cfg := testConfig()
	cfg.ReadSize = 5
	c := &collector{}
	s, err := NewSession(cfg, c.sink)
	require.NoError(t, err)

	err = s.Run(context.Background(), iotest.HalfReader(strings.NewReader(claudeStream)))
	require.NoError(t, err)

	assert.Equal(t, []string{"system", "output", "assistant", "output", "result"}, c.types())
	assert.ErrorIs(t, s.Feed(`{}`), ErrClosed)
}

func TestSession_RunReadError(t *testing.T) {
	boom := errors.New("pipe broke")
	c := &collector{}
	s, err := NewSession(testConfig(), c.sink)
	require.NoError(t, err)

	r := io.MultiReader(
		strings.NewReader(`{"type":"system"}{"type":"stream_event","event":{"delta":{"type":"text_delta","text":"x"}}}`),
		iotest.ErrReader(boom),
	)
	err = s.Run(context.Background(), r)
	assert.ErrorIs(t, err, boom)
	// Pending output is still flushed before the read error is reported.
	assert.Equal(t, []string{"system", "output"}, c.types())
}

func TestSession_RunCancelled(t *testing.T) {
	c := &collector{}
	s, err := NewSession(testConfig(), c.sink)
	require.NoError(t, err)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, pr) }()

	_, err = pw.Write([]byte(`{"type":"stream_event","event":{"delta":{"type":"text_delta","text":"x"}}}`))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, c.types())
}

func TestSession_TimedDelivery(t *testing.T) {
	cfg := testConfig()
	cfg.Debounce.Interval = Duration(10 * time.Millisecond)
	cfg.Debounce.MaxWait = Duration(20 * time.Millisecond)
	c := &collector{}
	s, err := NewSession(cfg, c.sink)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Feed(`{"type":"stream_event","event":{"delta":{"type":"text_delta","text":"tick"}}}`))
	assert.Eventually(t, func() bool {
		return len(c.outputs()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), s.Stats().Delivered)
}

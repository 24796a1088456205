package ginstream

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/deepankarm/streamjson/pkg/debounce"
	"github.com/deepankarm/streamjson/pkg/internal/errors"
)

// ErrBrokerClosed is returned by Deliver and Subscribe after Close.
var ErrBrokerClosed = errors.New(errors.ErrorTypeClosed, "broker closed")

// Message is an event with its broker-assigned sequence number.
type Message struct {
	ID    uint64
	Event debounce.Event
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBuffer sets how many messages each subscriber may have queued before
// further messages to it are dropped. Default: 64.
func WithBuffer(n int) BrokerOption {
	return func(b *Broker) {
		b.buffer = n
	}
}

// WithLogger sets the broker's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) BrokerOption {
	return func(b *Broker) {
		b.logger = logger
	}
}

// WithRetry sets the reconnection delay advertised to SSE clients.
func WithRetry(d time.Duration) BrokerOption {
	return func(b *Broker) {
		b.retry = uint(d / time.Millisecond)
	}
}

// Broker fans delivered events out to subscribers. A subscriber that falls
// behind loses messages rather than blocking delivery.
type Broker struct {
	buffer int
	retry  uint
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	seq     uint64
	nextSub uint64
	subs    map[uint64]chan Message
	dropped uint64
}

// NewBroker creates an open broker.
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		buffer: 64,
		subs:   make(map[uint64]chan Message),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.buffer < 1 {
		b.buffer = 1
	}
	return b
}

// Deliver sends ev to every subscriber. It has the debounce.Sink signature.
func (b *Broker) Deliver(ev debounce.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}

	b.seq++
	msg := Message{ID: b.seq, Event: ev}
	for id, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			b.dropped++
			b.logger.Warn("ginstream: subscriber too slow, dropping event",
				"subscriber", id,
				"type", ev.Type,
				"seq", msg.ID,
			)
		}
	}
	return nil
}

// Subscribe registers a subscriber. The channel is closed by the returned
// cancel function or by Close.
func (b *Broker) Subscribe() (<-chan Message, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrBrokerClosed
	}

	b.nextSub++
	id := b.nextSub
	ch := make(chan Message, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel, nil
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many messages were dropped for slow subscribers.
func (b *Broker) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close disconnects every subscriber. Later deliveries fail with
// ErrBrokerClosed.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Handler streams messages to the client as Server-Sent Events. The event
// name is the event type and the id is the message sequence number. String
// payloads are sent verbatim, anything else as JSON.
func (b *Broker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, cancel, err := b.Subscribe()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		done := c.Request.Context().Done()
		c.Stream(func(io.Writer) bool {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return false
				}
				c.Render(-1, sse.Event{
					Id:    strconv.FormatUint(msg.ID, 10),
					Event: msg.Event.Type,
					Retry: b.retry,
					Data:  msg.Event.Data,
				})
				return true
			case <-done:
				return false
			}
		})
	}
}

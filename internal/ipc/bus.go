package ipc

import (
	"context"
	"fmt"
	"sync"

	"github.com/barysiuk/mcplink/internal/core"
)

// Bus connects request handlers and topic subscribers to their callers.
// Handlers and subscribers run on the caller's goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]any
	subs     map[string]map[int]any
	nextID   int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]any),
		subs:     make(map[string]map[int]any),
	}
}

// HandlerFunc answers requests on a channel.
type HandlerFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Handle registers the handler for ch. A channel has at most one handler.
func Handle[Req, Resp any](b *Bus, ch Channel[Req, Resp], fn HandlerFunc[Req, Resp]) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[ch.name]; exists {
		return fmt.Errorf("channel %s already has a handler", ch.name)
	}
	b.handlers[ch.name] = fn
	return nil
}

// Call sends req on ch and wraps the outcome in a Response. Errors from
// the handler become Response.Error using their user-facing message.
func Call[Req, Resp any](ctx context.Context, b *Bus, ch Channel[Req, Resp], req Req) Response[Resp] {
	b.mu.RLock()
	h, ok := b.handlers[ch.name]
	b.mu.RUnlock()
	if !ok {
		return Response[Resp]{Error: fmt.Sprintf("no handler for %s", ch.name)}
	}
	fn := h.(HandlerFunc[Req, Resp])

	data, err := fn(ctx, req)
	if err != nil {
		return Response[Resp]{Error: core.AsError(err).UserMessage}
	}
	return Response[Resp]{Success: true, Data: data}
}

// Publish delivers v to every current subscriber of topic.
func Publish[T any](b *Bus, topic Topic[T], v T) {
	b.mu.RLock()
	subs := make([]func(T), 0, len(b.subs[topic.name]))
	for _, s := range b.subs[topic.name] {
		subs = append(subs, s.(func(T)))
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn for topic. The returned cancel function removes
// the subscription and is safe to call more than once.
func Subscribe[T any](b *Bus, topic Topic[T], fn func(T)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[topic.name] == nil {
		b.subs[topic.name] = make(map[int]any)
	}
	b.subs[topic.name][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic.name], id)
			b.mu.Unlock()
		})
	}
}

// Notifier returns a core.Notifier that publishes on the Notify topic.
func (b *Bus) Notifier() core.Notifier {
	return core.NotifierFunc(func(n core.Notification) {
		Publish(b, Notify, n)
	})
}

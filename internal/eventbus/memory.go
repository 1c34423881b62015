package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// MemoryBus is an in-process publisher with synchronous-to-queue,
// asynchronous-to-handler delivery. Used in tests and in single-node
// deployments that run without NATS.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
	wg       sync.WaitGroup
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]Handler),
	}
}

var _ Publisher = (*MemoryBus)(nil)

// Subscribe registers a handler for a topic. Handlers run on their own
// goroutine per event; a slow handler does not block publishers.
func (b *MemoryBus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish delivers the event to every handler subscribed to the topic.
func (b *MemoryBus) Publish(ctx context.Context, topic string, payload interface{}) error {
	event, err := newEvent(ctx, topic, payload)
	if err != nil {
		observer.IncEventPublished(topic, err)
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		logger.FromContext(ctx).Warn("Event dropped, bus closed", zap.String("topic", topic))
		return nil
	}
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler := handler
		b.wg.Add(1)
		utils.SafeGo(func() {
			defer b.wg.Done()
			handler(context.WithoutCancel(ctx), event)
		}, nil)
	}

	observer.IncEventPublished(topic, nil)
	return nil
}

// Close stops accepting events and waits for in-flight handlers.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}

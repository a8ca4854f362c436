package statebus

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrTokenReleased is returned when a Token is released more than once.
var ErrTokenReleased = errors.New("statebus: token already released")

// Handler is a generic signal handler function
type Handler[T any] func(T)

// SubscribeOption configures a signal subscription
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	once bool
}

// Once configures the handler to be called only once.
// The token is released automatically after the first call.
func Once() SubscribeOption {
	return func(c *subscribeConfig) {
		c.once = true
	}
}

// internalHandler wraps a handler with metadata
type internalHandler[T any] struct {
	fn       Handler[T]
	once     bool
	executed int32 // For once handlers, atomically tracks if executed
	token    *Token
}

// Signal is a synchronous, payload-typed change event with an explicit
// observer list. Emit runs every handler on the caller's goroutine, in
// subscription order. Handler panics are not recovered.
//
// The zero value is ready to use.
type Signal[T any] struct {
	handlers []*internalHandler[T]
	mu       sync.RWMutex
}

// Token is the capability returned by Subscribe. Releasing it detaches the
// handler; it must be released exactly once.
type Token struct {
	released atomic.Bool
	release  func()
}

// Release detaches the handler. A second call returns ErrTokenReleased.
func (t *Token) Release() error {
	if !t.released.CompareAndSwap(false, true) {
		return ErrTokenReleased
	}
	t.release()
	return nil
}

// Released reports whether the token has been released.
func (t *Token) Released() bool {
	return t.released.Load()
}

// Subscribe registers a handler and returns its release token.
func (s *Signal[T]) Subscribe(handler Handler[T], opts ...SubscribeOption) *Token {
	if handler == nil {
		panic("statebus: handler cannot be nil")
	}

	cfg := &subscribeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	h := &internalHandler[T]{
		fn:   handler,
		once: cfg.once,
	}
	h.token = &Token{release: func() { s.remove(h) }}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers = append(s.handlers, h)
	return h.token
}

// Emit delivers v to every registered handler.
func (s *Signal[T]) Emit(v T) {
	s.mu.RLock()
	if len(s.handlers) == 0 {
		s.mu.RUnlock()
		return
	}

	// Copy handlers slice to avoid holding lock during execution
	handlersCopy := make([]*internalHandler[T], len(s.handlers))
	copy(handlersCopy, s.handlers)
	s.mu.RUnlock()

	for _, h := range handlersCopy {
		if h.token.Released() {
			continue
		}
		if h.once {
			if !atomic.CompareAndSwapInt32(&h.executed, 0, 1) {
				continue
			}
			_ = h.token.Release()
		}
		h.fn(v)
	}
}

// HasSubscribers returns true if any handler is registered
func (s *Signal[T]) HasSubscribers() bool {
	return s.Len() > 0
}

// Len returns the number of registered handlers
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// Clear removes all handlers. Outstanding tokens become no-ops.
func (s *Signal[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.handlers {
		h.token.released.Store(true)
	}
	s.handlers = nil
}

func (s *Signal[T]) remove(target *internalHandler[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newHandlers := make([]*internalHandler[T], 0, len(s.handlers))
	for _, h := range s.handlers {
		if h != target {
			newHandlers = append(newHandlers, h)
		}
	}
	s.handlers = newHandlers
}

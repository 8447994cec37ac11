package workflow

import (
	"context"
	"fmt"
	"sync"
)

type PhaseHandler interface {
	Phase() int
	Run(ctx context.Context, trig *Trigger) (*JobResult, error)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[int]PhaseHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[int]PhaseHandler)}
}

func (r *Registry) Register(h PhaseHandler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	p := h.Phase()
	if p < 1 {
		return fmt.Errorf("handler Phase() is invalid: %d", p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[p]; exists {
		return fmt.Errorf("handler already registered for phase=%d", p)
	}
	r.handlers[p] = h
	return nil
}

func (r *Registry) Get(phase int) (PhaseHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[phase]
	return h, ok
}

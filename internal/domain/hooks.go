package domain

import (
	"context"
	"fmt"
	"sync"

	"serviceshop/internal/core/apperror"
)

// HookEvent is a point in an entity's lifecycle.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterDelete  HookEvent = "after_delete"
)

func (e HookEvent) vetoes() bool {
	return e == BeforeCreate || e == BeforeUpdate
}

// Hook observes or vetoes a lifecycle event.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores the hooks of one entity type. Hooks registered for
// BeforeCreate and BeforeUpdate run inside the service transaction, so a
// failing hook rolls the change back.
type HookRegistry[T any] struct {
	mu    sync.RWMutex
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run calls the hooks of event in registration order and stops at the first error.
// A plain error from a before-hook becomes a validation error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	r.mu.RLock()
	hooks := r.hooks[event]
	r.mu.RUnlock()

	for _, hook := range hooks {
		err := hook(ctx, entity)
		if err == nil {
			continue
		}
		if event.vetoes() && !apperror.IsAppError(err) {
			return apperror.NewValidation(err.Error()).WithDetail("hook", string(event)).WithCause(err)
		}
		return fmt.Errorf("%s hook: %w", event, err)
	}
	return nil
}

func (r *HookRegistry[T]) OnBeforeCreate(hook Hook[T]) { r.On(BeforeCreate, hook) }

func (r *HookRegistry[T]) OnAfterCreate(hook Hook[T]) { r.On(AfterCreate, hook) }

func (r *HookRegistry[T]) OnBeforeUpdate(hook Hook[T]) { r.On(BeforeUpdate, hook) }

func (r *HookRegistry[T]) OnAfterDelete(hook Hook[T]) { r.On(AfterDelete, hook) }

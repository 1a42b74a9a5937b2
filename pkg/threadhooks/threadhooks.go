// Package threadhooks provides hook registries scoped to a unit of
// concurrent work rather than to a chain.
//
// Go has no thread-local storage and no thread-exit callbacks, so a scope is
// bound explicitly at the entry point of a task and carried in its
// context.Context:
//
//	err := threadhooks.Run(ctx, func(ctx context.Context) error {
//	    _ = threadhooks.Add(ctx, func() error { return os.RemoveAll(dir) })
//	    return doWork(ctx)
//	})
//
// The scope's hooks run when the entry point returns, panics or exits through
// runtime.Goexit. Go starts a goroutine with its own scope.
package threadhooks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/evpl/xteps-sub001/pkg/failure"
	"github.com/evpl/xteps-sub001/pkg/hooks"
	"github.com/evpl/xteps-sub001/pkg/logger"
)

// ErrNoScope is returned when a context carries no hook scope.
var ErrNoScope = errors.New("xteps: no thread hook scope in context")

var defaultOrder atomic.Int32

// SetDefaultOrder sets the process-wide order used by scopes that never
// called SetOrder.
func SetDefaultOrder(order hooks.Order) error {
	if !order.Valid() {
		return failure.NewArgumentError("threadhooks.SetDefaultOrder", "order", "unknown order "+order.String())
	}
	defaultOrder.Store(int32(order))
	return nil
}

// DefaultOrder returns the process-wide default order.
func DefaultOrder() hooks.Order {
	return hooks.Order(defaultOrder.Load())
}

type scopeKey struct{}

// scope lazily owns one hook registry.
type scope struct {
	mu       sync.Mutex
	registry *hooks.Registry
	order    *hooks.Order
}

func (s *scope) get() *hooks.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		order := DefaultOrder()
		if s.order != nil {
			order = *s.order
		}
		s.registry = hooks.New(hooks.WithOrder(order))
	}
	return s.registry
}

// trigger runs the scope's hooks on behalf of prior.
func (s *scope) trigger(prior error) error {
	s.mu.Lock()
	r := s.registry
	s.mu.Unlock()
	if r == nil {
		return prior
	}
	return r.CallHooksWith(prior)
}

func fromContext(ctx context.Context) (*scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeKey{}).(*scope)
	return s, ok
}

// Bind returns a context carrying a new scope, and the function that triggers
// it. The trigger must be called exactly once, normally deferred at the entry
// point.
func Bind(ctx context.Context) (context.Context, func(prior error) error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &scope{}
	return context.WithValue(ctx, scopeKey{}, s), s.trigger
}

// Run runs fn in a new scope and triggers the scope's hooks when fn ends.
// Hook failures are attached to fn's failure. If fn panics or calls
// runtime.Goexit, the hooks still run before the panic or exit continues.
func Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if fn == nil {
		return failure.NilArgument("threadhooks.Run", "fn")
	}
	scopedCtx, trigger := Bind(ctx)

	completed := false
	defer func() {
		if completed {
			return
		}
		p := recover()
		prior := failure.ErrAborted
		if p != nil {
			prior = failure.NewPanicError(p)
		}
		if hookErr := failure.Secondary(trigger(prior)); len(hookErr) > 0 {
			logger.L().Warn("thread hooks failed during unwinding",
				zap.Error(prior), zap.Errors("hook_errors", hookErr))
		}
		if p != nil {
			panic(p)
		}
	}()

	err = fn(scopedCtx)
	completed = true
	return trigger(err)
}

// Go runs fn in a new goroutine with its own scope. The final failure, if
// any, is sent on the returned channel, which is closed afterwards. A panic
// in fn is recovered, logged and delivered as a *failure.PanicError; a
// runtime.Goexit is delivered as failure.ErrAborted.
func Go(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	if fn == nil {
		done <- failure.NilArgument("threadhooks.Go", "fn")
		close(done)
		return done
	}
	go func() {
		finished := false
		defer func() {
			if !finished {
				done <- failure.ErrAborted
			}
			close(done)
		}()
		err := Run(ctx, func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					panicErr := failure.NewPanicError(r)
					logger.L().Error("thread hook goroutine panic recovered",
						zap.Any("panic", r), zap.ByteString("stack", panicErr.Stack))
					err = panicErr
				}
			}()
			return fn(ctx)
		})
		finished = true
		if err != nil {
			done <- err
		}
	}()
	return done
}

// Current returns the registry of the scope carried by ctx, creating it on
// first use.
func Current(ctx context.Context) (*hooks.Registry, bool) {
	s, ok := fromContext(ctx)
	if !ok {
		return nil, false
	}
	return s.get(), true
}

// Add registers a hook with NormPriority on the scope carried by ctx.
func Add(ctx context.Context, hook hooks.Hook) error {
	return AddHook(ctx, hooks.NormPriority, hook)
}

// AddHook registers a hook with a priority on the scope carried by ctx.
func AddHook(ctx context.Context, priority int, hook hooks.Hook) error {
	if err := hooks.ValidatePriority("threadhooks.AddHook", priority); err != nil {
		return err
	}
	if hook == nil {
		return failure.NilArgument("threadhooks.AddHook", "hook")
	}
	r, ok := Current(ctx)
	if !ok {
		return ErrNoScope
	}
	return r.AddHook(priority, hook)
}

// SetOrder sets the order of the scope carried by ctx. The last call wins.
func SetOrder(ctx context.Context, order hooks.Order) error {
	if !order.Valid() {
		return failure.NewArgumentError("threadhooks.SetOrder", "order", "unknown order "+order.String())
	}
	s, ok := fromContext(ctx)
	if !ok {
		return ErrNoScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = &order
	if s.registry != nil {
		return s.registry.SetOrder(order)
	}
	return nil
}

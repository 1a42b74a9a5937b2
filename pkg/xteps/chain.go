package xteps

import (
	"context"
	"io"

	"github.com/evpl/xteps-sub001/pkg/hooks"
	"github.com/evpl/xteps-sub001/pkg/resources"
	"github.com/evpl/xteps-sub001/pkg/threadhooks"
)

// Chain is a sequence of steps sharing one hook registry and one resource
// container. The first failure is sticky: cleanup has already run when it is
// recorded, later calls do nothing and Err returns it.
//
// A Chain is not safe for concurrent use.
type Chain struct {
	exec *Execution
	err  error
}

// Contexted is implemented by *Chain and *CtxChain.
type Contexted interface {
	// Contexts returns the memorized context values, newest first.
	Contexts() []any
	chain() *Chain
}

// New creates a chain with its own hook registry and resource container.
func New(opts ...Option) *Chain {
	o := resolve(opts)
	return &Chain{
		exec: newExecution(hooks.New(hooks.WithOrder(o.order)), resources.New(), o),
	}
}

func (c *Chain) chain() *Chain {
	return c
}

// Contexts returns nil: a plain chain memorizes no context.
func (c *Chain) Contexts() []any {
	return nil
}

// Err returns the failure that stopped the chain, if any.
func (c *Chain) Err() error {
	return c.err
}

// Execution returns the execution backing the chain.
func (c *Chain) Execution() *Execution {
	return c.exec
}

// Step runs fn as a step of the chain.
func (c *Chain) Step(name string, fn func() error) *Chain {
	return c.StepWithDescription(name, "", fn)
}

// StepWithDescription runs fn as a described step of the chain.
func (c *Chain) StepWithDescription(name, description string, fn func() error) *Chain {
	c.run(name, description, nil, fn)
	return c
}

func (c *Chain) run(name, description string, contexts []any, fn func() error) {
	if c.err != nil {
		return
	}
	_, c.err = Execute(c.exec, name, description, contexts, unit(fn))
}

// Hook registers a cleanup hook with normal priority.
func (c *Chain) Hook(hook hooks.Hook) *Chain {
	return c.HookWithPriority(hooks.NormPriority, hook)
}

// HookWithPriority registers a cleanup hook. An invalid argument fails the
// chain and runs the hooks and resources registered so far.
func (c *Chain) HookWithPriority(priority int, hook hooks.Hook) *Chain {
	if c.err != nil {
		return c
	}
	if err := c.exec.hooks.AddHook(priority, hook); err != nil {
		c.err = c.exec.Fail(err)
	}
	return c
}

// ThreadHook registers hook on the thread hook scope carried by ctx.
func (c *Chain) ThreadHook(ctx context.Context, hook hooks.Hook) *Chain {
	if c.err != nil {
		return c
	}
	if err := threadhooks.Add(ctx, hook); err != nil {
		c.err = c.exec.Fail(err)
	}
	return c
}

// CallHooks runs and drains the chain's hooks.
func (c *Chain) CallHooks() error {
	return c.exec.hooks.CallHooks()
}

// Close closes the chain's resources.
func (c *Chain) Close() error {
	return c.exec.resources.Close()
}

// Finish ends the chain. If no step failed, the hooks run and the resources
// are closed; otherwise the recorded failure is returned.
func (c *Chain) Finish() error {
	if c.err != nil {
		return c.err
	}
	err := c.exec.hooks.CallHooks()
	err = c.exec.resources.CloseWith(err)
	c.err = err
	return err
}

// CtxChain is a chain carrying a typed context value. Context chains derived
// from one Chain share its registry, container and failure.
type CtxChain[C any] struct {
	base     *Chain
	value    C
	previous []any
}

// WithContext returns a chain carrying value on top of the contexts of c.
func WithContext[C any](c Contexted, value C) *CtxChain[C] {
	return &CtxChain[C]{base: c.chain(), value: value, previous: c.Contexts()}
}

// WithCloseableContext is like WithContext and also registers value in the
// chain's resource container. If the chain has already failed, value is
// closed right away and close failures are attached to the chain's failure.
func WithCloseableContext[C io.Closer](c Contexted, value C) *CtxChain[C] {
	base := c.chain()
	if base.err != nil {
		r := resources.New()
		if err := r.Add(value); err == nil {
			base.err = r.CloseWith(base.err)
		}
	} else if err := base.exec.resources.Add(value); err != nil {
		base.err = base.exec.Fail(err)
	}
	return WithContext(c, value)
}

func (c *CtxChain[C]) chain() *Chain {
	return c.base
}

// Context returns the current context value.
func (c *CtxChain[C]) Context() C {
	return c.value
}

// Contexts returns all memorized context values, newest first.
func (c *CtxChain[C]) Contexts() []any {
	contexts := make([]any, 0, len(c.previous)+1)
	contexts = append(contexts, c.value)
	return append(contexts, c.previous...)
}

// WithoutContext returns the underlying chain.
func (c *CtxChain[C]) WithoutContext() *Chain {
	return c.base
}

// Err returns the failure that stopped the chain, if any.
func (c *CtxChain[C]) Err() error {
	return c.base.err
}

// Step runs fn with the current context as a step of the chain.
func (c *CtxChain[C]) Step(name string, fn func(C) error) *CtxChain[C] {
	return c.StepWithDescription(name, "", fn)
}

// StepWithDescription runs fn with the current context as a described step.
func (c *CtxChain[C]) StepWithDescription(name, description string, fn func(C) error) *CtxChain[C] {
	var body func() error
	if fn != nil {
		body = func() error { return fn(c.value) }
	}
	c.base.run(name, description, c.Contexts(), body)
	return c
}

// Hook registers a cleanup hook with normal priority.
func (c *CtxChain[C]) Hook(hook hooks.Hook) *CtxChain[C] {
	c.base.Hook(hook)
	return c
}

// HookWithPriority registers a cleanup hook with a priority.
func (c *CtxChain[C]) HookWithPriority(priority int, hook hooks.Hook) *CtxChain[C] {
	c.base.HookWithPriority(priority, hook)
	return c
}

// ThreadHook registers hook on the thread hook scope carried by ctx.
func (c *CtxChain[C]) ThreadHook(ctx context.Context, hook hooks.Hook) *CtxChain[C] {
	c.base.ThreadHook(ctx, hook)
	return c
}

// Finish ends the underlying chain.
func (c *CtxChain[C]) Finish() error {
	return c.base.Finish()
}

// StepToContext runs fn with the current context and returns a chain whose
// context is fn's result. The previous contexts stay memorized.
func StepToContext[C, R any](c *CtxChain[C], name string, fn func(C) (R, error)) *CtxChain[R] {
	var body func() (R, error)
	if fn != nil {
		body = func() (R, error) { return fn(c.value) }
	}
	return stepTo[R](c, name, body)
}

// ChainStepToContext runs fn and returns a chain whose context is fn's result.
func ChainStepToContext[R any](c *Chain, name string, fn func() (R, error)) *CtxChain[R] {
	return stepTo(c, name, fn)
}

func stepTo[R any](c Contexted, name string, body func() (R, error)) *CtxChain[R] {
	base := c.chain()
	contexts := c.Contexts()
	next := &CtxChain[R]{base: base, previous: contexts}
	if base.err != nil {
		return next
	}

	var value R
	value, base.err = Execute(base.exec, name, "", contexts, body)
	next.value = value
	return next
}

var _ Contexted = (*Chain)(nil)
var _ Contexted = (*CtxChain[any])(nil)

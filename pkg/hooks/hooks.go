// Package hooks provides the cleanup hook registry attached to a step chain.
//
// A Registry accumulates zero-argument rollback and release actions. When it
// is triggered, every registered hook runs exactly once, in the order chosen
// by the registry's Order policy:
//   - A failing (or panicking) hook never prevents the remaining hooks from running
//   - All hook failures are reported: the first is primary, the rest secondary
//   - When triggered by a prior failure, that failure stays primary
//
// The registry is drained by every trigger; hooks registered afterwards belong
// to the next trigger.
package hooks

import (
	"fmt"
	"sync"

	"github.com/evpl/xteps-sub001/pkg/failure"
)

const (
	// MinPriority is the lowest hook priority.
	MinPriority = 1
	// NormPriority is the priority used by Add.
	NormPriority = 5
	// MaxPriority is the highest hook priority.
	MaxPriority = 10
)

// Hook is a cleanup action. It may fail.
type Hook func() error

type entry struct {
	seq      uint64
	priority int
	hook     Hook
}

// Registry is an ordered collection of hooks owned by one chain.
type Registry struct {
	mu      sync.Mutex
	order   Order
	entries []entry
	seq     uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithOrder sets the invocation order policy. Unknown orders are ignored.
func WithOrder(order Order) Option {
	return func(r *Registry) {
		if order.Valid() {
			r.order = order
		}
	}
}

// New creates a new hook Registry. The default order is OrderInsertion.
func New(opts ...Option) *Registry {
	r := &Registry{order: OrderInsertion}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a hook with NormPriority.
func (r *Registry) Add(hook Hook) error {
	if hook == nil {
		return failure.NilArgument("Registry.Add", "hook")
	}
	r.add(NormPriority, hook)
	return nil
}

// AddHook registers a hook with an explicit priority in [MinPriority, MaxPriority].
func (r *Registry) AddHook(priority int, hook Hook) error {
	if err := ValidatePriority("Registry.AddHook", priority); err != nil {
		return err
	}
	if hook == nil {
		return failure.NilArgument("Registry.AddHook", "hook")
	}
	r.add(priority, hook)
	return nil
}

// ValidatePriority checks that priority is within the supported range.
func ValidatePriority(op string, priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return failure.NewArgumentError(op, "priority",
			fmt.Sprintf("%d is out of range [%d, %d]", priority, MinPriority, MaxPriority))
	}
	return nil
}

func (r *Registry) add(priority int, hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.entries = append(r.entries, entry{seq: r.seq, priority: priority, hook: hook})
}

// SetOrder changes the order policy used by later triggers.
func (r *Registry) SetOrder(order Order) error {
	if !order.Valid() {
		return failure.NewArgumentError("Registry.SetOrder", "order", fmt.Sprintf("unknown order %s", order))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = order
	return nil
}

// Order returns the current order policy.
func (r *Registry) Order() Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order
}

// Len returns the number of hooks waiting for the next trigger.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// CallHooks invokes and drains every registered hook.
// It returns nil, the single hook failure, or an *failure.Aggregate.
func (r *Registry) CallHooks() error {
	return r.CallHooksWith(nil)
}

// CallHooksWith invokes and drains every registered hook on behalf of a prior
// failure. Hook failures are attached to prior as secondary failures and the
// result is the failure that should propagate. With a nil prior it behaves
// like CallHooks.
func (r *Registry) CallHooksWith(prior error) error {
	entries := r.drain()
	if len(entries) == 0 {
		return prior
	}

	var errs []error
	for _, e := range entries {
		if err := failure.Call(e.hook); err != nil {
			errs = append(errs, err)
		}
	}
	return failure.Attach(prior, errs...)
}

// drain removes the pending entries and returns them in invocation order.
func (r *Registry) drain() []entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.entries
	r.entries = nil
	r.order.sortEntries(entries)
	return entries
}

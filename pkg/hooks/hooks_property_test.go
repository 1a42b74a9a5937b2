// Property-based tests for the hook registry.
// Total cleanup: for N hooks of which k fail, CallHooks invokes all N exactly
// once and the returned failure represents exactly k failures.
// Argument validation: invalid registrations never register anything.
package hooks

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rapid"

	"github.com/evpl/xteps-sub001/pkg/failure"
)

// TestProperty_TotalCleanup 属性测试：所有钩子都恰好执行一次
func TestProperty_TotalCleanup(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		fails := rapid.SliceOfN(rapid.Bool(), n, n).Draw(t, "fails")
		order := Order(rapid.IntRange(0, 3).Draw(t, "order"))
		withPrior := rapid.Bool().Draw(t, "withPrior")

		r := New(WithOrder(order))
		calls := make([]int, n)
		k := 0
		var firstErr error
		for i := 0; i < n; i++ {
			var hookErr error
			if fails[i] {
				hookErr = fmt.Errorf("hook %d", i)
				k++
			}
			priority := rapid.IntRange(MinPriority, MaxPriority).Draw(t, "priority")
			if err := r.AddHook(priority, func() error {
				calls[i]++
				return hookErr
			}); err != nil {
				t.Fatalf("AddHook: %v", err)
			}
		}

		var prior error
		if withPrior {
			prior = errors.New("prior")
		}
		err := r.CallHooksWith(prior)

		for i, c := range calls {
			if c != 1 {
				t.Fatalf("hook %d invoked %d times", i, c)
			}
		}

		expected := k
		if withPrior {
			expected++
			firstErr = prior
		}
		if got := failure.Count(err); got != expected {
			t.Fatalf("expected %d failures, got %d (%v)", expected, got, err)
		}
		if firstErr != nil && failure.Primary(err) != firstErr {
			t.Fatalf("prior failure is not primary: %v", err)
		}
		if r.Len() != 0 {
			t.Fatalf("registry not drained: %d", r.Len())
		}
	})
}

// TestProperty_PriorityOrder 属性测试：优先级顺序稳定
func TestProperty_PriorityOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("priority_desc invokes higher priorities first, ties in insertion order", prop.ForAll(
		func(priorities []int) bool {
			r := New(WithOrder(OrderPriorityDesc))
			type call struct{ priority, index int }
			var calls []call
			for i, p := range priorities {
				if err := r.AddHook(p, func() error {
					calls = append(calls, call{p, i})
					return nil
				}); err != nil {
					return false
				}
			}
			if err := r.CallHooks(); err != nil {
				return false
			}
			if len(calls) != len(priorities) {
				return false
			}
			return sort.SliceIsSorted(calls, func(i, j int) bool {
				if calls[i].priority != calls[j].priority {
					return calls[i].priority > calls[j].priority
				}
				return calls[i].index < calls[j].index
			})
		},
		gen.SliceOf(gen.IntRange(MinPriority, MaxPriority)),
	))

	properties.Property("insertion_reverse is the exact reverse of insertion", prop.ForAll(
		func(n int) bool {
			r := New(WithOrder(OrderInsertionReverse))
			var calls []int
			for i := 0; i < n; i++ {
				if err := r.Add(func() error {
					calls = append(calls, i)
					return nil
				}); err != nil {
					return false
				}
			}
			if err := r.CallHooks(); err != nil {
				return false
			}
			for i, c := range calls {
				if c != n-1-i {
					return false
				}
			}
			return len(calls) == n
		},
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

// TestProperty_ArgumentValidation 属性测试：非法参数不会注册钩子
func TestProperty_ArgumentValidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("out of range priority is rejected", prop.ForAll(
		func(priority int) bool {
			r := New()
			err := r.AddHook(priority, func() error { return nil })
			inRange := priority >= MinPriority && priority <= MaxPriority
			if inRange {
				return err == nil && r.Len() == 1
			}
			return failure.IsArgumentError(err) && r.Len() == 0
		},
		gen.IntRange(-100, 100),
	))

	properties.Property("nil hook is rejected for any priority", prop.ForAll(
		func(priority int) bool {
			r := New()
			return failure.IsArgumentError(r.AddHook(priority, nil)) && r.Len() == 0
		},
		gen.IntRange(-100, 100),
	))

	properties.TestingRun(t)
}

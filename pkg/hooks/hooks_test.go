package hooks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evpl/xteps-sub001/pkg/failure"
)

// recorder records hook invocations in order.
type recorder struct {
	calls []string
}

func (r *recorder) hook(name string, err error) Hook {
	return func() error {
		r.calls = append(r.calls, name)
		return err
	}
}

func TestRegistry_CallHooks_SingleFailure(t *testing.T) {
	rec := &recorder{}
	x := errors.New("X")

	r := New()
	require.NoError(t, r.Add(rec.hook("H1", nil)))
	require.NoError(t, r.Add(rec.hook("H2", x)))
	require.NoError(t, r.Add(rec.hook("H3", nil)))

	err := r.CallHooks()

	assert.Equal(t, []string{"H1", "H2", "H3"}, rec.calls)
	assert.Same(t, x, err)
	assert.Empty(t, failure.Secondary(err))
}

func TestRegistry_CallHooks_TwoFailures(t *testing.T) {
	rec := &recorder{}
	a := errors.New("A")
	b := errors.New("B")

	r := New()
	require.NoError(t, r.Add(rec.hook("H1", a)))
	require.NoError(t, r.Add(rec.hook("H2", b)))

	err := r.CallHooks()

	assert.Equal(t, []string{"H1", "H2"}, rec.calls)
	assert.Same(t, a, failure.Primary(err))
	assert.Equal(t, []error{b}, failure.Secondary(err))
}

func TestRegistry_CallHooksWith_PriorStaysPrimary(t *testing.T) {
	prior := errors.New("step failed")
	hookErr := errors.New("rollback failed")
	rec := &recorder{}

	r := New()
	require.NoError(t, r.Add(rec.hook("H1", hookErr)))
	require.NoError(t, r.Add(rec.hook("H2", nil)))

	err := r.CallHooksWith(prior)

	assert.Equal(t, []string{"H1", "H2"}, rec.calls)
	assert.Same(t, prior, failure.Primary(err))
	assert.Equal(t, []error{hookErr}, failure.Secondary(err))
}

func TestRegistry_CallHooksWith_NoHookFailure(t *testing.T) {
	prior := errors.New("step failed")
	r := New()
	require.NoError(t, r.Add(func() error { return nil }))

	assert.Same(t, prior, r.CallHooksWith(prior))
}

func TestRegistry_DrainsAfterTrigger(t *testing.T) {
	count := 0
	r := New()
	require.NoError(t, r.Add(func() error { count++; return nil }))

	require.NoError(t, r.CallHooks())
	require.NoError(t, r.CallHooks())

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_HookAddedDuringTriggerRunsNextTime(t *testing.T) {
	var calls []string
	r := New()
	require.NoError(t, r.Add(func() error {
		calls = append(calls, "outer")
		return r.Add(func() error {
			calls = append(calls, "inner")
			return nil
		})
	}))

	require.NoError(t, r.CallHooks())
	assert.Equal(t, []string{"outer"}, calls)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.CallHooks())
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestRegistry_PanickingHook(t *testing.T) {
	rec := &recorder{}
	r := New()
	require.NoError(t, r.Add(func() error { panic("bad hook") }))
	require.NoError(t, r.Add(rec.hook("after", nil)))

	err := r.CallHooks()

	assert.Equal(t, []string{"after"}, rec.calls)
	assert.True(t, failure.IsPanicError(err))
}

func TestRegistry_Orders(t *testing.T) {
	tests := []struct {
		name     string
		order    Order
		expected []string
	}{
		{"insertion", OrderInsertion, []string{"a5", "b9", "c1", "d9"}},
		{"insertion reverse", OrderInsertionReverse, []string{"d9", "c1", "b9", "a5"}},
		{"priority asc", OrderPriorityAsc, []string{"c1", "a5", "b9", "d9"}},
		{"priority desc", OrderPriorityDesc, []string{"b9", "d9", "a5", "c1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			r := New(WithOrder(tt.order))
			require.NoError(t, r.AddHook(5, rec.hook("a5", nil)))
			require.NoError(t, r.AddHook(9, rec.hook("b9", nil)))
			require.NoError(t, r.AddHook(1, rec.hook("c1", nil)))
			require.NoError(t, r.AddHook(9, rec.hook("d9", nil)))

			require.NoError(t, r.CallHooks())
			assert.Equal(t, tt.expected, rec.calls)
		})
	}
}

func TestRegistry_SetOrder(t *testing.T) {
	rec := &recorder{}
	r := New()
	require.NoError(t, r.Add(rec.hook("first", nil)))
	require.NoError(t, r.Add(rec.hook("second", nil)))

	require.NoError(t, r.SetOrder(OrderInsertionReverse))
	assert.Equal(t, OrderInsertionReverse, r.Order())

	require.NoError(t, r.CallHooks())
	assert.Equal(t, []string{"second", "first"}, rec.calls)

	err := r.SetOrder(Order(42))
	assert.True(t, failure.IsArgumentError(err))
	assert.Equal(t, OrderInsertionReverse, r.Order())
}

func TestRegistry_ArgumentValidation(t *testing.T) {
	r := New()

	assert.True(t, failure.IsArgumentError(r.Add(nil)))
	assert.True(t, failure.IsArgumentError(r.AddHook(NormPriority, nil)))
	assert.True(t, failure.IsArgumentError(r.AddHook(MinPriority-1, func() error { return nil })))
	assert.True(t, failure.IsArgumentError(r.AddHook(MaxPriority+1, func() error { return nil })))
	assert.Equal(t, 0, r.Len())
}

func TestParseOrder(t *testing.T) {
	for o, name := range orderNames {
		parsed, err := ParseOrder(name)
		require.NoError(t, err)
		assert.Equal(t, o, parsed)
	}

	parsed, err := ParseOrder(" Priority-Desc ")
	require.NoError(t, err)
	assert.Equal(t, OrderPriorityDesc, parsed)

	_, err = ParseOrder("random")
	assert.True(t, failure.IsArgumentError(err))
	assert.Equal(t, "Order(42)", Order(42).String())
}

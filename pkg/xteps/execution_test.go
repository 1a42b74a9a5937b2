package xteps

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/evpl/xteps-sub001/pkg/failure"
	"github.com/evpl/xteps-sub001/pkg/hooks"
	"github.com/evpl/xteps-sub001/pkg/report"
	"github.com/evpl/xteps-sub001/pkg/resources"
)

// recordingListener collects step events.
type recordingListener struct {
	mu     sync.Mutex
	events []*report.StepEvent
}

func (r *recordingListener) Name() string { return "recording" }

func (r *recordingListener) StepStarted(e *report.StepEvent) { r.add(e) }
func (r *recordingListener) StepPassed(e *report.StepEvent)  { r.add(e) }
func (r *recordingListener) StepFailed(e *report.StepEvent)  { r.add(e) }

func (r *recordingListener) add(e *report.StepEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingListener) statuses() []report.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]report.Status, len(r.events))
	for i, e := range r.events {
		out[i] = e.Status
	}
	return out
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func testOptions(l *recordingListener) []Option {
	return []Option{
		WithReporter(report.NewReporter(l)),
		WithLogger(zap.NewNop()),
		WithExceptionHandler(report.ExceptionHandlerFunc(func(error) {})),
	}
}

func TestExecute_SuccessReturnsResultWithoutCleanup(t *testing.T) {
	l := &recordingListener{}
	h := hooks.New()
	r := resources.New()
	hookCalled := false
	require.NoError(t, h.Add(func() error { hookCalled = true; return nil }))

	e := NewExecution(h, r, testOptions(l)...)
	result, err := Execute(e, "compute", "", nil, func() (int, error) { return 7, nil })

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.False(t, hookCalled)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, []report.Status{report.StatusStarted, report.StatusPassed}, l.statuses())
}

func TestExecute_FailureKeepsIdentity(t *testing.T) {
	bodyErr := errors.New("element not found")
	h := hooks.New()
	require.NoError(t, h.Add(func() error { return nil }))

	e := NewExecution(h, resources.New(), testOptions(&recordingListener{})...)
	result, err := Execute(e, "click", "", nil, func() (string, error) { return "partial", bodyErr })

	assert.Same(t, bodyErr, err)
	assert.Equal(t, "", result)
	assert.Equal(t, 0, h.Len())
}

func TestExecute_HooksRunBeforeResourcesClose(t *testing.T) {
	var calls []string
	h := hooks.New()
	r := resources.New()
	require.NoError(t, r.Add(closerFunc(func() error { calls = append(calls, "resource"); return nil })))
	require.NoError(t, h.Add(func() error { calls = append(calls, "hook"); return nil }))

	e := NewExecution(h, r, testOptions(&recordingListener{})...)
	_, err := Execute(e, "fail", "", nil, func() (struct{}, error) { return struct{}{}, errors.New("x") })

	require.Error(t, err)
	assert.Equal(t, []string{"hook", "resource"}, calls)
}

func TestExecute_CleanupFailuresAreSecondary(t *testing.T) {
	bodyErr := errors.New("body")
	hookErr := errors.New("hook")
	closeErr := errors.New("close")

	h := hooks.New()
	r := resources.New()
	require.NoError(t, h.Add(func() error { return hookErr }))
	require.NoError(t, r.AddFunc(func() error { return closeErr }))

	e := NewExecution(h, r, testOptions(&recordingListener{})...)
	_, err := Execute(e, "fail", "", nil, func() (int, error) { return 0, bodyErr })

	assert.Same(t, bodyErr, failure.Primary(err))
	assert.Equal(t, []error{hookErr, closeErr}, failure.Secondary(err))
	assert.ErrorIs(t, err, bodyErr)
}

func TestExecute_ArgumentErrorsRunCleanup(t *testing.T) {
	tests := []struct {
		name string
		run  func(e *Execution) error
	}{
		{"blank name", func(e *Execution) error {
			_, err := Execute(e, "  ", "", nil, func() (int, error) { return 1, nil })
			return err
		}},
		{"nil body", func(e *Execution) error {
			_, err := Execute[int](e, "step", "", nil, nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &recordingListener{}
			h := hooks.New()
			r := resources.New()
			hookCalled, closed := false, false
			require.NoError(t, h.Add(func() error { hookCalled = true; return nil }))
			require.NoError(t, r.AddFunc(func() error { closed = true; return nil }))

			err := tt.run(NewExecution(h, r, testOptions(l)...))

			assert.True(t, failure.IsArgumentError(err))
			assert.True(t, hookCalled)
			assert.True(t, closed)
			assert.Empty(t, l.statuses())
		})
	}
}

func TestExecute_PanicRunsCleanupAndRepanics(t *testing.T) {
	l := &recordingListener{}
	h := hooks.New()
	hookCalled := false
	require.NoError(t, h.Add(func() error { hookCalled = true; return nil }))
	e := NewExecution(h, nil, testOptions(l)...)

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = Execute(e, "explode", "", nil, func() (int, error) { panic("boom") })
	})
	assert.True(t, hookCalled)
	assert.Equal(t, []report.Status{report.StatusStarted, report.StatusFailed}, l.statuses())
}

func TestExecute_GoexitRunsCleanup(t *testing.T) {
	l := &recordingListener{}
	r := resources.New()
	closed := false
	require.NoError(t, r.AddFunc(func() error { closed = true; return nil }))
	e := NewExecution(nil, r, testOptions(l)...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Execute(e, "fail now", "", nil, func() (int, error) {
			runtime.Goexit()
			return 0, nil
		})
	}()
	<-done

	assert.True(t, closed)
	assert.Equal(t, []report.Status{report.StatusStarted, report.StatusBroken}, l.statuses())
}

func TestExecute_ExceptionHandlerSeesFailureOnce(t *testing.T) {
	bodyErr := errors.New("body")
	var handled []error
	e := NewExecution(nil, nil,
		WithReporter(report.NewReporter()),
		WithLogger(zap.NewNop()),
		WithExceptionHandler(report.ExceptionHandlerFunc(func(err error) { handled = append(handled, err) })))

	_, err := Execute(e, "fail", "", nil, func() (int, error) { return 0, bodyErr })

	assert.Same(t, bodyErr, err)
	require.Len(t, handled, 1)
	assert.Same(t, bodyErr, handled[0])
}

func TestExecute_NameFormatterSeesContexts(t *testing.T) {
	l := &recordingListener{}
	opts := append(testOptions(l), WithNameFormatter(report.NameFormatterFunc(func(name string, contexts []any) string {
		return name + " " + contexts[0].(string)
	})))
	e := NewExecution(nil, nil, opts...)

	_, err := Execute(e, "open", "", []any{"/login"}, func() (int, error) { return 0, nil })

	require.NoError(t, err)
	assert.Equal(t, "open /login", l.events[0].Record.Name)
	assert.Equal(t, []any{"/login"}, l.events[0].Record.Contexts)
}

func TestExecute_LogsStateTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := NewExecution(hooks.New(), nil,
		WithReporter(report.NoopReporter{}),
		WithLogger(zap.New(core)))

	_, _ = Execute(e, "fail", "", nil, func() (int, error) { return 0, errors.New("x") })

	var states []string
	for _, entry := range logs.FilterMessage("step state").All() {
		states = append(states, entry.ContextMap()["state"].(string))
	}
	assert.Equal(t, []string{StateRunning, StateFailed, StateCleanupRunning, StateCleanupDone}, states)
}

func TestExecution_Fail(t *testing.T) {
	cause := errors.New("cause")
	r := resources.New()
	require.NoError(t, r.AddFunc(func() error { return nil }))
	e := NewExecution(nil, r, WithLogger(zap.NewNop()))

	assert.Same(t, cause, e.Fail(cause))
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, e.Hooks())
	assert.Same(t, r, e.Resources())
}

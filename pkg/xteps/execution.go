package xteps

import (
	"strings"

	"go.uber.org/zap"

	"github.com/evpl/xteps-sub001/pkg/failure"
	"github.com/evpl/xteps-sub001/pkg/hooks"
	"github.com/evpl/xteps-sub001/pkg/report"
	"github.com/evpl/xteps-sub001/pkg/resources"
)

// Step execution states, as they appear in debug logs.
const (
	StateRunning        = "running"
	StateSucceeded      = "succeeded"
	StateFailed         = "failed"
	StateCleanupRunning = "cleanup_running"
	StateCleanupDone    = "cleanup_done"
)

// Execution runs step bodies through a reporter and drives the cleanup of a
// hook registry and a resource container when a body fails. Either of them
// may be nil.
type Execution struct {
	hooks     *hooks.Registry
	resources *resources.SafeResources
	reporter  report.StepReporter
	handler   report.ExceptionHandler
	formatter report.NameFormatter
	logger    *zap.Logger
}

// NewExecution creates an Execution over h and r. Options override the
// process-wide settings.
func NewExecution(h *hooks.Registry, r *resources.SafeResources, opts ...Option) *Execution {
	return newExecution(h, r, resolve(opts))
}

func newExecution(h *hooks.Registry, r *resources.SafeResources, o options) *Execution {
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.reporter == nil {
		o.reporter = report.NoopReporter{}
	}
	if o.formatter == nil {
		o.formatter = report.PlainNameFormatter{}
	}
	return &Execution{
		hooks:     h,
		resources: r,
		reporter:  o.reporter,
		handler:   o.handler,
		formatter: o.formatter,
		logger:    o.logger,
	}
}

// Hooks returns the hook registry, which may be nil.
func (e *Execution) Hooks() *hooks.Registry {
	return e.hooks
}

// Resources returns the resource container, which may be nil.
func (e *Execution) Resources() *resources.SafeResources {
	return e.resources
}

// Fail runs the cleanup path on behalf of err and returns err with any
// cleanup failures attached.
func (e *Execution) Fail(err error) error {
	return e.cleanup("", err)
}

// cleanup runs the hooks first and closes the resources afterwards.
func (e *Execution) cleanup(step string, prior error) error {
	fields := []zap.Field{zap.String("step", step)}
	if e.hooks != nil {
		fields = append(fields, zap.Int("hooks", e.hooks.Len()))
	}
	if e.resources != nil {
		fields = append(fields, zap.Int("resources", e.resources.Len()))
	}
	e.logger.Debug("step state", append(fields, zap.String("state", StateCleanupRunning), zap.Error(prior))...)

	err := prior
	if e.hooks != nil {
		err = e.hooks.CallHooksWith(err)
	}
	if e.resources != nil {
		err = e.resources.CloseWith(err)
	}

	e.logger.Debug("step state",
		zap.String("step", step),
		zap.String("state", StateCleanupDone),
		zap.Int("secondary", len(failure.Secondary(err))))
	return err
}

// Execute runs body as a step named name and returns its result.
//
// On failure the chain's hooks run and its resources are closed before the
// failure is returned. Unless cleanup fails as well, the returned error is
// the very value body returned. Cleanup failures are attached to it as
// secondary failures. A panic in body runs the same cleanup and then
// re-panics with the original value; runtime.Goexit runs the cleanup and
// lets the goroutine exit.
//
// A blank name or a nil body returns a *failure.ArgumentError after running
// the cleanup. A nil e uses the process-wide settings with no cleanup.
func Execute[T any](e *Execution, name, description string, contexts []any, body func() (T, error)) (result T, err error) {
	if e == nil {
		e = newExecution(nil, nil, currentOptions())
	}
	if strings.TrimSpace(name) == "" {
		return result, e.cleanup(name, failure.NewArgumentError("xteps.Execute", "name", "name is blank"))
	}
	if body == nil {
		return result, e.cleanup(name, failure.NilArgument("xteps.Execute", "body"))
	}

	stepName := e.formatter.Format(name, contexts)
	e.logger.Debug("step state", zap.String("step", stepName), zap.String("state", StateRunning))

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
		e.logger.Debug("step state", zap.String("step", stepName), zap.String("state", StateFailed), zap.Error(prior))
		if cleanupErrs := failure.Secondary(e.cleanup(stepName, prior)); len(cleanupErrs) > 0 {
			e.logger.Warn("step cleanup failed during unwinding",
				zap.String("step", stepName), zap.Errors("cleanup_errors", cleanupErrs))
		}
		if p != nil {
			panic(p)
		}
	}()

	value, err := e.reporter.Report(e.hooks, e.handler, stepName, description, contexts, func() (any, error) {
		return body()
	})
	completed = true

	if err != nil {
		e.logger.Debug("step state", zap.String("step", stepName), zap.String("state", StateFailed), zap.Error(err))
		return result, e.cleanup(stepName, err)
	}
	e.logger.Debug("step state", zap.String("step", stepName), zap.String("state", StateSucceeded))
	if value != nil {
		result, _ = value.(T)
	}
	return result, nil
}

// Step runs fn as a step with the process-wide settings.
func Step(name string, fn func() error) error {
	return StepWithDescription(name, "", fn)
}

// StepWithDescription runs fn as a described step with the process-wide
// settings.
func StepWithDescription(name, description string, fn func() error) error {
	_, err := Execute(nil, name, description, nil, unit(fn))
	return err
}

// StepTo runs fn as a step with the process-wide settings and returns its
// result.
func StepTo[T any](name string, fn func() (T, error)) (T, error) {
	return Execute(nil, name, "", nil, fn)
}

func unit(fn func() error) func() (struct{}, error) {
	if fn == nil {
		return nil
	}
	return func() (struct{}, error) {
		return struct{}{}, fn()
	}
}

package report

import (
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evpl/xteps-sub001/pkg/failure"
	"github.com/evpl/xteps-sub001/pkg/hooks"
	"github.com/evpl/xteps-sub001/pkg/logger"
	"github.com/evpl/xteps-sub001/pkg/resources"
)

// Reporter is the default StepReporter. It notifies its listeners in
// registration order.
type Reporter struct {
	mu        sync.RWMutex
	listeners []Listener
	closers   *resources.SafeResources
	logger    *zap.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithLogger sets the logger used for listener failures.
func WithLogger(l *zap.Logger) ReporterOption {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReporter creates a Reporter notifying the given listeners.
func NewReporter(listeners ...Listener) *Reporter {
	return NewReporterWithOptions(listeners)
}

// NewReporterWithOptions creates a Reporter with options.
func NewReporterWithOptions(listeners []Listener, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		closers: resources.New(),
		logger:  logger.L(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, l := range listeners {
		r.AddListener(l)
	}
	return r
}

// AddListener registers a listener. Listeners implementing io.Closer are
// closed by Close. Nil listeners are ignored.
func (r *Reporter) AddListener(l Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()

	if c, ok := l.(io.Closer); ok {
		_ = r.closers.Add(c)
	}
}

// Listeners returns a copy of the registered listeners.
func (r *Reporter) Listeners() []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

// Close closes every listener implementing io.Closer.
func (r *Reporter) Close() error {
	return r.closers.Close()
}

// Report implements StepReporter.
func (r *Reporter) Report(
	h *hooks.Registry,
	handler ExceptionHandler,
	name string,
	description string,
	contexts []any,
	action func() (any, error),
) (result any, err error) {
	record := NewStepRecord(h, name, description, contexts)
	r.notify(&StepEvent{Record: record, Status: StatusStarted}, Listener.StepStarted)

	completed := false
	defer func() {
		if completed {
			return
		}
		// action panicked or called runtime.Goexit
		p := recover()
		event := &StepEvent{Record: record, Duration: time.Since(record.StartTime)}
		if p != nil {
			event.Status = StatusFailed
			event.Err = failure.NewPanicError(p)
		} else {
			event.Status = StatusBroken
			event.Err = failure.ErrAborted
		}
		handle(handler, event.Err)
		r.notify(event, Listener.StepFailed)
		if p != nil {
			panic(p)
		}
	}()

	result, err = action()
	completed = true

	event := &StepEvent{Record: record, Duration: time.Since(record.StartTime)}
	if err != nil {
		event.Status = StatusFailed
		event.Err = err
		handle(handler, err)
		r.notify(event, Listener.StepFailed)
		return result, err
	}

	event.Status = StatusPassed
	r.notify(event, Listener.StepPassed)
	return result, nil
}

// notify delivers event to every listener. A panicking listener is logged
// and skipped.
func (r *Reporter) notify(event *StepEvent, fn func(Listener, *StepEvent)) {
	for _, l := range r.Listeners() {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Warn("step listener panicked",
						zap.String("listener", l.Name()),
						zap.String("step", event.Record.Name),
						zap.Any("panic", p))
				}
			}()
			fn(l, event)
		}()
	}
}

func handle(handler ExceptionHandler, err error) {
	if handler != nil {
		handler.Handle(err)
	}
}

// NoopReporter runs actions without notifying anyone. Failures still reach
// the exception handler.
type NoopReporter struct{}

// Report implements StepReporter.
func (NoopReporter) Report(
	_ *hooks.Registry,
	handler ExceptionHandler,
	_ string,
	_ string,
	_ []any,
	action func() (any, error),
) (any, error) {
	result, err := action()
	if err != nil {
		handle(handler, err)
	}
	return result, err
}

// LogExceptionHandler logs step failures at debug level.
type LogExceptionHandler struct {
	Logger *zap.Logger
}

// Handle implements ExceptionHandler.
func (h LogExceptionHandler) Handle(err error) {
	l := h.Logger
	if l == nil {
		l = logger.L()
	}
	l.Debug("step failure", zap.Error(err), zap.Int("failures", failure.Count(err)))
}

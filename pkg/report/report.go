package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/evpl/xteps-sub001/pkg/hooks"
)

// StepReporter executes a step action and notifies listeners about it.
// Implementations must invoke action exactly once and return its failure
// unchanged.
type StepReporter interface {
	Report(
		h *hooks.Registry,
		handler ExceptionHandler,
		name string,
		description string,
		contexts []any,
		action func() (any, error),
	) (any, error)
}

// ExceptionHandler observes a step failure before it is returned.
// It must not suppress the failure.
type ExceptionHandler interface {
	Handle(err error)
}

// ExceptionHandlerFunc adapts a function to ExceptionHandler.
type ExceptionHandlerFunc func(err error)

// Handle implements ExceptionHandler.
func (f ExceptionHandlerFunc) Handle(err error) {
	f(err)
}

// NameFormatter produces the reported step name from a name template and the
// current context values.
type NameFormatter interface {
	Format(name string, contexts []any) string
}

// NameFormatterFunc adapts a function to NameFormatter.
type NameFormatterFunc func(name string, contexts []any) string

// Format implements NameFormatter.
func (f NameFormatterFunc) Format(name string, contexts []any) string {
	return f(name, contexts)
}

// PlainNameFormatter returns names unchanged.
type PlainNameFormatter struct{}

// Format implements NameFormatter.
func (PlainNameFormatter) Format(name string, _ []any) string {
	return name
}

// Status is the state of a reported step.
type Status string

const (
	// StatusStarted is reported before the action runs.
	StatusStarted Status = "started"
	// StatusPassed is reported when the action returns no error.
	StatusPassed Status = "passed"
	// StatusFailed is reported when the action returns an error or panics.
	StatusFailed Status = "failed"
	// StatusBroken is reported when the action leaves through runtime.Goexit.
	StatusBroken Status = "broken"
)

// StepRecord describes one step execution. It lives only for the duration of
// the step.
type StepRecord struct {
	ID          uuid.UUID
	Name        string
	Description string
	// Contexts holds the chain's context values, newest first.
	Contexts  []any
	Hooks     *hooks.Registry
	StartTime time.Time
}

// NewStepRecord creates a record with a fresh ID and the current time.
func NewStepRecord(h *hooks.Registry, name, description string, contexts []any) *StepRecord {
	return &StepRecord{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Contexts:    contexts,
		Hooks:       h,
		StartTime:   time.Now(),
	}
}

// StepEvent is delivered to listeners.
type StepEvent struct {
	Record   *StepRecord
	Status   Status
	Duration time.Duration
	Err      error
}

// Listener receives step notifications.
type Listener interface {
	// Name returns the listener name.
	Name() string
	StepStarted(event *StepEvent)
	StepPassed(event *StepEvent)
	StepFailed(event *StepEvent)
}

// Package failure provides the failure values shared by the xteps cleanup engine.
//
// A step failure is never translated or wrapped by the engine. When cleanup
// (hooks, resource release) fails too, the extra failures are attached to the
// original one as secondary failures:
//
//	err := failure.Attach(stepErr, hookErr1, hookErr2)
//	failure.Primary(err)   // stepErr
//	failure.Secondary(err) // [hookErr1 hookErr2]
//	errors.Is(err, stepErr) // true
//
// When there is no prior failure, Merge picks the first failure as primary.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Aggregate is a primary failure carrying an ordered list of secondary failures.
type Aggregate struct {
	Primary   error
	Secondary []error
}

// Error implements the error interface.
func (a *Aggregate) Error() string {
	if a.Primary == nil {
		return "<nil>"
	}
	if len(a.Secondary) == 0 {
		return a.Primary.Error()
	}
	msgs := make([]string, 0, len(a.Secondary))
	for _, s := range a.Secondary {
		msgs = append(msgs, s.Error())
	}
	return fmt.Sprintf("%s (+%d secondary: %s)", a.Primary.Error(), len(a.Secondary), strings.Join(msgs, "; "))
}

// Unwrap returns the primary failure.
// Secondary failures are only reachable through Secondary.
func (a *Aggregate) Unwrap() error {
	return a.Primary
}

// Attach attaches secondary failures to prior and returns the failure that
// should propagate.
//
// If no secondary failure is given, prior is returned unchanged. If prior is
// already an *Aggregate it is extended in place and the same pointer is
// returned. If prior is nil, the result is Merge(secondary...).
func Attach(prior error, secondary ...error) error {
	secondary = compact(secondary)
	if len(secondary) == 0 {
		return prior
	}
	if prior == nil {
		return Merge(secondary...)
	}
	if agg, ok := prior.(*Aggregate); ok {
		agg.Secondary = append(agg.Secondary, secondary...)
		return agg
	}
	return &Aggregate{Primary: prior, Secondary: secondary}
}

// Merge combines failures that have no prior failure to attach to.
// Nil entries are ignored. Zero failures give nil, one failure is returned as
// is, and more give an *Aggregate with the first one as primary.
func Merge(errs ...error) error {
	errs = compact(errs)
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	rest := make([]error, len(errs)-1)
	copy(rest, errs[1:])
	return &Aggregate{Primary: errs[0], Secondary: rest}
}

// Primary returns the primary failure of err.
func Primary(err error) error {
	if agg, ok := err.(*Aggregate); ok {
		return agg.Primary
	}
	return err
}

// Secondary returns the secondary failures attached to err, if any.
func Secondary(err error) []error {
	if agg, ok := err.(*Aggregate); ok {
		out := make([]error, len(agg.Secondary))
		copy(out, agg.Secondary)
		return out
	}
	return nil
}

// All returns the primary failure followed by every secondary failure.
func All(err error) []error {
	if err == nil {
		return nil
	}
	return append([]error{Primary(err)}, Secondary(err)...)
}

// Count returns how many failures err represents.
func Count(err error) int {
	return len(All(err))
}

func compact(errs []error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

// IsAggregate checks if err carries secondary failures.
func IsAggregate(err error) bool {
	var agg *Aggregate
	return errors.As(err, &agg) && len(agg.Secondary) > 0
}

// Package report provides the step reporting collaborators of the xteps engine.
//
// The package defines the contracts consumed by the execution wrapper:
//
//   - StepReporter: invokes a step action and notifies listeners
//   - ExceptionHandler: observes a failure before it is returned
//   - NameFormatter: produces the reported step name
//
// and the default implementations:
//
//   - Reporter: fans step events out to Listeners
//   - LogListener: structured zap logging
//   - StatsListener: HDR histogram of step durations
//   - JSONListener: one JSON document per event
//
// Listeners can be created by type through a Registry:
//
//	registry := report.NewDefaultRegistry()
//	l, err := registry.Create(report.ListenerTypeStats, map[string]any{"max_duration": "10m"})
//	reporter := report.NewReporter(l)
//	defer reporter.Close()
package report

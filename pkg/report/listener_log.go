package report

import (
	"go.uber.org/zap"

	"github.com/evpl/xteps-sub001/pkg/logger"
)

// LogListener writes step events to a zap logger.
type LogListener struct {
	logger *zap.Logger
}

// NewLogListener creates a LogListener. A nil logger means the global one.
func NewLogListener(l *zap.Logger) *LogListener {
	if l == nil {
		l = logger.L()
	}
	return &LogListener{logger: l.Named("xteps")}
}

// Name returns the listener name.
func (l *LogListener) Name() string {
	return string(ListenerTypeLog)
}

// StepStarted implements Listener.
func (l *LogListener) StepStarted(event *StepEvent) {
	l.logger.Debug("step started", l.fields(event)...)
}

// StepPassed implements Listener.
func (l *LogListener) StepPassed(event *StepEvent) {
	l.logger.Info("step passed", append(l.fields(event), zap.Duration("duration", event.Duration))...)
}

// StepFailed implements Listener.
func (l *LogListener) StepFailed(event *StepEvent) {
	l.logger.Warn("step "+string(event.Status), append(l.fields(event),
		zap.Duration("duration", event.Duration),
		zap.Error(event.Err),
	)...)
}

func (l *LogListener) fields(event *StepEvent) []zap.Field {
	rec := event.Record
	fields := []zap.Field{
		zap.String("step_id", rec.ID.String()),
		zap.String("step", rec.Name),
	}
	if rec.Description != "" {
		fields = append(fields, zap.String("description", rec.Description))
	}
	if len(rec.Contexts) > 0 {
		fields = append(fields, zap.Int("contexts", len(rec.Contexts)))
	}
	if rec.Hooks != nil {
		fields = append(fields, zap.Int("hooks", rec.Hooks.Len()))
	}
	return fields
}

package xteps

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/evpl/xteps-sub001/pkg/config"
	"github.com/evpl/xteps-sub001/pkg/hooks"
	"github.com/evpl/xteps-sub001/pkg/logger"
	"github.com/evpl/xteps-sub001/pkg/report"
	"github.com/evpl/xteps-sub001/pkg/threadhooks"
)

// options holds the collaborators of an Execution.
type options struct {
	order     hooks.Order
	reporter  report.StepReporter
	handler   report.ExceptionHandler
	formatter report.NameFormatter
	logger    *zap.Logger
}

// Option configures a Chain or an Execution.
type Option func(*options)

// WithOrder sets the hook order policy of a chain.
func WithOrder(order hooks.Order) Option {
	return func(o *options) {
		if order.Valid() {
			o.order = order
		}
	}
}

// WithReporter sets the step reporter.
func WithReporter(r report.StepReporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithExceptionHandler sets the exception handler.
func WithExceptionHandler(h report.ExceptionHandler) Option {
	return func(o *options) {
		if h != nil {
			o.handler = h
		}
	}
}

// WithNameFormatter sets the step name formatter.
func WithNameFormatter(f report.NameFormatter) Option {
	return func(o *options) {
		if f != nil {
			o.formatter = f
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

var (
	settingsMu sync.RWMutex
	settings   *options
)

// currentOptions returns a copy of the process-wide defaults, creating them
// on first use.
func currentOptions() options {
	settingsMu.RLock()
	s := settings
	settingsMu.RUnlock()
	if s != nil {
		return *s
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()
	if settings == nil {
		l := logger.L()
		settings = &options{
			order:     hooks.OrderInsertion,
			reporter:  report.NewReporterWithOptions([]report.Listener{report.NewLogListener(l)}, report.WithLogger(l)),
			handler:   report.LogExceptionHandler{Logger: l},
			formatter: report.PlainNameFormatter{},
			logger:    l,
		}
	}
	return *settings
}

func resolve(opts []Option) options {
	o := currentOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Configure replaces the process-wide defaults from cfg. The previous
// reporter is closed if it holds closeable listeners.
func Configure(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	order, err := hooks.ParseOrder(cfg.Hooks.Order)
	if err != nil {
		return err
	}
	threadOrder, err := hooks.ParseOrder(cfg.Hooks.ThreadOrder)
	if err != nil {
		return err
	}

	l := logger.New(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})

	var reporter report.StepReporter = report.NoopReporter{}
	if cfg.Enabled {
		reporter, err = newReporter(cfg, l)
		if err != nil {
			return err
		}
	}

	if err := threadhooks.SetDefaultOrder(threadOrder); err != nil {
		return err
	}
	logger.SetLogger(l)

	settingsMu.Lock()
	previous := settings
	settings = &options{
		order:     order,
		reporter:  reporter,
		handler:   report.LogExceptionHandler{Logger: l},
		formatter: report.PlainNameFormatter{},
		logger:    l,
	}
	settingsMu.Unlock()

	if previous != nil {
		if c, ok := previous.reporter.(io.Closer); ok {
			if err := c.Close(); err != nil {
				l.Warn("close previous step reporter", zap.Error(err))
			}
		}
	}

	l.Debug("xteps configured",
		zap.Bool("enabled", cfg.Enabled),
		zap.Stringer("order", order),
		zap.Stringer("thread_order", threadOrder),
		zap.Strings("listeners", cfg.Report.Listeners))
	return nil
}

// ConfigureFromFile loads a YAML configuration file and applies it.
func ConfigureFromFile(path string) error {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	return Configure(cfg)
}

func newReporter(cfg *config.Config, l *zap.Logger) (*report.Reporter, error) {
	registry := report.NewDefaultRegistry()
	listenerConfig := map[string]any{
		"path":         cfg.Report.JSONPath,
		"max_duration": cfg.Report.StatsMaxDuration,
	}

	listeners := make([]report.Listener, 0, len(cfg.Report.Listeners))
	for _, name := range cfg.Report.Listeners {
		var listener report.Listener
		var err error
		if report.ListenerType(name) == report.ListenerTypeLog {
			listener = report.NewLogListener(l)
		} else {
			listener, err = registry.Create(report.ListenerType(name), listenerConfig)
		}
		if err != nil {
			for _, created := range listeners {
				if c, ok := created.(io.Closer); ok {
					_ = c.Close()
				}
			}
			return nil, fmt.Errorf("create %s listener: %w", name, err)
		}
		listeners = append(listeners, listener)
	}
	return report.NewReporterWithOptions(listeners, report.WithLogger(l)), nil
}

// Stats returns the statistics of the configured stats listener, if any.
func Stats() (report.StatsSnapshot, bool) {
	r, ok := currentOptions().reporter.(*report.Reporter)
	if !ok {
		return report.StatsSnapshot{}, false
	}
	for _, l := range r.Listeners() {
		if s, ok := l.(*report.StatsListener); ok {
			return s.Snapshot(), true
		}
	}
	return report.StatsSnapshot{}, false
}

// Shutdown closes the configured reporter and flushes the logger.
func Shutdown() error {
	settingsMu.Lock()
	s := settings
	settings = nil
	settingsMu.Unlock()

	defer logger.Sync()
	if s == nil {
		return nil
	}
	if c, ok := s.reporter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

package report

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/evpl/xteps-sub001/pkg/logger"
)

// ListenerType identifies a listener implementation.
type ListenerType string

const (
	// ListenerTypeLog logs step events through zap.
	ListenerTypeLog ListenerType = "log"
	// ListenerTypeStats aggregates step durations.
	ListenerTypeStats ListenerType = "stats"
	// ListenerTypeJSON writes step events as JSON lines to a rotated file.
	ListenerTypeJSON ListenerType = "json"
)

// ListenerFactory creates a listener of a specific type.
type ListenerFactory func(config map[string]any) (Listener, error)

// Registry manages listener factories by type.
type Registry struct {
	factories map[ListenerType]ListenerFactory
	mu        sync.RWMutex
}

// NewRegistry creates an empty listener registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ListenerType]ListenerFactory),
	}
}

// NewDefaultRegistry creates a registry with the built-in listeners registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(ListenerTypeLog, newLogListenerFactory)
	_ = r.Register(ListenerTypeStats, newStatsListenerFactory)
	_ = r.Register(ListenerTypeJSON, newJSONListenerFactory)
	return r
}

// Register registers a factory for a listener type.
func (r *Registry) Register(listenerType ListenerType, factory ListenerFactory) error {
	if factory == nil {
		return fmt.Errorf("listener factory is nil: %s", listenerType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[listenerType]; exists {
		return fmt.Errorf("listener type already registered: %s", listenerType)
	}
	r.factories[listenerType] = factory
	return nil
}

// Create creates a listener of the given type.
func (r *Registry) Create(listenerType ListenerType, config map[string]any) (Listener, error) {
	r.mu.RLock()
	factory, exists := r.factories[listenerType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown listener type: %s", listenerType)
	}
	return factory(config)
}

// HasType checks if a listener type is registered.
func (r *Registry) HasType(listenerType ListenerType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[listenerType]
	return exists
}

// ListTypes returns the registered listener types, sorted.
func (r *Registry) ListTypes() []ListenerType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ListenerType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func newLogListenerFactory(map[string]any) (Listener, error) {
	return NewLogListener(nil), nil
}

func newStatsListenerFactory(config map[string]any) (Listener, error) {
	maxDuration := DefaultStatsMaxDuration
	if config != nil {
		switch v := config["max_duration"].(type) {
		case time.Duration:
			maxDuration = v
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid max_duration %q: %w", v, err)
			}
			maxDuration = d
		}
	}
	return NewStatsListener(maxDuration), nil
}

func newJSONListenerFactory(config map[string]any) (Listener, error) {
	cfg := &logger.Config{MaxSize: 100, MaxBackups: 3, MaxAge: 7}
	if config != nil {
		if v, ok := config["path"].(string); ok {
			cfg.FilePath = v
		}
		if v, ok := config["max_size"].(int); ok {
			cfg.MaxSize = v
		}
		if v, ok := config["max_backups"].(int); ok {
			cfg.MaxBackups = v
		}
		if v, ok := config["max_age"].(int); ok {
			cfg.MaxAge = v
		}
	}
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("json listener requires a path")
	}
	return NewJSONListener(logger.NewRotatingWriter(cfg)), nil
}

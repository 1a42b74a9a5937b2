package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/evpl/xteps-sub001/pkg/logger"
)

// jsonEvent is the JSON form of a StepEvent.
type jsonEvent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Time        string   `json:"time"`
	DurationMS  float64  `json:"duration_ms"`
	Contexts    []string `json:"contexts,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// JSONListener writes one JSON document per step event, newline separated.
type JSONListener struct {
	mu     sync.Mutex
	writer io.Writer
	logger *zap.Logger
}

// NewJSONListener creates a JSONListener writing to w.
func NewJSONListener(w io.Writer) *JSONListener {
	return &JSONListener{writer: w, logger: logger.L()}
}

// Name returns the listener name.
func (j *JSONListener) Name() string {
	return string(ListenerTypeJSON)
}

// StepStarted implements Listener.
func (j *JSONListener) StepStarted(event *StepEvent) {
	j.write(event)
}

// StepPassed implements Listener.
func (j *JSONListener) StepPassed(event *StepEvent) {
	j.write(event)
}

// StepFailed implements Listener.
func (j *JSONListener) StepFailed(event *StepEvent) {
	j.write(event)
}

// Close closes the underlying writer if it is an io.Closer.
func (j *JSONListener) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (j *JSONListener) write(event *StepEvent) {
	rec := event.Record
	doc := jsonEvent{
		ID:          rec.ID.String(),
		Name:        rec.Name,
		Description: rec.Description,
		Status:      string(event.Status),
		Time:        rec.StartTime.Add(event.Duration).Format(time.RFC3339Nano),
		DurationMS:  float64(event.Duration) / float64(time.Millisecond),
	}
	for _, c := range rec.Contexts {
		doc.Contexts = append(doc.Contexts, fmt.Sprint(c))
	}
	if event.Err != nil {
		doc.Error = event.Err.Error()
	}

	data, err := sonic.Marshal(doc)
	if err != nil {
		j.logger.Warn("encode step event", zap.String("step", rec.Name), zap.Error(err))
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.writer.Write(data); err != nil {
		j.logger.Warn("write step event", zap.String("step", rec.Name), zap.Error(err))
	}
}

package report

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// DefaultStatsMaxDuration is the largest step duration tracked exactly by a
// StatsListener. Longer steps are recorded as this value.
const DefaultStatsMaxDuration = time.Hour

// StatsSnapshot summarizes the steps seen by a StatsListener.
type StatsSnapshot struct {
	Count  int64
	Passed int64
	Failed int64
	Broken int64
	Min    time.Duration
	Mean   time.Duration
	P50    time.Duration
	P90    time.Duration
	P99    time.Duration
	Max    time.Duration
}

// StatsListener aggregates step durations in an HDR histogram with
// microsecond resolution.
type StatsListener struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	maxMicros int64
	passed    int64
	failed    int64
	broken    int64
}

// NewStatsListener creates a StatsListener tracking durations up to maxDuration.
func NewStatsListener(maxDuration time.Duration) *StatsListener {
	if maxDuration <= 0 {
		maxDuration = DefaultStatsMaxDuration
	}
	maxMicros := maxDuration.Microseconds()
	if maxMicros < 2 {
		maxMicros = 2
	}
	return &StatsListener{
		histogram: hdrhistogram.New(1, maxMicros, 3),
		maxMicros: maxMicros,
	}
}

// Name returns the listener name.
func (s *StatsListener) Name() string {
	return string(ListenerTypeStats)
}

// StepStarted implements Listener.
func (s *StatsListener) StepStarted(*StepEvent) {}

// StepPassed implements Listener.
func (s *StatsListener) StepPassed(event *StepEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passed++
	s.record(event.Duration)
}

// StepFailed implements Listener.
func (s *StatsListener) StepFailed(event *StepEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Status == StatusBroken {
		s.broken++
	} else {
		s.failed++
	}
	s.record(event.Duration)
}

func (s *StatsListener) record(d time.Duration) {
	v := d.Microseconds()
	if v < 1 {
		v = 1
	}
	if v > s.maxMicros {
		v = s.maxMicros
	}
	_ = s.histogram.RecordValue(v)
}

// Snapshot returns the current statistics.
func (s *StatsListener) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Count:  s.histogram.TotalCount(),
		Passed: s.passed,
		Failed: s.failed,
		Broken: s.broken,
	}
	if snap.Count == 0 {
		return snap
	}
	snap.Min = micros(s.histogram.Min())
	snap.Mean = time.Duration(s.histogram.Mean() * float64(time.Microsecond))
	snap.P50 = micros(s.histogram.ValueAtQuantile(50))
	snap.P90 = micros(s.histogram.ValueAtQuantile(90))
	snap.P99 = micros(s.histogram.ValueAtQuantile(99))
	snap.Max = micros(s.histogram.Max())
	return snap
}

// Reset clears all statistics.
func (s *StatsListener) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histogram.Reset()
	s.passed, s.failed, s.broken = 0, 0, 0
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

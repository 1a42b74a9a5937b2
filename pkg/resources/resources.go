// Package resources provides the safe resource container of a step chain.
//
// Every closeable context value of a chain is registered in its container, so
// that a failure anywhere later in the chain still releases everything that
// was acquired before it.
package resources

import (
	"io"
	"sync"

	"github.com/duke-git/lancet/v2/slice"

	"github.com/evpl/xteps-sub001/pkg/failure"
)

type entry struct {
	closer  io.Closer
	release func() error
}

func (e *entry) close() error {
	if e.closer != nil {
		return e.closer.Close()
	}
	return e.release()
}

// SafeResources is an ordered collection of closeable resources.
// Close releases them in reverse registration order, attempting every entry
// even if earlier ones fail. Each entry is attempted at most once.
type SafeResources struct {
	mu      sync.Mutex
	entries []*entry
}

// New creates an empty container.
func New() *SafeResources {
	return &SafeResources{}
}

// Add registers a closeable resource.
func (s *SafeResources) Add(closer io.Closer) error {
	if closer == nil {
		return failure.NilArgument("SafeResources.Add", "resource")
	}
	s.append(&entry{closer: closer})
	return nil
}

// AddFunc registers a release callback.
func (s *SafeResources) AddFunc(release func() error) error {
	if release == nil {
		return failure.NilArgument("SafeResources.AddFunc", "release")
	}
	s.append(&entry{release: release})
	return nil
}

func (s *SafeResources) append(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Len returns the number of entries not closed yet.
func (s *SafeResources) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close closes every entry not closed yet and returns the merged failures.
// Calling it again does not re-close entries and returns nil unless new
// entries were added in between.
func (s *SafeResources) Close() error {
	return s.CloseWith(nil)
}

// CloseWith closes every entry not closed yet on behalf of a prior failure.
// Close failures are attached to prior as secondary failures.
func (s *SafeResources) CloseWith(prior error) error {
	pending := s.takePending()
	if len(pending) == 0 {
		return prior
	}

	var errs []error
	for _, e := range pending {
		if err := failure.Call(e.close); err != nil {
			errs = append(errs, err)
		}
	}
	return failure.Attach(prior, errs...)
}

// takePending detaches the open entries and returns them newest first.
// A detached entry is never attempted again.
func (s *SafeResources) takePending() []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.entries
	s.entries = nil
	slice.Reverse(pending)
	return pending
}

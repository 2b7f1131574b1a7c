package progress

import (
	"sync"

	"docsum/internal/domain"
)

// Entry is the observer's view of one file.
type Entry struct {
	Filename string
	Status   domain.Status
	Result   *domain.Result
}

// StatusStore holds the latest status per tracked file. Transitions only
// move forward; regressing events are dropped and counted.
type StatusStore struct {
	mu       sync.RWMutex
	order    []string
	entries  map[string]*Entry
	rejected int
}

func NewStatusStore() *StatusStore {
	return &StatusStore{entries: make(map[string]*Entry)}
}

// Track registers files and resets each to waiting. Files appear in
// Snapshot in the order they were first tracked.
func (s *StatusStore) Track(filenames ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range filenames {
		if e, ok := s.entries[name]; ok {
			e.Status = domain.StatusWaiting
			e.Result = nil
			continue
		}
		s.order = append(s.order, name)
		s.entries[name] = &Entry{Filename: name, Status: domain.StatusWaiting}
	}
}

// Apply folds events into the store. Events for unknown files start
// tracking them. It returns the number of events applied.
func (s *StatusStore) Apply(events ...domain.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := 0
	for _, ev := range events {
		e, ok := s.entries[ev.Filename]
		if !ok {
			e = &Entry{Filename: ev.Filename, Status: domain.StatusWaiting}
			s.order = append(s.order, ev.Filename)
			s.entries[ev.Filename] = e
		}
		if ev.Status == e.Status || !e.Status.CanTransition(ev.Status) {
			s.rejected++
			continue
		}
		e.Status = ev.Status
		if ev.Status == domain.StatusWaiting {
			e.Result = nil
		}
		if ev.Result != nil {
			r := *ev.Result
			e.Result = &r
		}
		applied++
	}
	return applied
}

func (s *StatusStore) Get(filename string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[filename]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Snapshot returns every entry in tracking order.
func (s *StatusStore) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.entries[name])
	}
	return out
}

// Done reports whether every tracked file is terminal. An empty store is
// not done.
func (s *StatusStore) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return false
	}
	for _, e := range s.entries {
		if !e.Status.Terminal() {
			return false
		}
	}
	return true
}

// Counts tallies files per status.
func (s *StatusStore) Counts() map[domain.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.Status]int)
	for _, e := range s.entries {
		out[e.Status]++
	}
	return out
}

// Rejected is the number of events dropped as regressions or repeats.
func (s *StatusStore) Rejected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rejected
}

// Package filterlist holds the filter list the user edits. Pulls write into
// it and pushes read from it.
package filterlist

import (
	"fmt"
	"sync"

	"github.com/smazurov/peqlink/internal/events"
	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/peq"
)

// Sources of a list change.
const (
	SourceDevice = "device"
	SourceUser   = "user"
)

// Store is a mutex guarded FilterSet.
type Store struct {
	mu  sync.RWMutex
	set peq.FilterSet
	bus *events.Bus
}

// New creates an empty store. bus may be nil.
func New(bus *events.Bus) *Store {
	return &Store{bus: bus}
}

// FiltersToElem replaces the list with filters pulled from a device.
func (s *Store) FiltersToElem(set peq.FilterSet) {
	s.replace(SourceDevice, set)
}

// ElemToFilters returns a copy of the current list.
func (s *Store) ElemToFilters() peq.FilterSet {
	s.mu.RLock()
	out := s.set.Clone()
	s.mu.RUnlock()
	if out.Filters == nil {
		out.Filters = []peq.Filter{}
	}
	return out
}

// Replace stores a list edited by the user.
func (s *Store) Replace(set peq.FilterSet) error {
	for i, f := range set.Filters {
		if !f.Type.Valid() {
			return peq.NewDeviceError(peq.ErrCodeInvalidParams,
				fmt.Sprintf("filter %d has unknown type %q", i, f.Type), nil)
		}
	}
	s.replace(SourceUser, set)
	return nil
}

func (s *Store) replace(source string, set peq.FilterSet) {
	set = set.Clone()
	s.mu.Lock()
	s.set = set
	s.mu.Unlock()

	logging.GetLogger("filterlist").Debug("Filter list replaced", "source", source, "filters", len(set.Filters))
	if s.bus != nil {
		s.bus.Publish(events.FilterListChangedEvent{
			Source:    source,
			Filters:   len(set.Filters),
			Preamp:    set.GlobalGain,
			Timestamp: events.Now(),
		})
	}
}

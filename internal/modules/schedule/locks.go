package schedule

import (
	"sort"
	"sync"
)

// lockRegistry hands out one mutex per rack id. The conflict-check plus
// reserve pair for a rack must run under its mutex so two concurrent
// requests cannot both observe a free slot.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[int64]*sync.Mutex)}
}

func (r *lockRegistry) get(rackID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.locks[rackID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[rackID] = m
	}
	return m
}

// LockRack acquires the rack's mutex and returns the release func.
func (s *Service) LockRack(rackID int64) func() {
	m := s.locks.get(rackID)
	m.Lock()
	return m.Unlock
}

// LockRacks acquires several racks' mutexes in ascending id order, the
// global order that keeps concurrent multi-rack operations from
// deadlocking. Duplicate ids are collapsed.
func (s *Service) LockRacks(rackIDs ...int64) func() {
	ids := append([]int64(nil), rackIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var locked []*sync.Mutex
	var prev int64
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		m := s.locks.get(id)
		m.Lock()
		locked = append(locked, m)
		prev = id
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}

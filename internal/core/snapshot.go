package core

import (
	"sync"
	"time"
)

// Snapshot is the latest published view of the account: balance, per-key
// usage, activity, plus fetch progress flags and the most recent balance-step
// error. Consumers receive copies and never mutate shared state.
type Snapshot struct {
	Balance    *Balance   `json:"balance,omitempty"`
	Keys       []KeyUsage `json:"keys"`
	Activity   []Activity `json:"activity"`
	Loading    bool       `json:"loading"`
	Refreshing bool       `json:"refreshing"`
	Err        string     `json:"error,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SnapshotStore is the single-writer home of the published Snapshot. The
// fetch orchestrator is the only writer; readers get defensive copies, and
// the optional OnUpdate callback observes every publication in order.
type SnapshotStore struct {
	mu       sync.RWMutex
	snap     Snapshot
	onUpdate func(Snapshot)
	now      func() time.Time
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{now: time.Now}
}

// OnUpdate registers a callback invoked after every publication with a copy
// of the new snapshot. The callback runs under the store lock, so publication
// order is the observation order.
func (s *SnapshotStore) OnUpdate(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Update applies mutate to the current snapshot and publishes the result.
func (s *SnapshotStore) Update(mutate func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(&s.snap)
	s.snap.UpdatedAt = s.now()
	if s.onUpdate != nil {
		s.onUpdate(copySnapshot(s.snap))
	}
}

// Current returns a copy of the latest published snapshot.
func (s *SnapshotStore) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.snap)
}

func copySnapshot(in Snapshot) Snapshot {
	out := in
	if in.Balance != nil {
		b := *in.Balance
		out.Balance = &b
	}
	out.Keys = make([]KeyUsage, len(in.Keys))
	copy(out.Keys, in.Keys)
	out.Activity = make([]Activity, len(in.Activity))
	copy(out.Activity, in.Activity)
	return out
}

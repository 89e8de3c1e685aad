// Package monitor contains the polling engine: the scheduler that decides
// when to fetch, the orchestrator that runs one fetch cycle across the
// metering resources with independent failure handling, and the activity
// cache bounding the activity request rate.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orwatch/orwatch/internal/alerts"
	"github.com/orwatch/orwatch/internal/core"
	"github.com/orwatch/orwatch/internal/logging"
)

// ErrNoCredential is returned by TestConnection when no API key is set.
var ErrNoCredential = errors.New("no API key configured")

// Client is the metering API consumed by the orchestrator.
type Client interface {
	Credits(ctx context.Context) (core.Balance, error)
	Key(ctx context.Context) (core.KeyUsage, error)
	Keys(ctx context.Context) ([]core.KeyUsage, error)
	Activity(ctx context.Context) ([]core.Activity, error)
}

// Settings is the slice of the settings store the engine consumes.
type Settings struct {
	Enabled  bool
	APIKey   string
	Interval time.Duration
	Alerts   alerts.Config
}

// Manager orchestrates fetch cycles: it owns the published snapshot, runs
// the four sub-fetches with independent failure handling, and hands fresh
// data to the anomaly detector.
type Manager struct {
	mu      sync.Mutex
	client  Client
	apiKey  string
	enabled bool

	store     *core.SnapshotStore
	cache     *ActivityCache
	detector  *alerts.Detector
	scheduler *Scheduler
	newClient func(apiKey string) Client
	log       zerolog.Logger
}

func NewManager(store *core.SnapshotStore, detector *alerts.Detector, newClient func(apiKey string) Client) *Manager {
	m := &Manager{
		store:     store,
		cache:     NewActivityCache(),
		detector:  detector,
		newClient: newClient,
		log:       logging.Component("monitor"),
	}
	m.scheduler = NewScheduler(DefaultInterval, func(manual bool) {
		m.RunCycle(context.Background(), manual)
	})
	return m
}

// Apply pushes new settings into the engine: credential, enable flag, poll
// interval and alert toggles. The scheduler re-derives Active/Idle from the
// result.
func (m *Manager) Apply(s Settings) {
	m.mu.Lock()
	keySwapped := s.APIKey != m.apiKey && s.APIKey != "" && m.apiKey != ""
	m.apiKey = s.APIKey
	if s.APIKey == "" {
		m.client = nil
	} else {
		m.client = m.newClient(s.APIKey)
	}
	m.enabled = s.Enabled
	m.mu.Unlock()

	m.detector.SetConfig(s.Alerts)
	m.scheduler.SetInterval(s.Interval)
	m.scheduler.SetCredential(s.APIKey != "")
	if s.Enabled {
		m.scheduler.Enable()
	} else {
		m.scheduler.Disable()
	}
	// A new key value under an existing timer recreates the timer so the
	// next tick lands a full interval after the swap.
	if keySwapped {
		m.scheduler.Reschedule()
	}
}

// Stop takes the scheduler Idle. In-flight cycles still publish.
func (m *Manager) Stop() {
	m.scheduler.Disable()
}

// Scheduler exposes the polling state machine.
func (m *Manager) Scheduler() *Scheduler {
	return m.scheduler
}

// Snapshot returns a copy of the latest published state.
func (m *Manager) Snapshot() core.Snapshot {
	return m.store.Current()
}

// Refresh runs one manual fetch cycle (with the loading indicator).
func (m *Manager) Refresh(ctx context.Context) {
	m.RunCycle(ctx, true)
}

// RunCycle performs one fetch cycle. Each step tolerates failure on its own:
// a balance error is published as the primary error state, key usage falls
// back to the single-key resource, activity degrades to an empty collection.
func (m *Manager) RunCycle(ctx context.Context, manual bool) {
	m.mu.Lock()
	client := m.client
	enabled := m.enabled
	m.mu.Unlock()

	m.log.Debug().Bool("manual", manual).Msg("cycle_start")

	if !enabled || client == nil {
		m.store.Update(func(s *core.Snapshot) {
			s.Balance = nil
			s.Keys = nil
			s.Activity = nil
			s.Err = ""
			s.Loading = false
			s.Refreshing = false
		})
		m.log.Debug().Msg("cycle_finish")
		return
	}

	m.store.Update(func(s *core.Snapshot) {
		s.Refreshing = true
		s.Loading = manual
		s.Err = ""
	})
	defer func() {
		m.store.Update(func(s *core.Snapshot) {
			s.Refreshing = false
			s.Loading = false
		})
		m.log.Debug().Msg("cycle_finish")
	}()

	m.fetchBalance(ctx, client)
	m.fetchKeys(ctx, client)
	m.fetchActivity(ctx, client)
}

// TestConnection surfaces the balance fetch outcome directly, without
// touching the activity cache or the dedup ledger.
func (m *Manager) TestConnection(ctx context.Context) (core.Balance, error) {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		return core.Balance{}, ErrNoCredential
	}
	return client.Credits(ctx)
}

func (m *Manager) fetchBalance(ctx context.Context, client Client) {
	bal, err := client.Credits(ctx)
	if err != nil {
		msg := err.Error()
		m.store.Update(func(s *core.Snapshot) { s.Err = msg })
		return
	}

	m.store.Update(func(s *core.Snapshot) {
		b := bal
		s.Balance = &b
	})
	m.detector.CheckBalance(ctx, bal)
}

func (m *Manager) fetchKeys(ctx context.Context, client Client) {
	keys, err := client.Keys(ctx)
	if err != nil {
		// Provisioning-scoped listings are not always available; the
		// calling key's own record still is.
		rec, fallbackErr := client.Key(ctx)
		if fallbackErr != nil {
			m.store.Update(func(s *core.Snapshot) { s.Keys = nil })
			return
		}
		keys = []core.KeyUsage{rec}
	}

	m.store.Update(func(s *core.Snapshot) { s.Keys = keys })
	m.detector.CheckKeys(ctx, keys)
}

func (m *Manager) fetchActivity(ctx context.Context, client Client) {
	records, err := m.cache.Get(ctx, client.Activity)
	if err != nil {
		m.store.Update(func(s *core.Snapshot) { s.Activity = nil })
		return
	}
	m.store.Update(func(s *core.Snapshot) { s.Activity = records })
}

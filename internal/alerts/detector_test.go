package alerts

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orwatch/orwatch/internal/core"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	calls int
}

func (f *fakeNotifier) Notify(_ context.Context, _ string, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return assert.AnError
	}
	f.sent = append(f.sent, id)
	return nil
}

func newTestDetector(t *testing.T, cfg Config) (*Detector, *fakeNotifier) {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	notifier := &fakeNotifier{}
	detector := NewDetector(cfg, ledger, notifier)
	detector.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)
	}
	return detector, notifier
}

func TestBalanceAboveThresholdNeverFires(t *testing.T) {
	detector, notifier := newTestDetector(t, DefaultConfig())

	detector.CheckBalance(context.Background(), core.Balance{TotalCredits: 100, TotalUsage: 50})

	assert.Empty(t, notifier.sent)
}

func TestBalanceAtThresholdFiresOncePerDay(t *testing.T) {
	detector, notifier := newTestDetector(t, DefaultConfig())
	ctx := context.Background()

	bal := core.Balance{TotalCredits: 100, TotalUsage: 90}
	for i := 0; i < 5; i++ {
		detector.CheckBalance(ctx, bal)
	}

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "low-balance-2026-08-29", notifier.sent[0])
}

func TestBalanceFiresAgainOnNewDay(t *testing.T) {
	detector, notifier := newTestDetector(t, DefaultConfig())
	ctx := context.Background()
	bal := core.Balance{TotalCredits: 5, TotalUsage: 0}

	detector.CheckBalance(ctx, bal)
	detector.now = func() time.Time {
		return time.Date(2026, 8, 30, 0, 30, 0, 0, time.Local)
	}
	detector.CheckBalance(ctx, bal)

	assert.Equal(t, []string{"low-balance-2026-08-29", "low-balance-2026-08-30"}, notifier.sent)
}

func TestBalanceRuleDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BalanceAlerts = false
	detector, notifier := newTestDetector(t, cfg)

	detector.CheckBalance(context.Background(), core.Balance{TotalCredits: 1, TotalUsage: 0})

	assert.Empty(t, notifier.sent)
}

func TestSpikeNeverFiresWithoutWeeklyHistory(t *testing.T) {
	detector, notifier := newTestDetector(t, DefaultConfig())

	detector.CheckKeys(context.Background(), []core.KeyUsage{
		{ID: "k1", Name: "new key", UsageWeekly: 0, UsageDaily: 500},
	})

	assert.Empty(t, notifier.sent)
}

func TestSpikeThresholdArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		weekly float64
		daily  float64
		fires  bool
	}{
		{name: "below multiplier", weekly: 70, daily: 15, fires: false},
		{name: "above multiplier", weekly: 70, daily: 25, fires: true},
		{name: "exactly at multiplier", weekly: 70, daily: 20, fires: true},
		{name: "below minimum floor", weekly: 2, daily: 0.9, fires: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector, notifier := newTestDetector(t, DefaultConfig())

			detector.CheckKeys(context.Background(), []core.KeyUsage{
				{ID: "k1", Name: "key", UsageWeekly: tt.weekly, UsageDaily: tt.daily},
			})

			if tt.fires {
				assert.Len(t, notifier.sent, 1)
			} else {
				assert.Empty(t, notifier.sent)
			}
		})
	}
}

func TestSpikeFiresOncePerKeyPerDay(t *testing.T) {
	detector, notifier := newTestDetector(t, DefaultConfig())
	ctx := context.Background()

	keys := []core.KeyUsage{
		{ID: "k1", Name: "first", UsageWeekly: 70, UsageDaily: 30},
		{ID: "k2", Name: "second", UsageWeekly: 70, UsageDaily: 30},
	}
	detector.CheckKeys(ctx, keys)
	detector.CheckKeys(ctx, keys)

	assert.ElementsMatch(t,
		[]string{"usage-spike-k1-2026-08-29", "usage-spike-k2-2026-08-29"},
		notifier.sent)
}

func TestSpikeSkipsDisabledKeys(t *testing.T) {
	detector, notifier := newTestDetector(t, DefaultConfig())

	detector.CheckKeys(context.Background(), []core.KeyUsage{
		{ID: "k1", Name: "off", Disabled: true, UsageWeekly: 70, UsageDaily: 30},
	})

	assert.Empty(t, notifier.sent)
}

func TestSpikeRuleDisabledLeavesBalanceRuleAlone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpikeAlerts = false
	detector, notifier := newTestDetector(t, cfg)
	ctx := context.Background()

	detector.CheckKeys(ctx, []core.KeyUsage{
		{ID: "k1", Name: "key", UsageWeekly: 70, UsageDaily: 30},
	})
	detector.CheckBalance(ctx, core.Balance{TotalCredits: 5, TotalUsage: 0})

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "low-balance-2026-08-29", notifier.sent[0])
}

func TestFailedDeliveryStillConsumesTheDay(t *testing.T) {
	detector, notifier := newTestDetector(t, DefaultConfig())
	notifier.fail = true
	ctx := context.Background()

	detector.CheckBalance(ctx, core.Balance{TotalCredits: 5, TotalUsage: 0})
	notifier.fail = false
	detector.CheckBalance(ctx, core.Balance{TotalCredits: 5, TotalUsage: 0})

	assert.Empty(t, notifier.sent, "fire-then-record: the day was claimed before delivery")
	assert.Equal(t, 1, notifier.calls)
}

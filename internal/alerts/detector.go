// Package alerts evaluates anomaly rules over fetched metering data and
// emits deduplicated alerts: a low-balance rule and a per-key usage spike
// rule, each firing at most once per entity per local calendar day.
package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orwatch/orwatch/internal/core"
	"github.com/orwatch/orwatch/internal/logging"
)

const (
	// DefaultWarnThreshold is the remaining-credit level that triggers the
	// low-balance rule.
	DefaultWarnThreshold = 10.0

	// spikeMultiplier fires the spike rule at usageDaily >= baseline * 2.
	spikeMultiplier = 2.0

	// spikeMinDaily is the minimum daily usage considered worth flagging.
	spikeMinDaily = 1.0

	ruleBalance = "balance"
	ruleSpike   = "spike"
)

// Config are the detector toggles supplied by the settings store. The two
// rule classes are independently disable-able.
type Config struct {
	WarnThreshold float64
	BalanceAlerts bool
	SpikeAlerts   bool
}

func DefaultConfig() Config {
	return Config{
		WarnThreshold: DefaultWarnThreshold,
		BalanceAlerts: true,
		SpikeAlerts:   true,
	}
}

// Detector runs both rules against fresh data. Rule evaluation itself is
// pure; the ledger carries the per-day dedup state.
type Detector struct {
	mu  sync.Mutex
	cfg Config

	ledger   *Ledger
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewDetector(cfg Config, ledger *Ledger, notifier Notifier) *Detector {
	if cfg.WarnThreshold <= 0 {
		cfg.WarnThreshold = DefaultWarnThreshold
	}
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	return &Detector{
		cfg:      cfg,
		ledger:   ledger,
		notifier: notifier,
		log:      logging.Component("alerts"),
		now:      time.Now,
	}
}

// SetConfig swaps the rule toggles, e.g. after a settings reload.
func (d *Detector) SetConfig(cfg Config) {
	if cfg.WarnThreshold <= 0 {
		cfg.WarnThreshold = DefaultWarnThreshold
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

func (d *Detector) config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// CheckBalance fires the low-balance alert when remaining credits are at or
// below the warning threshold, at most once per day.
func (d *Detector) CheckBalance(ctx context.Context, bal core.Balance) {
	cfg := d.config()
	if !cfg.BalanceAlerts {
		return
	}

	remaining := bal.Remaining()
	if remaining > cfg.WarnThreshold {
		return
	}

	day := core.DayKey(d.now())
	fired, err := d.ledger.MarkOnce(ctx, ruleBalance, "account", day)
	if err != nil {
		d.log.Warn().Err(err).Msg("ledger_error")
		return
	}
	if !fired {
		return
	}

	d.log.Info().
		Str("rule", ruleBalance).
		Float64("remaining", remaining).
		Float64("threshold", cfg.WarnThreshold).
		Msg("anomaly_detected")

	d.send(ctx,
		"Low OpenRouter balance",
		fmt.Sprintf("%.2f credits remaining (warning at %.2f)", remaining, cfg.WarnThreshold),
		"low-balance-"+day)
}

// CheckKeys fires the spike alert for every enabled key whose daily usage
// reaches twice its weekly baseline, at most once per key per day. Keys with
// no weekly history or negligible daily usage are skipped.
func (d *Detector) CheckKeys(ctx context.Context, keys []core.KeyUsage) {
	cfg := d.config()
	if !cfg.SpikeAlerts {
		return
	}

	day := core.DayKey(d.now())
	for _, key := range keys {
		if key.Disabled {
			continue
		}

		baseline := key.UsageWeekly / 7
		if baseline <= 0 {
			continue
		}
		if key.UsageDaily < spikeMinDaily {
			continue
		}
		if key.UsageDaily < baseline*spikeMultiplier {
			continue
		}

		fired, err := d.ledger.MarkOnce(ctx, ruleSpike, key.ID, day)
		if err != nil {
			d.log.Warn().Err(err).Str("key", key.ID).Msg("ledger_error")
			continue
		}
		if !fired {
			continue
		}

		d.log.Info().
			Str("rule", ruleSpike).
			Str("key", key.ID).
			Float64("daily", key.UsageDaily).
			Float64("baseline", baseline).
			Msg("anomaly_detected")

		d.send(ctx,
			"Usage spike: "+key.Name,
			fmt.Sprintf("%s spent %.2f today against a %.2f daily baseline", key.Name, key.UsageDaily, baseline),
			fmt.Sprintf("usage-spike-%s-%s", key.ID, day))
	}
}

func (d *Detector) send(ctx context.Context, title, body, id string) {
	if err := d.notifier.Notify(ctx, title, body, id); err != nil {
		d.log.Warn().Err(err).Str("id", id).Msg("alert_failed")
		return
	}
	d.log.Info().Str("id", id).Msg("alert_sent")
}

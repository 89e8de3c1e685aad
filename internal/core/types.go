package core

import (
	"time"

	"github.com/samber/lo"
)

// Balance is the account-wide credit state, refreshed wholesale each cycle.
type Balance struct {
	TotalCredits float64 `json:"total_credits"`
	TotalUsage   float64 `json:"total_usage"`
}

// Remaining returns the credits left on the account.
func (b Balance) Remaining() float64 {
	return b.TotalCredits - b.TotalUsage
}

// KeyUsage is the per-key usage record published to consumers. ID is the
// upstream key hash (or a synthesized stand-in when the hash is absent).
// A zero LastActivity means the key was never used.
type KeyUsage struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Disabled       bool      `json:"disabled"`
	Limit          *float64  `json:"limit,omitempty"`
	LimitRemaining *float64  `json:"limit_remaining,omitempty"`
	UsageDaily     float64   `json:"usage_daily"`
	UsageWeekly    float64   `json:"usage_weekly"`
	UsageMonthly   float64   `json:"usage_monthly"`
	UsageTotal     float64   `json:"usage_total"`
	LastActivity   time.Time `json:"last_activity,omitempty"`
}

// Activity is one usage-activity record. Timestamp is zero when the upstream
// value could not be parsed; such records stay in the raw collection but are
// excluded from windowed views.
type Activity struct {
	Timestamp        time.Time `json:"timestamp,omitempty"`
	Model            string    `json:"model"`
	Spend            float64   `json:"spend"`
	Requests         int       `json:"requests"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	ReasoningTokens  int       `json:"reasoning_tokens"`
}

// TotalTokens returns the sum of all token sub-counts.
func (a Activity) TotalTokens() int {
	return a.PromptTokens + a.CompletionTokens + a.ReasoningTokens
}

// ActivityWithin returns the records newer than now-window, dropping records
// with unparsed timestamps.
func ActivityWithin(records []Activity, window time.Duration, now time.Time) []Activity {
	cutoff := now.Add(-window)
	return lo.Filter(records, func(a Activity, _ int) bool {
		return !a.Timestamp.IsZero() && a.Timestamp.After(cutoff)
	})
}

// DayKey formats t as a calendar-date string in the local timezone. It is the
// dedup key for once-per-day alerting.
func DayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

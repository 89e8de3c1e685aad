package openrouter

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/orwatch/orwatch/internal/core"
)

type creditsResponse struct {
	Data struct {
		TotalCredits float64 `json:"total_credits"`
		TotalUsage   float64 `json:"total_usage"`
	} `json:"data"`
}

type keyResponse struct {
	Data keyRecord `json:"data"`
}

type keysResponse struct {
	Data []keyRecord `json:"data"`
}

// keyRecord tolerates missing fields: everything except an identity defaults
// to zero/false/empty, and even the hash falls back to a synthesized id.
type keyRecord struct {
	Hash           string   `json:"hash"`
	Name           string   `json:"name"`
	Label          string   `json:"label"`
	Disabled       bool     `json:"disabled"`
	Limit          *float64 `json:"limit"`
	LimitRemaining *float64 `json:"limit_remaining"`
	Usage          float64  `json:"usage"`
	UsageDaily     float64  `json:"usage_daily"`
	UsageWeekly    float64  `json:"usage_weekly"`
	UsageMonthly   float64  `json:"usage_monthly"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
	LastUsedAt     string   `json:"last_used_at"`
}

func (r keyRecord) toKeyUsage() core.KeyUsage {
	id := r.Hash
	if id == "" {
		id = synthesizeKeyID(r.Name, r.Label)
	}

	name := r.Name
	if name == "" {
		name = r.Label
	}
	if name == "" {
		name = truncateID(id)
	}

	return core.KeyUsage{
		ID:             id,
		Name:           name,
		Disabled:       r.Disabled,
		Limit:          r.Limit,
		LimitRemaining: r.LimitRemaining,
		UsageDaily:     r.UsageDaily,
		UsageWeekly:    r.UsageWeekly,
		UsageMonthly:   r.UsageMonthly,
		UsageTotal:     r.Usage,
		LastActivity:   firstTimestamp(r.LastUsedAt, r.UpdatedAt, r.CreatedAt),
	}
}

type activityResponse struct {
	Data []activityRecord `json:"data"`
}

type activityRecord struct {
	Date             string  `json:"date"`
	Model            string  `json:"model"`
	Usage            float64 `json:"usage"`
	Requests         int     `json:"requests"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	ReasoningTokens  int     `json:"reasoning_tokens"`
}

func (r activityRecord) toActivity() core.Activity {
	return core.Activity{
		Timestamp:        parseTimestamp(r.Date),
		Model:            r.Model,
		Spend:            r.Usage,
		Requests:         r.Requests,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		ReasoningTokens:  r.ReasoningTokens,
	}
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp tries the accepted upstream formats plus unix seconds.
// It returns the zero time when nothing matches.
func parseTimestamp(val string) time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return time.Time{}
	}

	if ts, err := strconv.ParseFloat(val, 64); err == nil && ts > 1_000_000_000 {
		return time.Unix(int64(ts), 0)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstTimestamp(vals ...string) time.Time {
	for _, val := range vals {
		if t := parseTimestamp(val); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

func synthesizeKeyID(parts ...string) string {
	seed := strings.Join(parts, "|")
	if strings.Trim(seed, "|") == "" {
		seed = "unnamed-key"
	}
	sum := sha256.Sum256([]byte(seed))
	return "key-" + hex.EncodeToString(sum[:])[:12]
}

func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

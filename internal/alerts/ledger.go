package alerts

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Ledger records, per alert rule and entity, the last local calendar day on
// which an alert fired. It backs the "at most once per day" guarantee and
// survives restarts. The conflict-guarded upsert in MarkOnce serializes
// read-modify-write per (rule, entity).
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

func OpenLedger(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("alerts: creating ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("alerts: opening ledger: %w", err)
	}

	ledger := NewLedger(db)
	if err := ledger.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return ledger, nil
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) Init(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA synchronous = NORMAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS alert_ledger (
			rule TEXT NOT NULL,
			entity TEXT NOT NULL,
			day TEXT NOT NULL,
			fired_at TEXT NOT NULL,
			PRIMARY KEY (rule, entity)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("alerts: initializing ledger: %w", err)
		}
	}
	return nil
}

// MarkOnce claims the (rule, entity) slot for day. It returns true when this
// call won the claim, false when an alert already fired for that day.
func (l *Ledger) MarkOnce(ctx context.Context, rule, entity, day string) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO alert_ledger (rule, entity, day, fired_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(rule, entity) DO UPDATE SET
			day = excluded.day,
			fired_at = excluded.fired_at
		WHERE alert_ledger.day <> excluded.day;`,
		rule, entity, day, l.now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("alerts: marking ledger: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("alerts: reading ledger result: %w", err)
	}
	return n > 0, nil
}

// LastFired returns the day recorded for (rule, entity), or "" when the rule
// never fired for that entity.
func (l *Ledger) LastFired(ctx context.Context, rule, entity string) (string, error) {
	var day string
	err := l.db.QueryRowContext(ctx,
		`SELECT day FROM alert_ledger WHERE rule = ? AND entity = ?;`,
		rule, entity).Scan(&day)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("alerts: reading ledger: %w", err)
	}
	return day, nil
}

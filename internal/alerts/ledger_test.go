package alerts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestMarkOnceFiresOncePerDay(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	fired, err := ledger.MarkOnce(ctx, "balance", "account", "2026-08-29")
	require.NoError(t, err)
	assert.True(t, fired, "first claim of the day wins")

	fired, err = ledger.MarkOnce(ctx, "balance", "account", "2026-08-29")
	require.NoError(t, err)
	assert.False(t, fired, "second claim same day loses")
}

func TestMarkOnceResetsOnNewDay(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	fired, err := ledger.MarkOnce(ctx, "spike", "key-abc", "2026-08-28")
	require.NoError(t, err)
	assert.True(t, fired)

	fired, err = ledger.MarkOnce(ctx, "spike", "key-abc", "2026-08-29")
	require.NoError(t, err)
	assert.True(t, fired, "a new day fires again")

	day, err := ledger.LastFired(ctx, "spike", "key-abc")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-29", day)
}

func TestMarkOnceIsScopedPerRuleAndEntity(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	fired, err := ledger.MarkOnce(ctx, "spike", "key-a", "2026-08-29")
	require.NoError(t, err)
	assert.True(t, fired)

	fired, err = ledger.MarkOnce(ctx, "spike", "key-b", "2026-08-29")
	require.NoError(t, err)
	assert.True(t, fired, "different entity is independent")

	fired, err = ledger.MarkOnce(ctx, "balance", "key-a", "2026-08-29")
	require.NoError(t, err)
	assert.True(t, fired, "different rule is independent")
}

func TestLastFiredUnknownEntity(t *testing.T) {
	ledger := openTestLedger(t)

	day, err := ledger.LastFired(context.Background(), "balance", "account")
	require.NoError(t, err)
	assert.Empty(t, day)
}

func TestMarkOncePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.db")
	ctx := context.Background()

	ledger, err := OpenLedger(path)
	require.NoError(t, err)
	fired, err := ledger.MarkOnce(ctx, "balance", "account", "2026-08-29")
	require.NoError(t, err)
	assert.True(t, fired)
	require.NoError(t, ledger.Close())

	reopened, err := OpenLedger(path)
	require.NoError(t, err)
	defer reopened.Close()

	fired, err = reopened.MarkOnce(ctx, "balance", "account", "2026-08-29")
	require.NoError(t, err)
	assert.False(t, fired, "dedup state survives restart")
}

package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"sales", "sale_items", "cash_registers", "dispatch_jobs"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.db")
	db1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db2.Close())
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 3, 14, 30, 0, 123_000_000, time.UTC)
	assert.True(t, now.Equal(Time(Millis(now))))

	assert.Nil(t, NullTime(NullMillis(nil)))
	got := NullTime(NullMillis(&now))
	require.NotNil(t, got)
	assert.True(t, now.Equal(*got))
}

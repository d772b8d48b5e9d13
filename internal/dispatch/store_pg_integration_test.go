//go:build integration

package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bar-pos/internal/postgres/pgtest"
)

func TestPGClaimAndLease(t *testing.T) {
	store := &PGStore{DB: pgtest.Pool(t)}
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, id := range []string{"j-mine", "j-other", "j-stale"} {
		require.NoError(t, store.Create(ctx, Job{ID: id, Kind: KindPrint, Target: "bar:9100", Body: "t", Status: StatusQueued, CreatedAt: now}))
	}
	mine, err := store.Claim(ctx, "j-mine", "api-a", now)
	require.NoError(t, err)
	assert.Equal(t, "api-a", mine.ClaimedBy)
	require.NotNil(t, mine.ClaimedAt)
	assert.True(t, now.Equal(*mine.ClaimedAt))
	assert.Equal(t, 1, mine.Attempts)

	_, err = store.Claim(ctx, "j-mine", "api-b", now)
	assert.ErrorIs(t, err, ErrNotQueued)
	_, err = store.Claim(ctx, "missing", "api-b", now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Claim(ctx, "j-other", "api-b", now)
	require.NoError(t, err)
	_, err = store.Claim(ctx, "j-stale", "api-c", now.Add(-time.Hour))
	require.NoError(t, err)

	// api-a restart: job sendiri + lease kadaluarsa, job api-b tetap jalan
	n, err := store.FailInterrupted(ctx, "api-a", now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	other, err := store.Get(ctx, "j-other")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, other.Status)
	done, err := store.Finish(ctx, "j-other", StatusDone, "", now)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, done.Status)

	stale, err := store.Get(ctx, "j-stale")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stale.Status)
	assert.Equal(t, interruptedMsg, stale.Error)

	requeued, err := store.Requeue(ctx, "j-stale")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, requeued.Status)
	queued, err := store.Queued(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "j-stale", queued[0].ID)
}

func TestPGQueueLeavesOtherReplicaAlone(t *testing.T) {
	store := &PGStore{DB: pgtest.Pool(t)}
	ctx := context.Background()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	slow := TransportFunc(func(ctx context.Context, j Job) error {
		entered <- struct{}{}
		<-release
		return nil
	})
	qa, settled := startInstance(t, store, map[Kind]Transport{KindPrint: slow}, "api-a")
	j, err := qa.Enqueue(ctx, KindPrint, "bar:9100", "ticket")
	require.NoError(t, err)
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("replica A never started sending")
	}

	startInstance(t, store, map[Kind]Transport{}, "api-b")
	close(release)

	got := waitSettled(t, settled)
	assert.Equal(t, j.ID, got.ID)
	assert.Equal(t, StatusDone, got.Status)
}

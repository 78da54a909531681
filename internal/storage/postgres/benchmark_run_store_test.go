package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

func testRun(id string, started time.Time) *domain.BenchmarkRun {
	return &domain.BenchmarkRun{
		RunID:      id,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Seed:       1<<63 + 7,
		Config:     []byte("rounds: 200\n"),
		Requested:  10,
		Completed:  9,
		Failed:     1,
	}
}

func TestBenchmarkRunStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBenchmarkRunStore(pool)
	ctx := context.Background()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, testRun("run-b", started)))
	require.NoError(t, store.Insert(ctx, testRun("run-a", started.Add(-time.Hour))))

	got, err := store.GetByID(ctx, "run-b")
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63+7), got.Seed)
	assert.Equal(t, 9, got.Completed)
	assert.Equal(t, "rounds: 200\n", string(got.Config))
	assert.True(t, got.StartedAt.Equal(started))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].RunID)

	assert.ErrorIs(t, store.Insert(ctx, testRun("run-b", started)), storage.ErrDuplicateKey)
	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

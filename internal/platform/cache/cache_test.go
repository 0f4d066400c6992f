package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/payroll"
	"workforce/internal/platform/crypto"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rate := 12.5
	fetched := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	worker := payroll.Worker{
		ID:         "w1",
		FirstName:  "Ana",
		LastName:   "Ruiz",
		BaseSalary: 1500,
		Employers: []payroll.Employer{{
			CompanyID: "c1",
			Name:      "Acme",
			Contracts: []payroll.CompanyContract{{ID: "k1", CompanyID: "c1", HasContract: true, HourlyRate: &rate}},
		}},
	}

	require.NoError(t, store.SaveSnapshot(ctx, payroll.WorkerSnapshot{Worker: worker, FetchedAt: fetched}))

	got, err := store.LoadSnapshot(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, got.FromCache)
	assert.True(t, fetched.Equal(got.FetchedAt))
	assert.Equal(t, worker, got.Worker)
}

func TestSaveSnapshotOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, payroll.WorkerSnapshot{Worker: payroll.Worker{ID: "w1", FirstName: "Old"}}))
	require.NoError(t, store.SaveSnapshot(ctx, payroll.WorkerSnapshot{Worker: payroll.Worker{ID: "w1", FirstName: "New"}}))

	got, err := store.LoadSnapshot(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Worker.FirstName)
}

func TestLoadSnapshotMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LoadSnapshot(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSaveSnapshotRequiresWorkerID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SaveSnapshot(context.Background(), payroll.WorkerSnapshot{}))
}

func TestNewCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Close())
	assert.FileExists(t, path)
}

func TestSealedSnapshotsAreOpaqueAtRest(t *testing.T) {
	sealer, err := crypto.New("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	store, err := New(":memory:", WithSealer(sealer))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	worker := payroll.Worker{ID: "w1", Email: "ana@example.com"}
	require.NoError(t, store.SaveSnapshot(ctx, payroll.WorkerSnapshot{Worker: worker}))

	var raw []byte
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT payload FROM worker_snapshots WHERE worker_id = ?`, "w1").Scan(&raw))
	assert.NotContains(t, string(raw), "ana@example.com")

	got, err := store.LoadSnapshot(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Worker.Email)
}

func TestPruneOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveSnapshot(ctx, payroll.WorkerSnapshot{Worker: payroll.Worker{ID: "old"}, FetchedAt: now.AddDate(0, -2, 0)}))
	require.NoError(t, store.SaveSnapshot(ctx, payroll.WorkerSnapshot{Worker: payroll.Worker{ID: "fresh"}, FetchedAt: now.AddDate(0, 0, -1)}))

	removed, err := store.PruneOlderThan(ctx, now.AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.LoadSnapshot(ctx, "old")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = store.LoadSnapshot(ctx, "fresh")
	assert.NoError(t, err)
}

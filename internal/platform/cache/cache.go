// Package cache keeps the last worker profile fetched from the directory in a local
// SQLite file, so calculations can continue while the directory is down.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"workforce/internal/domain/payroll"
	"workforce/internal/platform/crypto"
)

var ErrSnapshotNotFound = errors.New("worker snapshot not cached")

type Store struct {
	db     *sql.DB
	sealer *crypto.Sealer
}

type Option func(*Store)

// WithSealer encrypts cached payloads, which carry worker contact details.
func WithSealer(sealer *crypto.Sealer) Option {
	return func(s *Store) {
		s.sealer = sealer
	}
}

// New opens (and creates when needed) the cache database. Use ":memory:" in tests.
func New(path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	// every new connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS worker_snapshots (
		worker_id TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_worker_snapshots_fetched_at ON worker_snapshots (fetched_at);
	`)
	return err
}

func (s *Store) SaveSnapshot(ctx context.Context, snapshot payroll.WorkerSnapshot) error {
	if snapshot.Worker.ID == "" {
		return errors.New("snapshot has no worker id")
	}
	payload, err := json.Marshal(snapshot.Worker)
	if err != nil {
		return fmt.Errorf("encode worker: %w", err)
	}
	sealed, err := s.sealer.Seal(payload, []byte(snapshot.Worker.ID))
	if err != nil {
		return fmt.Errorf("seal worker: %w", err)
	}
	fetchedAt := snapshot.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO worker_snapshots (worker_id, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(worker_id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`, snapshot.Worker.ID, sealed, fetchedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snapshot.Worker.ID, err)
	}
	return nil
}

// LoadSnapshot returns the cached worker marked FromCache.
func (s *Store) LoadSnapshot(ctx context.Context, workerID string) (payroll.WorkerSnapshot, error) {
	var (
		sealed    []byte
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, fetched_at FROM worker_snapshots WHERE worker_id = ?
	`, workerID).Scan(&sealed, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.WorkerSnapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, workerID)
	}
	if err != nil {
		return payroll.WorkerSnapshot{}, fmt.Errorf("load snapshot %s: %w", workerID, err)
	}

	payload, err := s.sealer.Open(sealed, []byte(workerID))
	if err != nil {
		return payroll.WorkerSnapshot{}, fmt.Errorf("open snapshot %s: %w", workerID, err)
	}
	var worker payroll.Worker
	if err := json.Unmarshal(payload, &worker); err != nil {
		return payroll.WorkerSnapshot{}, fmt.Errorf("decode snapshot %s: %w", workerID, err)
	}
	return payroll.WorkerSnapshot{Worker: worker, FetchedAt: time.Unix(0, fetchedAt).UTC(), FromCache: true}, nil
}

// PruneOlderThan drops snapshots fetched before cutoff and reports how many went.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM worker_snapshots WHERE fetched_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

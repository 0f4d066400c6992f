package payroll

import "context"

// ConfigStore persists one allocation config per worker.
type ConfigStore interface {
	LoadAllocation(ctx context.Context, workerID string) (AllocationConfig, error)
	SaveAllocation(ctx context.Context, workerID string, cfg AllocationConfig) error
}

// Directory resolves workers and their monthly attendance.
type Directory interface {
	Snapshot(ctx context.Context, workerID string) (WorkerSnapshot, error)
	LoadSession(ctx context.Context, workerID, month string) (WorkerMonth, error)
}

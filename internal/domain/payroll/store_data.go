package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LoadAllocation returns an empty config when nothing was saved for the worker.
func (s *Store) LoadAllocation(ctx context.Context, workerID string) (AllocationConfig, error) {
	var raw []byte
	err := s.DB.QueryRow(ctx, `
    SELECT config
    FROM payroll_allocation_configs
    WHERE worker_id = $1
  `, workerID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return AllocationConfig{}.Normalized(), nil
	}
	if err != nil {
		return AllocationConfig{}, err
	}

	var cfg AllocationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AllocationConfig{}, fmt.Errorf("decode allocation config %s: %w", workerID, err)
	}
	return cfg.Normalized(), nil
}

func (s *Store) SaveAllocation(ctx context.Context, workerID string, cfg AllocationConfig) error {
	raw, err := json.Marshal(cfg.Normalized())
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO payroll_allocation_configs (worker_id, config)
    VALUES ($1, $2)
    ON CONFLICT (worker_id) DO UPDATE
    SET config = EXCLUDED.config, updated_at = now()
  `, workerID, raw)
	return err
}

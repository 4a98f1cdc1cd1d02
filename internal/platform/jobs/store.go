package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"nomina/internal/platform/db"
)

// PGStore records job runs in the job_runs table.
type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{DB: pool}
}

func (s *PGStore) StartRun(ctx context.Context, run Run) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO job_runs (id, tenant_id, job_type, status, started_at)
    VALUES ($1,$2,$3,$4,$5)
  `, run.ID, run.TenantID, run.Type, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert job run: %w", db.Classify(err))
	}
	return nil
}

func (s *PGStore) FinishRun(ctx context.Context, runID, status string, details []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, runID)
	if err != nil {
		return fmt.Errorf("update job run: %w", db.Classify(err))
	}
	return nil
}

func (s *PGStore) GetRun(ctx context.Context, tenantID, runID string) (Run, error) {
	var run Run
	var details []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, runID).Scan(&run.ID, &run.TenantID, &run.Type, &run.Status, &details, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("get job run: %w", db.Classify(err))
	}
	run.Details = details
	return run, nil
}

// MemoryStore keeps runs in process.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: map[string]Run{}}
}

func (m *MemoryStore) StartRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryStore) FinishRun(_ context.Context, runID, status string, details []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	now := time.Now()
	run.Status = status
	run.Details = append(json.RawMessage(nil), details...)
	run.CompletedAt = &now
	m.runs[runID] = run
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, tenantID, runID string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok || run.TenantID != tenantID {
		return Run{}, ErrRunNotFound
	}
	return run, nil
}

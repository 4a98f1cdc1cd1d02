package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nomina/internal/domain/bulk"
	"nomina/internal/domain/labor"
)

const (
	JobLaborBulk    = "labor_bulk"
	JobLaborRecalc  = "labor_recalc"
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	defaultQueueSize = 128
)

var (
	ErrQueueFull   = errors.New("job queue full")
	ErrRunNotFound = errors.New("job run not found")
)

// Run is one recorded execution of a job.
type Run struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type RunStore interface {
	StartRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, runID, status string, details []byte) error
	GetRun(ctx context.Context, tenantID, runID string) (Run, error)
}

// LaborRunner is the bulk labor operation the scheduler drives.
type LaborRunner interface {
	ComputeBulk(ctx context.Context, tenantID string, req labor.BulkRequest) (bulk.Report[labor.Calculation], error)
}

type TenantLister func(ctx context.Context) ([]string, error)

type Options struct {
	QueueSize int
	// LaborRecalcInterval enables the scheduled current-year labor run when
	// positive. Tenants and Labor must then be set.
	LaborRecalcInterval time.Duration
	Tenants             TenantLister
	Labor               LaborRunner
	Now                 func() time.Time
}

type Service struct {
	runs  RunStore
	log   *zap.Logger
	opts  Options
	queue chan job
	wg    sync.WaitGroup
}

type job struct {
	ID       string
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(runs RunStore, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		runs:  runs,
		log:   log.Named("jobs"),
		opts:  opts,
		queue: make(chan job, opts.QueueSize),
	}
}

// Start launches the worker and, when configured, the labor scheduler. Both
// stop when ctx is cancelled; Wait blocks until they have.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
	if s.opts.LaborRecalcInterval > 0 && s.opts.Tenants != nil && s.opts.Labor != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.scheduleLaborRecalc(ctx, s.opts.LaborRecalcInterval)
		}()
	}
}

func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue queues run and returns the id its job_runs row will carry.
func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) (string, error) {
	j := job{ID: uuid.NewString(), Type: jobType, TenantID: tenantID, Run: run}
	select {
	case s.queue <- j:
		return j.ID, nil
	default:
		s.log.Warn("job queue full", zap.String("jobType", jobType), zap.String("tenantId", tenantID))
		return "", ErrQueueFull
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{ID: uuid.NewString(), Type: jobType, TenantID: tenantID, Run: run})
}

// Get returns a recorded run. Runs still waiting in the queue have no row yet
// and report ErrRunNotFound.
func (s *Service) Get(ctx context.Context, tenantID, runID string) (Run, error) {
	return s.runs.GetRun(ctx, tenantID, runID)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.log.Warn("job run failed",
					zap.String("jobId", j.ID),
					zap.String("jobType", j.Type),
					zap.String("tenantId", j.TenantID),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	recorded := true
	if err := s.runs.StartRun(ctx, Run{
		ID:        j.ID,
		TenantID:  j.TenantID,
		Type:      j.Type,
		Status:    StatusRunning,
		StartedAt: s.opts.Now(),
	}); err != nil {
		recorded = false
		s.log.Warn("job run insert failed", zap.String("jobId", j.ID), zap.Error(err))
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	detailsJSON, marshalErr := json.Marshal(runDetails(details, err))
	if marshalErr != nil {
		s.log.Warn("job details marshal failed", zap.String("jobId", j.ID), zap.Error(marshalErr))
		detailsJSON = []byte("{}")
	}
	if recorded {
		// the run's own ctx may already be done; the outcome is still written
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if updErr := s.runs.FinishRun(finishCtx, j.ID, status, detailsJSON); updErr != nil {
			s.log.Warn("job run update failed", zap.String("jobId", j.ID), zap.Error(updErr))
		}
	}
	return details, err
}

func runDetails(details any, err error) any {
	if err == nil {
		return details
	}
	return map[string]any{"result": details, "error": err.Error()}
}

func (s *Service) scheduleLaborRecalc(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.EnqueueLaborRecalc(ctx); err != nil {
				s.log.Warn("labor recalc scheduling failed", zap.Error(err))
			}
		}
	}
}

// EnqueueLaborRecalc queues a current-year bulk labor run for every tenant and
// returns the queued job ids.
func (s *Service) EnqueueLaborRecalc(ctx context.Context) ([]string, error) {
	tenants, err := s.opts.Tenants(ctx)
	if err != nil {
		return nil, err
	}
	year := s.opts.Now().Year()
	ids := make([]string, 0, len(tenants))
	for _, tenantID := range tenants {
		id, err := s.Enqueue(JobLaborRecalc, tenantID, LaborBulkJob(s.opts.Labor, tenantID, labor.BulkRequest{Year: year}))
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LaborBulkJob adapts a bulk labor run to a job body. The partial report is
// kept as the job's details when the run aborts.
func LaborBulkJob(runner LaborRunner, tenantID string, req labor.BulkRequest) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		report, err := runner.ComputeBulk(ctx, tenantID, req)
		return report, err
	}
}

package bulk

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nomina/internal/platform/db"
)

// ErrSkipped marks an employee that is deliberately left out of a run, for
// example because the hire date falls after the reference date.
var ErrSkipped = errors.New("employee skipped")

const CodeUnknown = "calculation_failed"

type Success[T any] struct {
	EmployeeID string `json:"employeeId"`
	Result     T      `json:"result"`
}

type Failure struct {
	EmployeeID string `json:"employeeId"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

type Skip struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

type Report[T any] struct {
	Successes    []Success[T] `json:"successes"`
	Failures     []Failure    `json:"failures"`
	Skipped      []Skip       `json:"skipped"`
	Pending      []string     `json:"pending,omitempty"`
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
	SkippedCount int          `json:"skippedCount"`
	Duration     string       `json:"duration"`
}

type Options struct {
	// Workers bounds how many employees are processed at once.
	Workers int
	// Timeout bounds a single employee's calculation and persistence.
	Timeout time.Duration
	// Classify turns an error into a stable failure code.
	Classify func(error) string
	// Fatal reports errors that abort the whole run. Defaults to an
	// unreachable store.
	Fatal  func(error) bool
	Logger *zap.Logger
}

type Runner struct {
	opts Options
}

func NewRunner(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Classify == nil {
		opts.Classify = func(error) string { return CodeUnknown }
	}
	if opts.Fatal == nil {
		opts.Fatal = db.IsUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Runner{opts: opts}
}

type outcome[T any] struct {
	attempted bool
	result    T
	err       error
}

// Run calls fn once per employee id. A failing employee is recorded and the
// run continues; only a fatal error (or cancellation of ctx) stops it early,
// in which case the partial report is returned together with that error.
// Report slices keep the order of ids.
func Run[T any](ctx context.Context, r *Runner, label string, ids []string, fn func(ctx context.Context, employeeID string) (T, error)) (Report[T], error) {
	started := time.Now()
	outcomes := make([]outcome[T], len(ids))

	var fatalOnce sync.Once
	var fatalErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			unitCtx := gctx
			if r.opts.Timeout > 0 {
				var cancel context.CancelFunc
				unitCtx, cancel = context.WithTimeout(gctx, r.opts.Timeout)
				defer cancel()
			}

			result, err := fn(unitCtx, id)
			if err != nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
				return nil
			}
			outcomes[i] = outcome[T]{attempted: true, result: result, err: err}
			if err != nil && r.opts.Fatal(err) {
				fatalOnce.Do(func() { fatalErr = err })
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report[T]{
		Successes: make([]Success[T], 0, len(ids)),
		Failures:  make([]Failure, 0),
		Skipped:   make([]Skip, 0),
	}
	for i, out := range outcomes {
		id := ids[i]
		switch {
		case !out.attempted:
			report.Pending = append(report.Pending, id)
		case out.err == nil:
			report.Successes = append(report.Successes, Success[T]{EmployeeID: id, Result: out.result})
		case errors.Is(out.err, ErrSkipped):
			report.Skipped = append(report.Skipped, Skip{EmployeeID: id, Reason: out.err.Error()})
		default:
			report.Failures = append(report.Failures, Failure{
				EmployeeID: id,
				Code:       r.opts.Classify(out.err),
				Reason:     out.err.Error(),
			})
			r.opts.Logger.Warn("bulk unit failed",
				zap.String("run", label),
				zap.String("employeeId", id),
				zap.Error(out.err),
			)
		}
	}
	report.SuccessCount = len(report.Successes)
	report.FailureCount = len(report.Failures)
	report.SkippedCount = len(report.Skipped)
	report.Duration = time.Since(started).Round(time.Millisecond).String()

	runErr := fatalErr
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	r.opts.Logger.Info("bulk run finished",
		zap.String("run", label),
		zap.Int("employees", len(ids)),
		zap.Int("successes", report.SuccessCount),
		zap.Int("failures", report.FailureCount),
		zap.Int("skipped", report.SkippedCount),
		zap.Int("pending", len(report.Pending)),
		zap.String("duration", report.Duration),
		zap.Bool("aborted", runErr != nil),
	)
	return report, runErr
}

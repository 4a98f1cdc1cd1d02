package laborhandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"nomina/internal/domain/auth"
	"nomina/internal/domain/bulk"
	"nomina/internal/domain/labor"
	"nomina/internal/platform/jobs"
	"nomina/internal/requestctx"
	"nomina/internal/transport/http/api"
	"nomina/internal/transport/http/middleware"
	"nomina/internal/transport/http/shared"
)

type Service interface {
	Compute(ctx context.Context, tenantID, employeeID string, year int) (labor.Calculation, error)
	ComputeBulk(ctx context.Context, tenantID string, req labor.BulkRequest) (bulk.Report[labor.Calculation], error)
	List(ctx context.Context, tenantID string, filter labor.Filter) ([]labor.Calculation, error)
}

type JobQueue interface {
	Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) (string, error)
	Get(ctx context.Context, tenantID, runID string) (jobs.Run, error)
}

type Handler struct {
	Service Service
	Jobs    JobQueue
	Perms   middleware.PermissionStore
	// RunLimit throttles the routes that start calculation runs; nil disables.
	RunLimit func(http.Handler) http.Handler
}

func NewHandler(svc Service, queue JobQueue, perms middleware.PermissionStore, runLimit func(http.Handler) http.Handler) *Handler {
	return &Handler{Service: svc, Jobs: queue, Perms: perms, RunLimit: runLimit}
}

type computePayload struct {
	EmployeeID string `json:"employeeId"`
	Year       int    `json:"year"`
}

type bulkPayload struct {
	Year        int      `json:"year"`
	EmployeeIDs []string `json:"employeeIds"`
}

type jobAccepted struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/labor-calculations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLaborRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermLaborRun, h.Perms)).Post("/", h.handleCompute)
		r.With(middleware.RequirePermission(auth.PermLaborRun, h.Perms), h.runLimit).Post("/bulk", h.handleBulk)
		r.With(middleware.RequirePermission(auth.PermLaborRead, h.Perms)).Get("/jobs/{jobID}", h.handleGetJob)
	})
}

func (h *Handler) runLimit(next http.Handler) http.Handler {
	if h.RunLimit == nil {
		return next
	}
	return h.RunLimit(next)
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload computePayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.ID("employeeId", payload.EmployeeID)
	v.Year("year", payload.Year, labor.MinYear, labor.MaxYear)
	if v.Reject(w, reqID) {
		return
	}

	calc, err := h.Service.Compute(r.Context(), user.TenantID, strings.TrimSpace(payload.EmployeeID), payload.Year)
	if err != nil {
		shared.FailCode(w, labor.ErrorCode(err), err, reqID)
		return
	}
	api.Success(w, calc, reqID)
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload bulkPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Year("year", payload.Year, labor.MinYear, labor.MaxYear)
	for i, id := range payload.EmployeeIDs {
		v.ID("employeeIds["+strconv.Itoa(i)+"]", id)
	}
	if v.Reject(w, reqID) {
		return
	}
	req := labor.BulkRequest{Year: payload.Year, EmployeeIDs: payload.EmployeeIDs}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.enqueueBulk(w, r, user, req)
		return
	}

	report, err := h.Service.ComputeBulk(r.Context(), user.TenantID, req)
	if err != nil {
		code := labor.ErrorCode(err)
		api.FailWithDetails(w, api.StatusForCode(code), code, "bulk run aborted", report, reqID)
		return
	}
	api.Success(w, report, reqID)
}

func (h *Handler) enqueueBulk(w http.ResponseWriter, r *http.Request, user auth.UserContext, req labor.BulkRequest) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Jobs == nil {
		api.Fail(w, http.StatusServiceUnavailable, "jobs_unavailable", "background jobs are not enabled", reqID)
		return
	}
	run := jobs.LaborBulkJob(h.Service, user.TenantID, req)
	jobID, err := h.Jobs.Enqueue(jobs.JobLaborBulk, user.TenantID, func(ctx context.Context) (any, error) {
		ctx = requestctx.WithActor(ctx, user.UserID)
		ctx = requestctx.WithRequestID(ctx, reqID)
		return run(ctx)
	})
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "queue_full", "job queue is full, retry later", reqID)
		return
	}
	api.Accepted(w, jobAccepted{JobID: jobID, Status: jobs.StatusQueued}, reqID)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	if h.Jobs == nil {
		api.Fail(w, http.StatusNotFound, "job_not_found", "job not found", reqID)
		return
	}

	run, err := h.Jobs.Get(r.Context(), user.TenantID, chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, jobs.ErrRunNotFound) {
			api.Fail(w, http.StatusNotFound, "job_not_found", "job not found or still queued", reqID)
			return
		}
		shared.FailCode(w, labor.ErrorCode(err), err, reqID)
		return
	}
	api.Success(w, run, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	v := shared.NewValidator()
	filter := labor.Filter{EmployeeID: strings.TrimSpace(query.Get("employeeId"))}
	if filter.EmployeeID != "" {
		v.ID("employeeId", filter.EmployeeID)
	}
	if raw := query.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			v.Add("year", "must be a number")
		} else {
			v.Year("year", year, labor.MinYear, labor.MaxYear)
			filter.Year = year
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	calcs, err := h.Service.List(r.Context(), user.TenantID, filter)
	if err != nil {
		shared.FailCode(w, labor.ErrorCode(err), err, reqID)
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	api.Success(w, map[string]any{
		"items": shared.Page(calcs, page),
		"meta":  shared.Meta(len(calcs), page),
	}, reqID)
}

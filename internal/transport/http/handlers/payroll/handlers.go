package payrollhandler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"nomina/internal/domain/auth"
	"nomina/internal/domain/payroll"
	"nomina/internal/transport/http/api"
	"nomina/internal/transport/http/middleware"
	"nomina/internal/transport/http/shared"
)

type Service interface {
	CreatePeriod(ctx context.Context, tenantID string, in payroll.NewPeriod) (payroll.Period, error)
	GetPeriod(ctx context.Context, tenantID, periodID string) (payroll.Period, error)
	ListPeriods(ctx context.Context, tenantID string) ([]payroll.Period, error)
	RecordTimeEntry(ctx context.Context, tenantID string, in payroll.NewTimeRecord) (payroll.TimeRecord, error)
	ListTimeEntries(ctx context.Context, tenantID string, filter payroll.TimeFilter) ([]payroll.TimeRecord, error)
	ComputePayrollForPeriod(ctx context.Context, tenantID, periodID string) (payroll.Computation, error)
	CalculatePeriod(ctx context.Context, tenantID, periodID string) (payroll.CalculationResult, error)
	AdvancePeriod(ctx context.Context, tenantID, periodID, status string) (payroll.Period, error)
	ListEntries(ctx context.Context, tenantID, periodID string) ([]payroll.Entry, error)
	Summary(ctx context.Context, tenantID, periodID string) (payroll.Summary, error)
}

type Handler struct {
	Service  Service
	Perms    middleware.PermissionStore
	RunLimit func(http.Handler) http.Handler
}

func NewHandler(svc Service, perms middleware.PermissionStore, runLimit func(http.Handler) http.Handler) *Handler {
	return &Handler{Service: svc, Perms: perms, RunLimit: runLimit}
}

type periodPayload struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	PayDate   string `json:"payDate"`
	Type      string `json:"type"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type timeEntryPayload struct {
	EmployeeID    string  `json:"employeeId"`
	Date          string  `json:"date"`
	ClockIn       string  `json:"clockIn"`
	ClockOut      string  `json:"clockOut"`
	BreakStart    string  `json:"breakStart"`
	BreakEnd      string  `json:"breakEnd"`
	RegularHours  *string `json:"regularHours"`
	OvertimeHours *string `json:"overtimeHours"`
	Notes         string  `json:"notes"`
}

var (
	periodTypes    = []string{payroll.PeriodTypeWeekly, payroll.PeriodTypeBiweekly, payroll.PeriodTypeMonthly}
	periodStatuses = []string{payroll.PeriodStatusDraft, payroll.PeriodStatusProcessing, payroll.PeriodStatusProcessed, payroll.PeriodStatusPaid}
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods", h.handleListPeriods)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Post("/periods", h.handleCreatePeriod)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods/{periodID}", h.handleGetPeriod)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods/{periodID}/preview", h.handlePreview)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms), h.runLimit).Post("/periods/{periodID}/calculate", h.handleCalculate)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/periods/{periodID}/status", h.handleAdvance)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods/{periodID}/entries", h.handleListEntries)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/periods/{periodID}/summary", h.handleSummary)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/time-entries", h.handleListTimeEntries)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Post("/time-entries", h.handleRecordTimeEntry)
	})
}

func (h *Handler) runLimit(next http.Handler) http.Handler {
	if h.RunLimit == nil {
		return next
	}
	return h.RunLimit(next)
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	periods, err := h.Service.ListPeriods(r.Context(), user.TenantID)
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	api.Success(w, map[string]any{
		"items": shared.Page(periods, page),
		"meta":  shared.Meta(len(periods), page),
	}, reqID)
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload periodPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	payDate, _ := v.Date("payDate", payload.PayDate)
	v.DateOrder("startDate", start, "endDate", end)
	v.Enum("type", payload.Type, periodTypes, "must be WEEKLY, BIWEEKLY or MONTHLY")
	if v.Reject(w, reqID) {
		return
	}

	period, err := h.Service.CreatePeriod(r.Context(), user.TenantID, payroll.NewPeriod{
		Name:      payload.Name,
		StartDate: start,
		EndDate:   end,
		PayDate:   payDate,
		Type:      strings.ToUpper(strings.TrimSpace(payload.Type)),
	})
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	api.Created(w, period, reqID)
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	period, err := h.Service.GetPeriod(r.Context(), user.TenantID, chi.URLParam(r, "periodID"))
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	api.Success(w, period, reqID)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	comp, err := h.Service.ComputePayrollForPeriod(r.Context(), user.TenantID, chi.URLParam(r, "periodID"))
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	api.Success(w, comp, reqID)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	result, err := h.Service.CalculatePeriod(r.Context(), user.TenantID, chi.URLParam(r, "periodID"))
	if err != nil {
		code := payroll.ErrorCode(err)
		if result.Period.ID == "" {
			shared.FailCode(w, code, err, reqID)
			return
		}
		api.FailWithDetails(w, api.StatusForCode(code), code, "payroll calculation aborted", result.Report, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload statusPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Enum("status", payload.Status, periodStatuses, "must be DRAFT, PROCESSING, PROCESSED or PAID")
	if v.Reject(w, reqID) {
		return
	}

	period, err := h.Service.AdvancePeriod(r.Context(), user.TenantID, chi.URLParam(r, "periodID"), strings.ToUpper(strings.TrimSpace(payload.Status)))
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	api.Success(w, period, reqID)
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	entries, err := h.Service.ListEntries(r.Context(), user.TenantID, chi.URLParam(r, "periodID"))
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	api.Success(w, map[string]any{
		"items": shared.Page(entries, page),
		"meta":  shared.Meta(len(entries), page),
	}, reqID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	summary, err := h.Service.Summary(r.Context(), user.TenantID, chi.URLParam(r, "periodID"))
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	api.Success(w, summary, reqID)
}

func (h *Handler) handleListTimeEntries(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	v := shared.NewValidator()
	filter := payroll.TimeFilter{EmployeeID: strings.TrimSpace(query.Get("employeeId"))}
	if filter.EmployeeID != "" {
		v.ID("employeeId", filter.EmployeeID)
	}
	filter.From = optionalDate(v, "from", query.Get("from"))
	filter.To = optionalDate(v, "to", query.Get("to"))
	v.DateOrder("from", filter.From, "to", filter.To)
	if v.Reject(w, reqID) {
		return
	}

	records, err := h.Service.ListTimeEntries(r.Context(), user.TenantID, filter)
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	api.Success(w, map[string]any{
		"items": shared.Page(records, page),
		"meta":  shared.Meta(len(records), page),
	}, reqID)
}

func (h *Handler) handleRecordTimeEntry(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload timeEntryPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.ID("employeeId", payload.EmployeeID)
	date, _ := v.Date("date", payload.Date)
	in := payroll.NewTimeRecord{
		EmployeeID:    strings.TrimSpace(payload.EmployeeID),
		Date:          date,
		ClockIn:       v.Time("clockIn", payload.ClockIn),
		ClockOut:      v.Time("clockOut", payload.ClockOut),
		BreakStart:    v.Time("breakStart", payload.BreakStart),
		BreakEnd:      v.Time("breakEnd", payload.BreakEnd),
		RegularHours:  v.Hours("regularHours", payload.RegularHours),
		OvertimeHours: v.Hours("overtimeHours", payload.OvertimeHours),
		Notes:         payload.Notes,
	}
	if v.Reject(w, reqID) {
		return
	}

	rec, err := h.Service.RecordTimeEntry(r.Context(), user.TenantID, in)
	if err != nil {
		shared.FailCode(w, payroll.ErrorCode(err), err, reqID)
		return
	}
	api.Created(w, rec, reqID)
}

func optionalDate(v *shared.Validator, field, raw string) time.Time {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}
	}
	parsed, _ := v.Date(field, raw)
	return parsed
}

package payrollhandler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomina/internal/domain/auth"
	"nomina/internal/domain/bulk"
	"nomina/internal/domain/payroll"
	"nomina/internal/store/memory"
	payrollhandler "nomina/internal/transport/http/handlers/payroll"
	"nomina/internal/transport/http/middleware"
)

const (
	secret = "handler-test-secret"
	tenant = "tenant-1"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type harness struct {
	router http.Handler
	store  *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	svc := payroll.NewService(store, payroll.DefaultRates(payroll.DefaultOtherDeductions), bulk.Options{Workers: 2, Timeout: time.Second}, nil)
	h := payrollhandler.NewHandler(svc, auth.StaticPermissions{}, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(secret))
	r.Route("/api/v1", h.RegisterRoutes)
	return &harness{router: r, store: store}
}

func (h *harness) do(t *testing.T, method, path, role string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		tok, err := auth.GenerateToken(secret, auth.Claims{UserID: "user-1", TenantID: tenant, RoleID: role, RoleName: role}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (h *harness) createPeriod(t *testing.T) payroll.Period {
	t.Helper()
	status, env := h.do(t, http.MethodPost, "/api/v1/payroll/periods", auth.RoleHR, map[string]any{
		"name":      "March 1-15",
		"startDate": "2024-03-01",
		"endDate":   "2024-03-15",
		"payDate":   "2024-03-16",
		"type":      "biweekly",
	})
	require.Equal(t, http.StatusCreated, status)
	var period payroll.Period
	require.NoError(t, json.Unmarshal(env.Data, &period))
	require.Equal(t, payroll.PeriodStatusDraft, period.Status)
	require.Equal(t, payroll.PeriodTypeBiweekly, period.Type)
	return period
}

func TestPeriodLifecycle(t *testing.T) {
	h := newHarness(t)
	empID := h.store.AddEmployee(tenant, memory.Employee("Ana", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "800"))
	period := h.createPeriod(t)

	// 08:00-19:00 with a one hour break: 8 regular, 2 overtime
	status, env := h.do(t, http.MethodPost, "/api/v1/payroll/time-entries", auth.RoleManager, map[string]any{
		"employeeId": empID,
		"date":       "2024-03-04",
		"clockIn":    "2024-03-04T08:00:00Z",
		"clockOut":   "2024-03-04T19:00:00Z",
		"breakStart": "2024-03-04T13:00:00Z",
		"breakEnd":   "2024-03-04T14:00:00Z",
	})
	require.Equal(t, http.StatusCreated, status, env)
	var rec payroll.TimeRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "8", rec.RegularHours.String())
	assert.Equal(t, "2", rec.OvertimeHours.String())

	status, env = h.do(t, http.MethodGet, "/api/v1/payroll/periods/"+period.ID+"/preview", auth.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, status)
	var preview payroll.Computation
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	require.Len(t, preview.Entries, 1)
	// 8 x 100 + 2 x 150
	assert.Equal(t, "1100", preview.Entries[0].GrossPay.String())

	status, env = h.do(t, http.MethodPost, "/api/v1/payroll/periods/"+period.ID+"/calculate", auth.RolePayroll, nil)
	require.Equal(t, http.StatusOK, status)
	var result payroll.CalculationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, payroll.PeriodStatusProcessing, result.Period.Status)
	assert.Equal(t, 1, result.Report.SuccessCount)

	status, env = h.do(t, http.MethodGet, "/api/v1/payroll/periods/"+period.ID+"/summary", auth.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, status)
	var summary payroll.Summary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.TotalEmployees)
	assert.Equal(t, "1100", summary.TotalGrossPay.String())

	status, _ = h.do(t, http.MethodPost, "/api/v1/payroll/periods/"+period.ID+"/status", auth.RolePayroll, map[string]any{"status": "processed"})
	require.Equal(t, http.StatusOK, status)

	status, env = h.do(t, http.MethodPost, "/api/v1/payroll/periods/"+period.ID+"/calculate", auth.RolePayroll, nil)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "period_locked", env.Error.Code)

	status, env = h.do(t, http.MethodPost, "/api/v1/payroll/periods/"+period.ID+"/status", auth.RolePayroll, map[string]any{"status": "DRAFT"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", env.Error.Code)

	status, env = h.do(t, http.MethodGet, "/api/v1/payroll/periods/"+period.ID+"/entries", auth.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Items []payroll.Entry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, payroll.EntryStatusApproved, list.Items[0].Status)
}

func TestPeriodValidationAndNotFound(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodPost, "/api/v1/payroll/periods", auth.RoleHR, map[string]any{
		"name":      "",
		"startDate": "2024-03-15",
		"endDate":   "2024-03-01",
		"payDate":   "bad",
		"type":      "YEARLY",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	status, env = h.do(t, http.MethodGet, "/api/v1/payroll/periods/0b6f5c1e-8f8e-4d43-9b55-0f6a3e0b9d21", auth.RoleHR, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "period_not_found", env.Error.Code)

	status, _ = h.do(t, http.MethodPost, "/api/v1/payroll/periods/x/calculate", auth.RoleEmployee, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestTimeEntryValidation(t *testing.T) {
	h := newHarness(t)
	empID := h.store.AddEmployee(tenant, memory.Employee("Ana", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "800"))

	status, env := h.do(t, http.MethodPost, "/api/v1/payroll/time-entries", auth.RoleHR, map[string]any{
		"employeeId":   empID,
		"date":         "2024-03-04",
		"regularHours": "-2",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	// clock out before clock in is rejected by the domain
	status, env = h.do(t, http.MethodPost, "/api/v1/payroll/time-entries", auth.RoleHR, map[string]any{
		"employeeId": empID,
		"date":       "2024-03-04",
		"clockIn":    "2024-03-04T18:00:00Z",
		"clockOut":   "2024-03-04T08:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	status, env = h.do(t, http.MethodGet, "/api/v1/payroll/time-entries?employeeId="+empID+"&from=2024-03-10&to=2024-03-01", auth.RoleHR, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)
}

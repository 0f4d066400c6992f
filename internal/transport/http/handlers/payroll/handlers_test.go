package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/payroll"
	"workforce/internal/platform/metrics"
	"workforce/internal/transport/http/middleware"
)

type stubDirectory struct {
	worker payroll.Worker
	down   bool
}

func (s stubDirectory) Snapshot(_ context.Context, workerID string) (payroll.WorkerSnapshot, error) {
	if s.down {
		return payroll.WorkerSnapshot{}, fmt.Errorf("%w: upstream 502", payroll.ErrDirectoryUnavailable)
	}
	if workerID != s.worker.ID {
		return payroll.WorkerSnapshot{}, payroll.ErrWorkerNotFound
	}
	return payroll.WorkerSnapshot{Worker: s.worker, FetchedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (s stubDirectory) LoadSession(ctx context.Context, workerID, month string) (payroll.WorkerMonth, error) {
	snapshot, err := s.Snapshot(ctx, workerID)
	if err != nil {
		return payroll.WorkerMonth{}, err
	}
	eight := 8.0
	return payroll.NewWorkerMonth(snapshot, month, []payroll.TimeEntry{
		{Date: month + "-03", Hours: &eight, CompanyID: "a", CompanyName: "A"},
	}), nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, dir stubDirectory, store payroll.ConfigStore) http.Handler {
	t.Helper()
	svc := payroll.NewService(dir, store, metrics.New())
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Route("/api/v1", func(r chi.Router) {
		NewHandler(svc, middleware.RateLimit(1, time.Minute)).RegisterRoutes(r)
	})
	return router
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func testWorker() payroll.Worker {
	return payroll.Worker{ID: "w1", FirstName: "Ana", LastName: "Ruiz", BaseSalary: 1500}
}

func calculatePayload() map[string]any {
	return map[string]any{
		"worker": testWorker(),
		"base":   map[string]string{"baseSalary": "1500", "overtimeHours": "10"},
		"calendar": []payroll.CompanyHours{
			{CompanyID: "a", Name: "A", Hours: 100},
			{CompanyID: "b", Name: "B", Hours: 60},
		},
	}
}

func TestSnapshotStatuses(t *testing.T) {
	router := newTestRouter(t, stubDirectory{worker: testWorker()}, nil)

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/workers/w1/snapshot", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/workers/ghost/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "worker_not_found", env.Error.Code)

	down := newTestRouter(t, stubDirectory{worker: testWorker(), down: true}, nil)
	rec, env = doJSON(t, down, http.MethodGet, "/api/v1/workers/w1/snapshot", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "directory_unavailable", env.Error.Code)
}

func TestWorkerHoursValidatesMonth(t *testing.T) {
	router := newTestRouter(t, stubDirectory{worker: testWorker()}, nil)

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/workers/w1/hours", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/workers/w1/hours?month=2025-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var month payroll.WorkerMonth
	require.NoError(t, json.Unmarshal(env.Data, &month))
	assert.Equal(t, 8.0, month.TotalHours)
	assert.Equal(t, "2025-03", month.Month)
}

func TestAggregateHours(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)
	four := 4.0
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/hours", hoursPayload{
		Month: "2025-03",
		Entries: []payroll.TimeEntry{
			{Date: "2025-03-01", Hours: &four, CompanyName: "Acme"},
			{Date: "2025-03-01", Shifts: []payroll.Shift{{Start: "14:00", End: "16:00"}}, CompanyName: "Acme"},
			{Date: "2025-04-01", Hours: &four, CompanyName: "Acme"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TotalHours float64                `json:"totalHours"`
		Totals     []payroll.CompanyHours `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, 6.0, body.TotalHours)
	require.Len(t, body.Totals, 1)
	assert.Equal(t, 6.0, body.Totals[0].Hours)
}

func TestCalculateEndpoint(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/calculate", calculatePayload())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp payroll.CalculateResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, payroll.ModeCalendar, resp.Result.Mode)
	assert.Equal(t, 1640.625, resp.Result.TotalAmount)
	assert.Len(t, resp.Result.CompanyBreakdown, 2)

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/payroll/calculate", map[string]any{"worker": map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestCalculateRejectsMalformedJSON(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/calculate", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerEditValidation(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/ledger", map[string]any{
		"workerId": "w1", "contractId": "k1", "field": "hours", "value": "12",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var ledger payroll.ContractLedger
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	assert.True(t, ledger.IsOverridden("k1"))

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/payroll/ledger", map[string]any{
		"workerId": "w1", "contractId": "k1", "field": "baseSalary", "value": "-50",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	assert.Equal(t, "-50", ledger.Input("k1").BaseSalary)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/payroll/ledger", map[string]any{
		"workerId": "w1", "contractId": "k1", "field": "shoeSize", "value": "2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func ledgerCalculatePayload(session map[string]any) map[string]any {
	worker := testWorker()
	worker.Employers = []payroll.Employer{{
		CompanyID: "a",
		Name:      "A",
		Contracts: []payroll.CompanyContract{{ID: "k1", CompanyID: "a", CompanyName: "A", HasContract: true}},
	}}
	return map[string]any{
		"worker":  worker,
		"base":    map[string]string{"baseSalary": "1500"},
		"session": session,
	}
}

func TestCalculateUsesPostedLedger(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)
	inputs := map[string]any{"k1": map[string]string{"hours": "160", "hourlyRate": "10"}}

	sessions := map[string]map[string]any{
		"unbound session": {"ledger": map[string]any{"inputs": inputs}},
		"bound session":   {"workerId": "w1", "ledger": map[string]any{"workerId": "w1", "inputs": inputs}},
	}
	for name, session := range sessions {
		t.Run(name, func(t *testing.T) {
			rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/calculate", ledgerCalculatePayload(session))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp payroll.CalculateResponse
			require.NoError(t, json.Unmarshal(env.Data, &resp))
			assert.Equal(t, payroll.ModeManualLedger, resp.Result.Mode)
			assert.Equal(t, 1600.0, resp.Result.TotalAmount)
			assert.Empty(t, resp.Advisories)
		})
	}

	stale := map[string]any{"workerId": "w0", "ledger": map[string]any{"workerId": "w0", "inputs": inputs}}
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/calculate", ledgerCalculatePayload(stale))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp payroll.CalculateResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotEqual(t, payroll.ModeManualLedger, resp.Result.Mode)
	require.Len(t, resp.Advisories, 1)
	assert.Equal(t, payroll.AdvisorySessionReset, resp.Advisories[0].Code)
}

func TestOtherPaymentsEndpoint(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/other-payments", payroll.OtherPaymentRequest{
		Action: payroll.OtherPaymentAdd, Category: payroll.CategoryBonuses, Label: "Night shift", Amount: "50",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var added payroll.OtherPaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &added))
	require.NotNil(t, added.Item)
	assert.NotEmpty(t, added.Item.ID)
	assert.Equal(t, 50.0, added.Totals.Additions)
	assert.Empty(t, added.Advisories)

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/payroll/other-payments", payroll.OtherPaymentRequest{
		OtherPayments: added.OtherPayments, Action: payroll.OtherPaymentRemove, Category: payroll.CategoryBonuses, ItemID: "missing",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var missed payroll.OtherPaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &missed))
	require.Len(t, missed.Advisories, 1)
	assert.Equal(t, payroll.AdvisoryInvalidOtherPayment, missed.Advisories[0].Code)
	assert.Len(t, missed.OtherPayments[payroll.CategoryBonuses], 1)

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/payroll/other-payments", payroll.OtherPaymentRequest{
		OtherPayments: added.OtherPayments, Action: payroll.OtherPaymentRemove, Category: payroll.CategoryBonuses, ItemID: added.Item.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var removed payroll.OtherPaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Empty(t, removed.OtherPayments)
	assert.Equal(t, 0.0, removed.Totals.Additions)

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/payroll/other-payments", map[string]string{"action": "remove", "category": "bonuses"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestAutoFillEndpoint(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)
	worker := testWorker()
	worker.Employers = []payroll.Employer{{
		CompanyID: "a",
		Name:      "A",
		Contracts: []payroll.CompanyContract{{ID: "k1", HasContract: true}, {ID: "k2", HasContract: true}},
	}}

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/autofill", payroll.AutoFillRequest{
		Worker:   worker,
		Ledger:   payroll.NewContractLedger("w1"),
		Company:  "id:a",
		Action:   payroll.AutoFillEnable,
		Calendar: []payroll.CompanyHours{{CompanyID: "a", Name: "A", Hours: 15}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var ledger payroll.ContractLedger
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	assert.Equal(t, "7.5", ledger.Input("k2").Hours)

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/payroll/autofill", payroll.AutoFillRequest{
		Worker: worker, Company: "id:zzz", Action: payroll.AutoFillEnable,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "employer_not_found", env.Error.Code)
}

func TestAllocationCommandReturnsAdvisory(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/allocation/commands", payroll.CommandRequest{
		Command:   payroll.AllocationCommand{Type: payroll.CommandAddSplitRule, Source: "id:a", Rule: payroll.SplitPaymentRule{TargetKey: "id:zzz"}},
		Available: []payroll.CompanyKey{"id:a", "id:b"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp commandResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Advisories, 1)
	assert.Equal(t, payroll.AdvisorySplitUnknownTarget, resp.Advisories[0].Code)
}

type mapStore map[string]payroll.AllocationConfig

func (m mapStore) LoadAllocation(_ context.Context, workerID string) (payroll.AllocationConfig, error) {
	return m[workerID].Normalized(), nil
}

func (m mapStore) SaveAllocation(_ context.Context, workerID string, cfg payroll.AllocationConfig) error {
	m[workerID] = cfg
	return nil
}

func TestAllocationPersistenceEndpoints(t *testing.T) {
	disabled := newTestRouter(t, stubDirectory{}, nil)
	rec, env := doJSON(t, disabled, http.MethodGet, "/api/v1/workers/w1/allocation", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "persistence_disabled", env.Error.Code)

	store := mapStore{}
	router := newTestRouter(t, stubDirectory{}, store)
	cfg := payroll.AllocationConfig{Splits: payroll.SplitConfigs{
		"id:a": {Mode: payroll.SplitSplit, Rules: []payroll.SplitPaymentRule{{ID: "r1", TargetKey: "id:b", Mode: payroll.RulePercentage, Value: "50"}}},
	}}
	rec, _ = doJSON(t, router, http.MethodPut, "/api/v1/workers/w1/allocation", cfg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, store, "w1")

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/workers/w1/allocation?available=id:a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded payroll.AllocationConfig
	require.NoError(t, json.Unmarshal(env.Data, &loaded))
	assert.Empty(t, loaded.Splits["id:a"].Rules)
}

func TestExportReturnsPDFAndIsRateLimited(t *testing.T) {
	router := newTestRouter(t, stubDirectory{}, nil)
	payload := calculatePayload()
	payload["periodLabel"] = "March 2025"

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/payroll/export", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payroll.PDFContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="payroll-ana-ruiz-march-2025.pdf"`)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/payroll/export", payload)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", env.Error.Code)
}

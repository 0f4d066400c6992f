package payrollhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"workforce/internal/domain/payroll"
	"workforce/internal/requestctx"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

type Handler struct {
	Service     *payroll.Service
	ExportGuard []func(http.Handler) http.Handler
}

// NewHandler builds the payroll routes. exportGuard wraps only the PDF export, which is
// the expensive endpoint.
func NewHandler(svc *payroll.Service, exportGuard ...func(http.Handler) http.Handler) *Handler {
	return &Handler{Service: svc, ExportGuard: exportGuard}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/workers/{workerID}", func(r chi.Router) {
		r.Get("/snapshot", h.handleSnapshot)
		r.Get("/hours", h.handleWorkerHours)
		r.Get("/allocation", h.handleLoadAllocation)
		r.Put("/allocation", h.handleSaveAllocation)
	})
	r.Route("/payroll", func(r chi.Router) {
		r.Post("/hours", h.handleAggregateHours)
		r.Post("/autofill", h.handleAutoFill)
		r.Post("/ledger", h.handleLedgerEdit)
		r.Post("/other-payments", h.handleOtherPayments)
		r.Post("/calculate", h.handleCalculate)
		r.Post("/allocation/commands", h.handleAllocationCommand)
		r.With(h.ExportGuard...).Post("/export", h.handleExport)
	})
}

type hoursPayload struct {
	Month   string              `json:"month"`
	Entries []payroll.TimeEntry `json:"entries"`
}

type commandResponse struct {
	Allocation payroll.AllocationConfig `json:"allocation"`
	Advisories []payroll.Advisory       `json:"advisories"`
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Service.Snapshot(r.Context(), chi.URLParam(r, "workerID"))
	if err != nil {
		failDirectory(w, r, err)
		return
	}
	api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWorkerHours(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	validator := shared.NewValidator()
	raw := r.URL.Query().Get("month")
	validator.Required("month", raw, "is required")
	month, _ := validator.Month("month", raw)
	if validator.Reject(w, reqID) {
		return
	}

	result, err := h.Service.WorkerMonth(r.Context(), chi.URLParam(r, "workerID"), month)
	if err != nil {
		failDirectory(w, r, err)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleAggregateHours(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload hoursPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	month, _ := validator.Month("month", payload.Month)
	if validator.Reject(w, reqID) {
		return
	}

	result := payroll.NewWorkerMonth(payroll.WorkerSnapshot{}, month, payload.Entries)
	api.Success(w, map[string]any{
		"month":      result.Month,
		"days":       result.Days,
		"totals":     result.Totals,
		"totalHours": result.TotalHours,
	}, reqID)
}

func (h *Handler) handleAutoFill(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payroll.AutoFillRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Required("worker.id", payload.Worker.ID, "is required")
	validator.Required("action", payload.Action, "is required")
	validator.Enum("action", payload.Action, []string{payroll.AutoFillEnable, payroll.AutoFillDisable, payroll.AutoFillRefresh}, "must be enable, disable or refresh")
	if payload.Action != payroll.AutoFillRefresh {
		validator.Required("company", string(payload.Company), "is required")
	}
	if validator.Reject(w, reqID) {
		return
	}

	ledger, err := h.Service.AutoFill(payload)
	if errors.Is(err, payroll.ErrEmployerNotFound) {
		api.Fail(w, http.StatusNotFound, "employer_not_found", err.Error(), reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "autofill_failed", err.Error(), reqID)
		return
	}
	api.Success(w, ledger, reqID)
}

func (h *Handler) handleLedgerEdit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payroll.LedgerEditRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Required("workerId", payload.WorkerID, "is required")
	validator.Required("contractId", payload.ContractID, "is required")
	validator.Required("field", string(payload.Field), "is required")
	validator.Enum("field", string(payload.Field), []string{string(payroll.FieldHours), string(payroll.FieldBaseSalary), string(payroll.FieldHourlyRate)}, "must be hours, baseSalary or hourlyRate")
	if validator.Reject(w, reqID) {
		return
	}

	api.Success(w, h.Service.EditLedger(payload), reqID)
}

func (h *Handler) handleOtherPayments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payroll.OtherPaymentRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Required("action", payload.Action, "is required")
	validator.Enum("action", payload.Action, []string{payroll.OtherPaymentAdd, payroll.OtherPaymentRemove}, "must be add or remove")
	if payload.Action == payroll.OtherPaymentRemove {
		validator.Required("itemId", payload.ItemID, "is required")
	}
	if validator.Reject(w, reqID) {
		return
	}

	api.Success(w, h.Service.EditOtherPayments(payload), reqID)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payroll.CalculateRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if rejectWithoutWorker(w, reqID, payload.Worker) {
		return
	}
	api.Success(w, h.Service.Calculate(payload), reqID)
}

func (h *Handler) handleAllocationCommand(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payroll.CommandRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Required("command.type", payload.Command.Type, "is required")
	if validator.Reject(w, reqID) {
		return
	}

	cfg, advisories := h.Service.ApplyCommand(payload)
	api.Success(w, commandResponse{Allocation: cfg, Advisories: advisories}, reqID)
}

func (h *Handler) handleLoadAllocation(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var available []payroll.CompanyKey
	if raw := r.URL.Query().Get("available"); raw != "" {
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				available = append(available, payroll.CompanyKey(key))
			}
		}
	}

	cfg, err := h.Service.LoadAllocation(r.Context(), chi.URLParam(r, "workerID"), available)
	if err != nil {
		failStore(w, r, err)
		return
	}
	api.Success(w, cfg, reqID)
}

func (h *Handler) handleSaveAllocation(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payroll.AllocationConfig
	if !decodeJSON(w, r, &payload) {
		return
	}
	payload = payload.Normalized()
	if err := h.Service.SaveAllocation(r.Context(), chi.URLParam(r, "workerID"), payload); err != nil {
		failStore(w, r, err)
		return
	}
	api.Success(w, payload, reqID)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payroll.ExportRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if rejectWithoutWorker(w, reqID, payload.Worker) {
		return
	}

	doc, err := h.Service.Export(payload)
	if err != nil {
		requestctx.Logger(r.Context()).Error("payroll export failed", "workerId", payload.Worker.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to build payroll document", reqID)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		requestctx.Logger(r.Context()).Warn("payroll export write failed", "err", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", middleware.GetRequestID(r.Context()))
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

func rejectWithoutWorker(w http.ResponseWriter, reqID string, worker payroll.Worker) bool {
	validator := shared.NewValidator()
	validator.Required("worker.id", worker.ID, "is required")
	return validator.Reject(w, reqID)
}

func failDirectory(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrWorkerNotFound):
		api.Fail(w, http.StatusNotFound, "worker_not_found", "worker not found", reqID)
	case errors.Is(err, payroll.ErrDirectoryUnavailable):
		api.Fail(w, http.StatusBadGateway, "directory_unavailable", "worker directory unavailable and no cached copy", reqID)
	default:
		requestctx.Logger(r.Context()).Error("directory lookup failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "directory_failed", "failed to load worker", reqID)
	}
}

func failStore(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	if errors.Is(err, payroll.ErrConfigStoreDisabled) {
		api.Fail(w, http.StatusNotImplemented, "persistence_disabled", err.Error(), reqID)
		return
	}
	requestctx.Logger(r.Context()).Error("allocation store failed", "path", r.URL.Path, "err", err)
	api.Fail(w, http.StatusInternalServerError, "allocation_store_failed", "failed to access allocation config", reqID)
}

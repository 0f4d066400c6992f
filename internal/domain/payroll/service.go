package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"workforce/internal/platform/metrics"
)

type Service struct {
	Directory Directory
	Store     ConfigStore
	Metrics   *metrics.Collector
}

// NewService wires the payroll engine to its collaborators. A nil store disables
// allocation persistence.
func NewService(directory Directory, store ConfigStore, collector *metrics.Collector) *Service {
	return &Service{Directory: directory, Store: store, Metrics: collector}
}

type CalculateRequest struct {
	Worker   Worker         `json:"worker"`
	Base     BaseInputs     `json:"base"`
	Calendar []CompanyHours `json:"calendar"`
	Session  Session        `json:"session"`
}

type CalculateResponse struct {
	Result     CalculationResult `json:"result"`
	Groups     GroupedBreakdown  `json:"groups"`
	Splits     []SplitSummary    `json:"splits"`
	Allocation AllocationConfig  `json:"allocation"`
	Advisories []Advisory        `json:"advisories"`
}

const (
	AutoFillEnable  = "enable"
	AutoFillDisable = "disable"
	AutoFillRefresh = "refresh"
)

const (
	OtherPaymentAdd    = "add"
	OtherPaymentRemove = "remove"
)

type AutoFillRequest struct {
	Worker   Worker         `json:"worker"`
	Ledger   ContractLedger `json:"ledger"`
	Company  CompanyKey     `json:"company"`
	Action   string         `json:"action"`
	Calendar []CompanyHours `json:"calendar"`
}

type LedgerEditRequest struct {
	WorkerID   string         `json:"workerId"`
	Ledger     ContractLedger `json:"ledger"`
	ContractID string         `json:"contractId"`
	Field      LedgerField    `json:"field"`
	Value      string         `json:"value"`
}

type CommandRequest struct {
	Allocation AllocationConfig  `json:"allocation"`
	Command    AllocationCommand `json:"command"`
	Available  []CompanyKey      `json:"available"`
}

// OtherPaymentRequest adds an item (server-assigned id) or removes one by id.
type OtherPaymentRequest struct {
	OtherPayments OtherPayments   `json:"otherPayments"`
	Action        string          `json:"action"`
	Category      PaymentCategory `json:"category"`
	Label         string          `json:"label"`
	Amount        string          `json:"amount"`
	ItemID        string          `json:"itemId"`
}

type OtherPaymentResponse struct {
	OtherPayments OtherPayments      `json:"otherPayments"`
	Item          *OtherPaymentItem  `json:"item,omitempty"`
	Totals        OtherPaymentTotals `json:"totals"`
	Advisories    []Advisory         `json:"advisories"`
}

type ExportRequest struct {
	CalculateRequest
	PeriodLabel string `json:"periodLabel"`
}

func (s *Service) Snapshot(ctx context.Context, workerID string) (WorkerSnapshot, error) {
	return s.Directory.Snapshot(ctx, workerID)
}

func (s *Service) WorkerMonth(ctx context.Context, workerID, month string) (WorkerMonth, error) {
	return s.Directory.LoadSession(ctx, workerID, month)
}

// Calculate runs the calculator over the session and evaluates grouping and splits on
// the resulting breakdown. Split rules pointing outside the breakdown are pruned.
func (s *Service) Calculate(req CalculateRequest) CalculateResponse {
	advisories := []Advisory{}
	if req.Session.SwitchesWorker(req.Worker.ID) {
		advisories = append(advisories, sessionResetAdvisory(req.Session, req.Worker.ID))
	}
	session := req.Session.ForWorker(req.Worker.ID)
	result := Calculate(CalculationInput{
		Worker:        req.Worker,
		Base:          req.Base,
		Ledger:        session.Ledger,
		Calendar:      req.Calendar,
		OtherPayments: session.OtherPayments,
	})

	allocation := session.Allocation
	allocation.Splits = allocation.Splits.Prune(result.Keys())
	splits, splitAdvisories := EvaluateSplits(result.CompanyBreakdown, allocation.Splits)
	advisories = append(advisories, splitAdvisories...)
	for _, advisory := range advisories {
		slog.Warn("payroll advisory", "workerId", req.Worker.ID, "code", advisory.Code, "message", advisory.Message)
	}
	s.Metrics.Calculation()

	return CalculateResponse{
		Result:     result,
		Groups:     allocation.Grouping.Breakdown(result.CompanyBreakdown),
		Splits:     splits,
		Allocation: allocation,
		Advisories: advisories,
	}
}

func (s *Service) AutoFill(req AutoFillRequest) (ContractLedger, error) {
	ledger := req.Ledger.ForWorker(req.Worker.ID)
	if req.Action == AutoFillRefresh {
		return RefreshAutoFill(ledger, req.Worker.Employers, req.Calendar), nil
	}

	employer, ok := findEmployer(req.Worker, req.Company)
	if !ok {
		return ledger, fmt.Errorf("%w: %s", ErrEmployerNotFound, req.Company)
	}
	switch req.Action {
	case AutoFillEnable:
		return EnableAutoFill(ledger, employer, req.Calendar), nil
	case AutoFillDisable:
		return DisableAutoFill(ledger, employer), nil
	}
	return ledger, fmt.Errorf("unknown auto-fill action %q", req.Action)
}

func (s *Service) EditLedger(req LedgerEditRequest) ContractLedger {
	return req.Ledger.ForWorker(req.WorkerID).Set(req.ContractID, req.Field, req.Value)
}

// EditOtherPayments applies one add or remove. Unknown categories, actions or item ids
// leave the list unchanged and come back as an advisory.
func (s *Service) EditOtherPayments(req OtherPaymentRequest) OtherPaymentResponse {
	resp := OtherPaymentResponse{OtherPayments: req.OtherPayments.clone(), Advisories: []Advisory{}}
	switch {
	case !req.Category.Valid():
		resp.Advisories = append(resp.Advisories, invalidOtherPaymentAdvisory("unknown category %q", req.Category))
	case req.Action == OtherPaymentAdd:
		payments, item := req.OtherPayments.Add(req.Category, req.Label, req.Amount)
		resp.OtherPayments, resp.Item = payments, &item
	case req.Action == OtherPaymentRemove:
		if !req.OtherPayments.Has(req.Category, req.ItemID) {
			resp.Advisories = append(resp.Advisories, invalidOtherPaymentAdvisory("no %s item with id %q", req.Category, req.ItemID))
			break
		}
		resp.OtherPayments = req.OtherPayments.Remove(req.Category, req.ItemID)
	default:
		resp.Advisories = append(resp.Advisories, invalidOtherPaymentAdvisory("unknown action %q", req.Action))
	}
	resp.Totals = resp.OtherPayments.Totals()
	return resp
}

func (s *Service) ApplyCommand(req CommandRequest) (AllocationConfig, []Advisory) {
	cfg, advisories := req.Allocation.Apply(req.Command, req.Available)
	for _, advisory := range advisories {
		slog.Warn("allocation command rejected", "command", req.Command.Type, "code", advisory.Code)
	}
	return cfg, advisories
}

// LoadAllocation returns the persisted config with split rules pruned to available.
// A nil available list skips pruning.
func (s *Service) LoadAllocation(ctx context.Context, workerID string, available []CompanyKey) (AllocationConfig, error) {
	if s.Store == nil {
		return AllocationConfig{}, ErrConfigStoreDisabled
	}
	cfg, err := s.Store.LoadAllocation(ctx, workerID)
	if err != nil {
		return AllocationConfig{}, err
	}
	if available != nil {
		cfg.Splits = cfg.Splits.Prune(available)
	}
	return cfg, nil
}

func (s *Service) SaveAllocation(ctx context.Context, workerID string, cfg AllocationConfig) error {
	if s.Store == nil {
		return ErrConfigStoreDisabled
	}
	return s.Store.SaveAllocation(ctx, workerID, cfg)
}

func (s *Service) Export(req ExportRequest) (Document, error) {
	calc := s.Calculate(req.CalculateRequest)
	doc, err := Export(ExportInput{
		WorkerName:  req.Worker.FullName(),
		PeriodLabel: strings.TrimSpace(req.PeriodLabel),
		Result:      calc.Result,
		Grouping:    calc.Allocation.Grouping,
		Splits:      calc.Allocation.Splits,
	})
	if err != nil {
		return Document{}, err
	}
	s.Metrics.Export()
	return doc, nil
}

func findEmployer(worker Worker, key CompanyKey) (Employer, bool) {
	for _, employer := range worker.Employers {
		if employer.Key() == key {
			return employer, true
		}
	}
	return Employer{}, false
}

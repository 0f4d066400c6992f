package payroll

import (
	"strings"
	"time"
)

// CompanyKey identifies an employer inside one worker's breakdown: the company id when
// known, otherwise the normalized name.
type CompanyKey string

func CompanyKeyFor(companyID, name string) CompanyKey {
	if id := strings.TrimSpace(companyID); id != "" {
		return CompanyKey("id:" + id)
	}
	return CompanyKey("name:" + normalizeName(name))
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

type Worker struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	BaseSalary   float64    `json:"baseSalary"`
	HourlyRate   float64    `json:"hourlyRate"`
	ContractType string     `json:"contractType"`
	Employers    []Employer `json:"employers"`
}

func (w Worker) FullName() string {
	return strings.TrimSpace(w.FirstName + " " + w.LastName)
}

// Employer is one company relationship of a worker with its ordered contracts.
type Employer struct {
	CompanyID string            `json:"companyId,omitempty"`
	Name      string            `json:"name"`
	Contracts []CompanyContract `json:"contracts"`
}

func (e Employer) Key() CompanyKey {
	return CompanyKeyFor(e.CompanyID, e.Name)
}

type CompanyContract struct {
	ID          string   `json:"id"`
	CompanyID   string   `json:"companyId,omitempty"`
	CompanyName string   `json:"companyName"`
	HasContract bool     `json:"hasContract"`
	Label       string   `json:"label,omitempty"`
	Position    string   `json:"position,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	HourlyRate  *float64 `json:"hourlyRate,omitempty"`
}

// WorkerSnapshot is the directory view of a worker, live or served from the local cache.
type WorkerSnapshot struct {
	Worker    Worker    `json:"worker"`
	FetchedAt time.Time `json:"fetchedAt"`
	FromCache bool      `json:"fromCache"`
}

type Shift struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeEntry is a raw attendance record as returned by the attendance service.
type TimeEntry struct {
	Date        string   `json:"date"`
	Hours       *float64 `json:"hours,omitempty"`
	Shifts      []Shift  `json:"shifts,omitempty"`
	CompanyID   string   `json:"companyId,omitempty"`
	CompanyName string   `json:"companyName,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type CompanyHours struct {
	CompanyID string  `json:"companyId,omitempty"`
	Name      string  `json:"name,omitempty"`
	Hours     float64 `json:"hours"`
}

func (c CompanyHours) Key() CompanyKey {
	return CompanyKeyFor(c.CompanyID, c.Name)
}

type DayHours struct {
	TotalHours float64        `json:"totalHours"`
	Notes      []string       `json:"notes"`
	Companies  []CompanyHours `json:"companies"`
}

// MonthHours maps a YYYY-MM-DD date key to the hours worked that day.
type MonthHours map[string]DayHours

// BaseInputs holds the flat calculator fields exactly as the operator typed them.
type BaseInputs struct {
	BaseSalary    string `json:"baseSalary"`
	HoursWorked   string `json:"hoursWorked"`
	OvertimeHours string `json:"overtimeHours"`
	Bonuses       string `json:"bonuses"`
	Deductions    string `json:"deductions"`
}

type CompanyAllocation struct {
	Key       CompanyKey `json:"key"`
	CompanyID string     `json:"companyId,omitempty"`
	Name      string     `json:"name,omitempty"`
	Hours     float64    `json:"hours"`
	Amount    float64    `json:"amount"`
}

type CalculationResult struct {
	Mode              string              `json:"mode"`
	TotalAmount       float64             `json:"totalAmount"`
	TotalHours        float64             `json:"totalHours"`
	RegularHours      float64             `json:"regularHours"`
	OvertimeHours     float64             `json:"overtimeHours"`
	RegularPay        float64             `json:"regularPay"`
	OvertimePay       float64             `json:"overtimePay"`
	Bonuses           float64             `json:"bonuses"`
	Deductions        float64             `json:"deductions"`
	SocialSecurity    float64             `json:"socialSecurity"`
	IncomeTax         float64             `json:"incomeTax"`
	NetAmount         float64             `json:"netAmount"`
	CompanyBreakdown  []CompanyAllocation `json:"companyBreakdown"`
	UsesCalendarHours bool                `json:"usesCalendarHours"`
}

// Keys returns the breakdown keys in breakdown order.
func (r CalculationResult) Keys() []CompanyKey {
	keys := make([]CompanyKey, 0, len(r.CompanyBreakdown))
	for _, entry := range r.CompanyBreakdown {
		keys = append(keys, entry.Key)
	}
	return keys
}

func (r CalculationResult) Allocation(key CompanyKey) (CompanyAllocation, bool) {
	for _, entry := range r.CompanyBreakdown {
		if entry.Key == key {
			return entry, true
		}
	}
	return CompanyAllocation{}, false
}

// assignableCompany reports whether a resolved employer name may appear in totals.
func assignableCompany(name string) bool {
	normalized := normalizeName(name)
	if normalized == "" {
		return false
	}
	switch normalized {
	case normalizeName(NoCompanyName), UnassignedCompany, "sin empresa", "sin asignar":
		return false
	}
	return true
}

// WorkerMonth is everything the calculator needs from the outside for one worker and month.
type WorkerMonth struct {
	Snapshot        WorkerSnapshot `json:"snapshot"`
	Month           string         `json:"month"`
	Days            MonthHours     `json:"days"`
	Totals          []CompanyHours `json:"totals"`
	TotalHours      float64        `json:"totalHours"`
	AttendanceError string         `json:"attendanceError,omitempty"`
}

func NewWorkerMonth(snapshot WorkerSnapshot, month string, entries []TimeEntry) WorkerMonth {
	days := AggregateMonth(entries, month)
	return WorkerMonth{
		Snapshot:   snapshot,
		Month:      month,
		Days:       days,
		Totals:     days.CompanyTotals(),
		TotalHours: days.TotalHours(),
	}
}

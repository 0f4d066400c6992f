package payroll

const (
	OvertimeMultiplier  = 1.5
	StandardMonthHours  = 160.0
	SocialSecurityRate  = 0.0635
	IncomeTaxRate       = 0.15
	BreakdownTolerance  = 0.01
	NoCompanyName       = "No company"
	UnassignedCompany   = "unassigned"
	DefaultGroupColor   = "#64748b"
	DefaultExportTitle  = "Payroll summary"
	ExportDateLayout    = "2006-01-02"
	AttendanceMonthForm = "2006-01"
)

type PaymentMethod string

const (
	MethodBank PaymentMethod = "bank"
	MethodCash PaymentMethod = "cash"
)

type PaymentCategory string

const (
	CategorySupplements PaymentCategory = "supplements"
	CategoryBonuses     PaymentCategory = "bonuses"
	CategoryDiscounts   PaymentCategory = "discounts"
	CategoryDebts       PaymentCategory = "debts"
	CategoryDeductions  PaymentCategory = "deductions"
)

// PaymentCategories is the display order used by totals and exports.
var PaymentCategories = []PaymentCategory{
	CategorySupplements,
	CategoryBonuses,
	CategoryDiscounts,
	CategoryDebts,
	CategoryDeductions,
}

type SplitMode string

const (
	SplitKeep  SplitMode = "keep"
	SplitSplit SplitMode = "split"
)

type RuleMode string

const (
	RulePercentage RuleMode = "percentage"
	RuleAmount     RuleMode = "amount"
)

type LedgerField string

const (
	FieldHours      LedgerField = "hours"
	FieldBaseSalary LedgerField = "baseSalary"
	FieldHourlyRate LedgerField = "hourlyRate"
)

const (
	ModeManualLedger = "manual_ledger"
	ModeCalendar     = "calendar"
)

const (
	AdvisoryCompanyInOtherGroup = "company_in_other_group"
	AdvisorySplitSelfTarget     = "split_self_target"
	AdvisorySplitUnknownTarget  = "split_unknown_target"
	AdvisorySplitOverAllocated  = "split_over_allocated"
	AdvisoryGroupNotFound       = "group_not_found"
	AdvisoryRuleNotFound        = "split_rule_not_found"
	AdvisoryUnknownCommand      = "unknown_command"
	AdvisorySessionReset        = "session_reset"
	AdvisoryInvalidOtherPayment = "invalid_other_payment"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodBank || m == MethodCash
}

func (c PaymentCategory) Additive() bool {
	return c == CategorySupplements || c == CategoryBonuses
}

func (c PaymentCategory) Valid() bool {
	for _, candidate := range PaymentCategories {
		if c == candidate {
			return true
		}
	}
	return false
}

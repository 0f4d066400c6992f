package payroll

import "math"

// CalculationInput is everything the calculator reads. It is never modified.
type CalculationInput struct {
	Worker        Worker         `json:"worker"`
	Base          BaseInputs     `json:"base"`
	Ledger        ContractLedger `json:"ledger"`
	Calendar      []CompanyHours `json:"calendar"`
	OtherPayments OtherPayments  `json:"otherPayments"`
}

// Calculate computes the payroll total and its per-employer breakdown. The ledger mode is
// used as soon as any contract carries a non-zero value; otherwise hours come from the
// attendance calendar (or the flat hours field) and pay from the flat base salary.
func Calculate(in CalculationInput) CalculationResult {
	other := in.OtherPayments.Totals()
	bonuses := ParseAmount(in.Base.Bonuses) + other.Additions
	deductions := ParseAmount(in.Base.Deductions) + other.Subtractions
	overtimeHours := ParseHours(in.Base.OvertimeHours)

	var result CalculationResult
	if in.Ledger.HasEntries() {
		result = calculateFromLedger(in, overtimeHours, bonuses, deductions)
	} else {
		result = calculateFromCalendar(in, overtimeHours, bonuses, deductions)
	}

	result.OvertimeHours = overtimeHours
	result.TotalHours = result.RegularHours + overtimeHours
	result.Bonuses = bonuses
	result.Deductions = deductions
	applyRoundingAdjustment(result.TotalAmount, result.CompanyBreakdown)
	applyWithholding(&result)
	return result
}

type employerShare struct {
	alloc CompanyAllocation
	base  float64
}

func calculateFromLedger(in CalculationInput, overtimeHours, bonuses, deductions float64) CalculationResult {
	var shares []employerShare
	for _, employer := range in.Worker.Employers {
		if !assignableCompany(employer.Name) {
			continue
		}
		share := employerShare{alloc: CompanyAllocation{
			Key:       employer.Key(),
			CompanyID: employer.CompanyID,
			Name:      employer.Name,
		}}
		for _, contract := range employer.Contracts {
			hours, base := contractAmounts(in.Ledger.Input(contract.ID), contract, in.Worker)
			share.alloc.Hours += hours
			share.base += base
		}
		shares = append(shares, share)
	}

	// Idle employers only take part when nobody carries hours or base pay.
	var active []employerShare
	for _, share := range shares {
		if share.alloc.Hours > 0 || share.base > 0 {
			active = append(active, share)
		}
	}
	if len(active) > 0 {
		shares = active
	}

	regularHours, baseTotal := 0.0, 0.0
	for _, share := range shares {
		regularHours += share.alloc.Hours
		baseTotal += share.base
	}

	averageRate := 0.0
	if regularHours > 0 && baseTotal > 0 {
		averageRate = baseTotal / regularHours
	}
	overtimePay := overtimeHours * averageRate * OvertimeMultiplier
	total := baseTotal + overtimePay + bonuses - deductions
	extras := total - baseTotal

	breakdown := make([]CompanyAllocation, 0, len(shares))
	for _, share := range shares {
		var weight float64
		switch {
		case baseTotal > 0:
			weight = share.base / baseTotal
		case regularHours > 0:
			weight = share.alloc.Hours / regularHours
		default:
			weight = 1 / float64(len(shares))
		}
		alloc := share.alloc
		alloc.Amount = share.base + extras*weight
		breakdown = append(breakdown, alloc)
	}

	return CalculationResult{
		Mode:             ModeManualLedger,
		TotalAmount:      total,
		RegularHours:     regularHours,
		RegularPay:       baseTotal,
		OvertimePay:      overtimePay,
		CompanyBreakdown: breakdown,
	}
}

// contractAmounts resolves hours and base pay for one contract. The entered base wins
// over hours x rate; the rate falls back to the contract and then the worker.
func contractAmounts(input ContractInput, contract CompanyContract, worker Worker) (hours, base float64) {
	hours = ParseHours(input.Hours)
	rate := ParseAmount(input.HourlyRate)
	if rate == 0 && contract.HourlyRate != nil {
		rate = *contract.HourlyRate
	}
	if rate == 0 {
		rate = worker.HourlyRate
	}
	base = ParseAmount(input.BaseSalary)
	if base == 0 {
		base = hours * rate
	}
	return hours, base
}

func calculateFromCalendar(in CalculationInput, overtimeHours, bonuses, deductions float64) CalculationResult {
	var breakdown []CompanyAllocation
	calendarHours := 0.0
	for _, company := range in.Calendar {
		if !assignableCompany(company.Name) || company.Hours <= 0 {
			continue
		}
		calendarHours += company.Hours
		breakdown = append(breakdown, CompanyAllocation{
			Key:       company.Key(),
			CompanyID: company.CompanyID,
			Name:      company.Name,
			Hours:     company.Hours,
		})
	}

	regularHours := calendarHours
	if regularHours == 0 {
		regularHours = ParseHours(in.Base.HoursWorked)
	}
	baseSalary := ParseAmount(in.Base.BaseSalary)
	if baseSalary == 0 {
		baseSalary = in.Worker.BaseSalary
	}

	overtimePay := overtimeHours * (baseSalary / StandardMonthHours) * OvertimeMultiplier
	total := baseSalary + overtimePay + bonuses - deductions
	for i := range breakdown {
		breakdown[i].Amount = (breakdown[i].Hours / regularHours) * total
	}

	return CalculationResult{
		Mode:              ModeCalendar,
		TotalAmount:       total,
		RegularHours:      regularHours,
		RegularPay:        baseSalary,
		OvertimePay:       overtimePay,
		CompanyBreakdown:  breakdown,
		UsesCalendarHours: calendarHours > 0,
	}
}

// applyRoundingAdjustment pushes any drift between the total and the breakdown sum onto
// the last entry so the breakdown always adds up to the total.
func applyRoundingAdjustment(total float64, breakdown []CompanyAllocation) {
	if len(breakdown) == 0 {
		return
	}
	sum := 0.0
	for _, entry := range breakdown {
		sum += entry.Amount
	}
	adjustment := total - sum
	if math.Abs(adjustment) > BreakdownTolerance {
		breakdown[len(breakdown)-1].Amount += adjustment
	}
}

func applyWithholding(result *CalculationResult) {
	result.NetAmount = result.TotalAmount
	if result.TotalAmount <= 0 {
		return
	}
	result.SocialSecurity = Round2(result.TotalAmount * SocialSecurityRate)
	result.IncomeTax = Round2((result.TotalAmount - result.SocialSecurity) * IncomeTaxRate)
	result.NetAmount = result.TotalAmount - result.SocialSecurity - result.IncomeTax
}

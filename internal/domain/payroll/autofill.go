package payroll

// EnableAutoFill switches auto-fill on for an employer and distributes its calendar
// hours across the employer's contracts.
func EnableAutoFill(ledger ContractLedger, employer Employer, calendar []CompanyHours) ContractLedger {
	out := ledger.Clone()
	out.AutoFillEnabled[employer.Key()] = true
	return applyAutoFill(out, employer, HoursFor(calendar, employer.CompanyID, employer.Name))
}

// DisableAutoFill clears exactly the contracts auto-fill wrote for the employer. Contracts
// edited by hand keep their values.
func DisableAutoFill(ledger ContractLedger, employer Employer) ContractLedger {
	out := ledger.Clone()
	delete(out.AutoFillEnabled, employer.Key())
	clearAutoFilled(&out, employer.Key())
	return out
}

// RefreshAutoFill re-runs auto-fill for every enabled employer after a calendar refresh.
func RefreshAutoFill(ledger ContractLedger, employers []Employer, calendar []CompanyHours) ContractLedger {
	out := ledger.Clone()
	for _, employer := range employers {
		if !out.AutoFillEnabled[employer.Key()] {
			continue
		}
		out = applyAutoFill(out, employer, HoursFor(calendar, employer.CompanyID, employer.Name))
	}
	return out
}

func applyAutoFill(ledger ContractLedger, employer Employer, calendarHours float64) ContractLedger {
	key := employer.Key()
	if calendarHours <= 0 || len(employer.Contracts) == 0 {
		clearAutoFilled(&ledger, key)
		return ledger
	}

	perEntry := FormatHours(calendarHours / float64(len(employer.Contracts)))
	var written []string
	for _, contract := range employer.Contracts {
		if ledger.ManualOverrides[contract.ID] {
			continue
		}
		input := ledger.Inputs[contract.ID]
		input.Hours = perEntry
		ledger.Inputs[contract.ID] = input
		written = append(written, contract.ID)
	}
	if len(written) == 0 {
		delete(ledger.AutoFilled, key)
		return ledger
	}
	ledger.AutoFilled[key] = written
	return ledger
}

func clearAutoFilled(ledger *ContractLedger, key CompanyKey) {
	for _, contractID := range ledger.AutoFilled[key] {
		if ledger.ManualOverrides[contractID] {
			continue
		}
		input, ok := ledger.Inputs[contractID]
		if !ok {
			continue
		}
		input.Hours = ""
		if input == (ContractInput{}) {
			delete(ledger.Inputs, contractID)
			continue
		}
		ledger.Inputs[contractID] = input
	}
	delete(ledger.AutoFilled, key)
}

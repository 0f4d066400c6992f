package payroll

import "sort"

// ContractInput is what the operator typed for one contract. Values stay strings until
// calculation time.
type ContractInput struct {
	Hours      string `json:"hours"`
	BaseSalary string `json:"baseSalary"`
	HourlyRate string `json:"hourlyRate,omitempty"`
}

func (c ContractInput) empty() bool {
	return ParseHours(c.Hours) == 0 && ParseAmount(c.BaseSalary) == 0 && ParseAmount(c.HourlyRate) == 0
}

// ContractLedger holds per-contract inputs for one worker together with the override
// bookkeeping used by auto-fill. Methods never mutate the receiver.
type ContractLedger struct {
	WorkerID        string                   `json:"workerId"`
	Inputs          map[string]ContractInput `json:"inputs"`
	ManualOverrides map[string]bool          `json:"manualOverrides"`
	AutoFilled      map[CompanyKey][]string  `json:"autoFilled"`
	AutoFillEnabled map[CompanyKey]bool      `json:"autoFillEnabled"`
}

func NewContractLedger(workerID string) ContractLedger {
	return ContractLedger{
		WorkerID:        workerID,
		Inputs:          map[string]ContractInput{},
		ManualOverrides: map[string]bool{},
		AutoFilled:      map[CompanyKey][]string{},
		AutoFillEnabled: map[CompanyKey]bool{},
	}
}

// ForWorker keeps the ledger when it belongs to workerID or to no worker yet, and otherwise
// starts a clean one, so overrides never leak onto another worker's contracts.
func (l ContractLedger) ForWorker(workerID string) ContractLedger {
	if l.WorkerID != "" && l.WorkerID != workerID {
		return NewContractLedger(workerID)
	}
	out := l.Clone()
	out.WorkerID = workerID
	return out
}

func (l ContractLedger) Reset() ContractLedger {
	return NewContractLedger(l.WorkerID)
}

func (l ContractLedger) Clone() ContractLedger {
	out := NewContractLedger(l.WorkerID)
	for key, input := range l.Inputs {
		out.Inputs[key] = input
	}
	for key, flagged := range l.ManualOverrides {
		if flagged {
			out.ManualOverrides[key] = true
		}
	}
	for company, keys := range l.AutoFilled {
		out.AutoFilled[company] = append([]string(nil), keys...)
	}
	for company, enabled := range l.AutoFillEnabled {
		if enabled {
			out.AutoFillEnabled[company] = true
		}
	}
	return out
}

func (l ContractLedger) Input(contractID string) ContractInput {
	return l.Inputs[contractID]
}

// HasEntries reports whether any contract carries a non-zero value; this selects the
// manual-ledger calculation mode.
func (l ContractLedger) HasEntries() bool {
	for _, input := range l.Inputs {
		if !input.empty() {
			return true
		}
	}
	return false
}

// Set records an operator edit. Editing hours marks the contract as manually
// overridden, which shields it from later auto-fill runs.
func (l ContractLedger) Set(contractID string, field LedgerField, value string) ContractLedger {
	out := l.Clone()
	input := out.Inputs[contractID]
	switch field {
	case FieldHours:
		input.Hours = value
		out.ManualOverrides[contractID] = true
		out.forgetAutoFilled(contractID)
	case FieldBaseSalary:
		input.BaseSalary = value
	case FieldHourlyRate:
		input.HourlyRate = value
	default:
		return out
	}
	out.Inputs[contractID] = input
	return out
}

// ClearOverride hands a contract back to auto-fill.
func (l ContractLedger) ClearOverride(contractID string) ContractLedger {
	out := l.Clone()
	delete(out.ManualOverrides, contractID)
	return out
}

func (l ContractLedger) IsOverridden(contractID string) bool {
	return l.ManualOverrides[contractID]
}

// AutoFilledKeys returns the contracts auto-fill last wrote for an employer, sorted.
func (l ContractLedger) AutoFilledKeys(company CompanyKey) []string {
	keys := append([]string(nil), l.AutoFilled[company]...)
	sort.Strings(keys)
	return keys
}

func (l *ContractLedger) forgetAutoFilled(contractID string) {
	for company, keys := range l.AutoFilled {
		var kept []string
		for _, key := range keys {
			if key != contractID {
				kept = append(kept, key)
			}
		}
		if len(kept) == 0 {
			delete(l.AutoFilled, company)
			continue
		}
		l.AutoFilled[company] = kept
	}
}

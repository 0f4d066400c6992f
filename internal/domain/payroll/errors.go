package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrCompanyInOtherGroup  = errors.New("company already belongs to another group")
	ErrGroupNotFound        = errors.New("payroll group not found")
	ErrSplitSelfTarget      = errors.New("split rule cannot target its own source company")
	ErrSplitUnknownTarget   = errors.New("split rule targets a company outside the breakdown")
	ErrSplitRuleNotFound    = errors.New("split rule not found")
	ErrUnknownCommand       = errors.New("unknown allocation command")
	ErrDirectoryUnavailable = errors.New("worker directory unavailable")
	ErrWorkerNotFound       = errors.New("worker not found")
	ErrEmployerNotFound     = errors.New("employer not found for worker")
	ErrConfigStoreDisabled  = errors.New("allocation config persistence is not configured")
)

// Advisory is a dismissible operator warning. It never blocks calculation.
type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func advisoryFor(err error) (Advisory, bool) {
	switch {
	case err == nil:
		return Advisory{}, false
	case errors.Is(err, ErrCompanyInOtherGroup):
		return Advisory{Code: AdvisoryCompanyInOtherGroup, Message: err.Error()}, true
	case errors.Is(err, ErrSplitSelfTarget):
		return Advisory{Code: AdvisorySplitSelfTarget, Message: err.Error()}, true
	case errors.Is(err, ErrSplitUnknownTarget):
		return Advisory{Code: AdvisorySplitUnknownTarget, Message: err.Error()}, true
	case errors.Is(err, ErrGroupNotFound):
		return Advisory{Code: AdvisoryGroupNotFound, Message: err.Error()}, true
	case errors.Is(err, ErrSplitRuleNotFound):
		return Advisory{Code: AdvisoryRuleNotFound, Message: err.Error()}, true
	case errors.Is(err, ErrUnknownCommand):
		return Advisory{Code: AdvisoryUnknownCommand, Message: err.Error()}, true
	}
	return Advisory{}, false
}

func sessionResetAdvisory(session Session, workerID string) Advisory {
	previous := session.WorkerID
	if previous == "" || previous == workerID {
		previous = session.Ledger.WorkerID
	}
	return Advisory{
		Code:    AdvisorySessionReset,
		Message: fmt.Sprintf("session belonged to worker %s and was cleared for worker %s", previous, workerID),
	}
}

func invalidOtherPaymentAdvisory(format string, args ...any) Advisory {
	return Advisory{Code: AdvisoryInvalidOtherPayment, Message: fmt.Sprintf(format, args...)}
}

func overAllocationAdvisory(source string, remaining float64) Advisory {
	return Advisory{
		Code:    AdvisorySplitOverAllocated,
		Message: fmt.Sprintf("split legs for %s exceed the allocated amount by %s", source, FormatMoney(-remaining)),
	}
}

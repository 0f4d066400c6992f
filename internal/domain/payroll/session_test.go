package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationApplyRejectsWithAdvisory(t *testing.T) {
	available := []CompanyKey{"id:a", "id:b"}
	cfg := AllocationConfig{}

	cfg, advisories := cfg.Apply(AllocationCommand{Type: CommandCreateGroup, Name: "X", Method: MethodBank}, available)
	require.Empty(t, advisories)
	cfg, advisories = cfg.Apply(AllocationCommand{Type: CommandCreateGroup, Name: "Y", Method: MethodCash}, available)
	require.Empty(t, advisories)
	x, y := cfg.Grouping.Groups[0], cfg.Grouping.Groups[1]

	cfg, advisories = cfg.Apply(AllocationCommand{Type: CommandAssignToGroup, GroupID: x.ID, Company: "id:a"}, available)
	require.Empty(t, advisories)

	next, advisories := cfg.Apply(AllocationCommand{Type: CommandToggleGroup, GroupID: y.ID, Company: "id:a"}, available)
	require.Len(t, advisories, 1)
	assert.Equal(t, AdvisoryCompanyInOtherGroup, advisories[0].Code)
	assert.Equal(t, cfg, next)
	assert.Empty(t, next.Grouping.Groups[1].Companies)
}

func TestAllocationApplySplitCommands(t *testing.T) {
	available := []CompanyKey{"id:a", "id:b"}
	cfg, advisories := AllocationConfig{}.Apply(AllocationCommand{Type: CommandSetSplitMode, Source: "id:a", Mode: SplitSplit}, available)
	require.Empty(t, advisories)
	require.Len(t, cfg.Splits["id:a"].Rules, 1)
	ruleID := cfg.Splits["id:a"].Rules[0].ID

	_, advisories = cfg.Apply(AllocationCommand{Type: CommandAddSplitRule, Source: "id:a", Rule: SplitPaymentRule{TargetKey: "id:a"}}, available)
	require.Len(t, advisories, 1)
	assert.Equal(t, AdvisorySplitSelfTarget, advisories[0].Code)

	cfg, advisories = cfg.Apply(AllocationCommand{Type: CommandRemoveSplitRule, Source: "id:a", RuleID: ruleID}, available)
	require.Empty(t, advisories)
	assert.Empty(t, cfg.Splits["id:a"].Rules)
}

func TestAllocationApplyUnknownCommand(t *testing.T) {
	_, advisories := AllocationConfig{}.Apply(AllocationCommand{Type: "explode"}, nil)
	require.Len(t, advisories, 1)
	assert.Equal(t, AdvisoryUnknownCommand, advisories[0].Code)
}

func TestSessionForWorker(t *testing.T) {
	session := NewSession("w1")
	session.Ledger = session.Ledger.Set("k1", FieldHours, "10")
	session.OtherPayments, _ = session.OtherPayments.Add(CategoryBonuses, "x", "5")

	same := session.ForWorker("w1")
	assert.True(t, same.Ledger.IsOverridden("k1"))
	assert.Len(t, same.OtherPayments[CategoryBonuses], 1)

	other := session.ForWorker("w2")
	assert.Equal(t, "w2", other.WorkerID)
	assert.Empty(t, other.Ledger.ManualOverrides)
	assert.Empty(t, other.OtherPayments)

	reset := session.Reset()
	assert.Equal(t, "w1", reset.WorkerID)
	assert.Empty(t, reset.Ledger.Inputs)
}

func TestSessionForWorkerBindsUnboundSession(t *testing.T) {
	session := Session{Ledger: NewContractLedger("").Set("k1", FieldHours, "10")}
	assert.False(t, session.SwitchesWorker("w1"))

	bound := session.ForWorker("w1")
	assert.Equal(t, "w1", bound.WorkerID)
	assert.Equal(t, "w1", bound.Ledger.WorkerID)
	assert.True(t, bound.Ledger.IsOverridden("k1"))

	assert.True(t, bound.SwitchesWorker("w2"))
	session.Ledger.WorkerID = "w0"
	assert.True(t, session.SwitchesWorker("w1"))
	assert.Empty(t, session.ForWorker("w1").Ledger.Inputs)
}

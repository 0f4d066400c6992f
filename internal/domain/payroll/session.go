package payroll

import "fmt"

// AllocationConfig is the operator's grouping and split setup for one worker. It is the
// part of a session that may be persisted between sessions.
type AllocationConfig struct {
	Grouping Grouping     `json:"grouping"`
	Splits   SplitConfigs `json:"splits"`
}

func (c AllocationConfig) Normalized() AllocationConfig {
	if c.Splits == nil {
		c.Splits = SplitConfigs{}
	}
	return c
}

const (
	CommandCreateGroup     = "create_group"
	CommandUpdateGroup     = "update_group"
	CommandDeleteGroup     = "delete_group"
	CommandAssignToGroup   = "assign_to_group"
	CommandRemoveFromGroup = "remove_from_group"
	CommandToggleGroup     = "toggle_group_company"
	CommandSetSplitMode    = "set_split_mode"
	CommandAddSplitRule    = "add_split_rule"
	CommandUpdateSplitRule = "update_split_rule"
	CommandRemoveSplitRule = "remove_split_rule"
)

type AllocationCommand struct {
	Type    string           `json:"type"`
	GroupID string           `json:"groupId,omitempty"`
	Name    string           `json:"name,omitempty"`
	Color   string           `json:"color,omitempty"`
	Method  PaymentMethod    `json:"method,omitempty"`
	Company CompanyKey       `json:"company,omitempty"`
	Source  CompanyKey       `json:"source,omitempty"`
	Mode    SplitMode        `json:"mode,omitempty"`
	Rule    SplitPaymentRule `json:"rule,omitempty"`
	RuleID  string           `json:"ruleId,omitempty"`
}

// Apply runs one command against the config. A rejected command returns the config
// unchanged together with the advisory describing why.
func (c AllocationConfig) Apply(cmd AllocationCommand, available []CompanyKey) (AllocationConfig, []Advisory) {
	c = c.Normalized()
	next, err := c.apply(cmd, available)
	if err != nil {
		if advisory, ok := advisoryFor(err); ok {
			return c, []Advisory{advisory}
		}
		return c, []Advisory{{Code: AdvisoryUnknownCommand, Message: err.Error()}}
	}
	return next, nil
}

func (c AllocationConfig) apply(cmd AllocationCommand, available []CompanyKey) (AllocationConfig, error) {
	var err error
	switch cmd.Type {
	case CommandCreateGroup:
		c.Grouping, _ = c.Grouping.CreateGroup(cmd.Name, cmd.Color, cmd.Method)
	case CommandUpdateGroup:
		c.Grouping, err = c.Grouping.UpdateGroup(cmd.GroupID, cmd.Name, cmd.Color, cmd.Method)
	case CommandDeleteGroup:
		c.Grouping = c.Grouping.DeleteGroup(cmd.GroupID)
	case CommandAssignToGroup:
		c.Grouping, err = c.Grouping.AssignToGroup(cmd.GroupID, cmd.Company)
	case CommandRemoveFromGroup:
		c.Grouping, err = c.Grouping.RemoveFromGroup(cmd.GroupID, cmd.Company)
	case CommandToggleGroup:
		c.Grouping, err = c.Grouping.ToggleCompany(cmd.GroupID, cmd.Company)
	case CommandSetSplitMode:
		c.Splits = c.Splits.SetMode(cmd.Source, cmd.Mode, available)
	case CommandAddSplitRule:
		c.Splits, _, err = c.Splits.AddRule(cmd.Source, cmd.Rule, available)
	case CommandUpdateSplitRule:
		c.Splits, err = c.Splits.UpdateRule(cmd.Source, cmd.Rule, available)
	case CommandRemoveSplitRule:
		c.Splits, err = c.Splits.RemoveRule(cmd.Source, cmd.RuleID)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return c, err
}

// Session is the working state of one calculation for one worker. Nothing in it
// survives a worker switch.
type Session struct {
	WorkerID      string           `json:"workerId"`
	Ledger        ContractLedger   `json:"ledger"`
	OtherPayments OtherPayments    `json:"otherPayments"`
	Allocation    AllocationConfig `json:"allocation"`
}

func NewSession(workerID string) Session {
	return Session{
		WorkerID:      workerID,
		Ledger:        NewContractLedger(workerID),
		OtherPayments: OtherPayments{},
		Allocation:    AllocationConfig{Splits: SplitConfigs{}},
	}
}

// SwitchesWorker reports whether moving the session to workerID discards state. A blank id
// means the session has not been bound to a worker yet.
func (s Session) SwitchesWorker(workerID string) bool {
	return (s.WorkerID != "" && s.WorkerID != workerID) ||
		(s.Ledger.WorkerID != "" && s.Ledger.WorkerID != workerID)
}

// ForWorker binds the session to workerID. State recorded for another worker is dropped.
func (s Session) ForWorker(workerID string) Session {
	if s.WorkerID != "" && s.WorkerID != workerID {
		return NewSession(workerID)
	}
	s.WorkerID = workerID
	s.Ledger = s.Ledger.ForWorker(workerID)
	if s.OtherPayments == nil {
		s.OtherPayments = OtherPayments{}
	}
	s.Allocation = s.Allocation.Normalized()
	return s
}

func (s Session) Reset() Session {
	return NewSession(s.WorkerID)
}

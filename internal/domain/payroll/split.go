package payroll

import (
	"fmt"

	"github.com/google/uuid"
)

type SplitPaymentRule struct {
	ID        string        `json:"id"`
	TargetKey CompanyKey    `json:"targetKey"`
	Mode      RuleMode      `json:"mode"`
	Value     string        `json:"value"`
	Method    PaymentMethod `json:"method"`
}

type SplitConfig struct {
	Mode  SplitMode          `json:"mode"`
	Rules []SplitPaymentRule `json:"rules"`
}

// SplitConfigs holds the split configuration per source company.
type SplitConfigs map[CompanyKey]SplitConfig

func (s SplitConfigs) clone() SplitConfigs {
	out := SplitConfigs{}
	for source, cfg := range s {
		cfg.Rules = append([]SplitPaymentRule(nil), cfg.Rules...)
		out[source] = cfg
	}
	return out
}

// SetMode switches a source between keep and split. Entering split mode without rules
// seeds one percentage rule towards the first free destination.
func (s SplitConfigs) SetMode(source CompanyKey, mode SplitMode, available []CompanyKey) SplitConfigs {
	out := s.clone()
	cfg := out[source]
	if mode != SplitSplit {
		cfg.Mode = SplitKeep
		out[source] = cfg
		return out
	}
	cfg.Mode = SplitSplit
	if len(cfg.Rules) == 0 {
		if target, ok := NextTarget(source, available, nil); ok {
			cfg.Rules = append(cfg.Rules, newRule(target))
		}
	}
	out[source] = cfg
	return out
}

// AddRule appends a leg to a source. An empty target picks the next free destination.
func (s SplitConfigs) AddRule(source CompanyKey, rule SplitPaymentRule, available []CompanyKey) (SplitConfigs, SplitPaymentRule, error) {
	cfg := s[source]
	if rule.TargetKey == "" {
		target, ok := NextTarget(source, available, cfg.Rules)
		if !ok {
			return s, SplitPaymentRule{}, fmt.Errorf("%w: no destination left for %s", ErrSplitUnknownTarget, source)
		}
		rule.TargetKey = target
	}
	if err := validateTarget(source, rule.TargetKey, available); err != nil {
		return s, SplitPaymentRule{}, err
	}

	seeded := newRule(rule.TargetKey)
	if rule.ID == "" {
		rule.ID = seeded.ID
	}
	if rule.Mode != RuleAmount {
		rule.Mode = RulePercentage
	}
	if rule.Value == "" {
		rule.Value = seeded.Value
	}
	rule.Method = defaultMethod(rule.Method)

	out := s.clone()
	cfg = out[source]
	cfg.Mode = SplitSplit
	cfg.Rules = append(cfg.Rules, rule)
	out[source] = cfg
	return out, rule, nil
}

func (s SplitConfigs) UpdateRule(source CompanyKey, rule SplitPaymentRule, available []CompanyKey) (SplitConfigs, error) {
	pos := s.ruleIndex(source, rule.ID)
	if pos < 0 {
		return s, fmt.Errorf("%w: %s", ErrSplitRuleNotFound, rule.ID)
	}
	if err := validateTarget(source, rule.TargetKey, available); err != nil {
		return s, err
	}
	if rule.Mode != RuleAmount {
		rule.Mode = RulePercentage
	}
	rule.Method = defaultMethod(rule.Method)

	out := s.clone()
	cfg := out[source]
	cfg.Rules[pos] = rule
	out[source] = cfg
	return out, nil
}

func (s SplitConfigs) RemoveRule(source CompanyKey, ruleID string) (SplitConfigs, error) {
	pos := s.ruleIndex(source, ruleID)
	if pos < 0 {
		return s, fmt.Errorf("%w: %s", ErrSplitRuleNotFound, ruleID)
	}
	out := s.clone()
	cfg := out[source]
	cfg.Rules = append(cfg.Rules[:pos:pos], cfg.Rules[pos+1:]...)
	out[source] = cfg
	return out, nil
}

// Prune drops every rule whose destination is no longer part of the breakdown.
func (s SplitConfigs) Prune(valid []CompanyKey) SplitConfigs {
	allowed := keySet(valid)
	out := SplitConfigs{}
	for source, cfg := range s {
		var kept []SplitPaymentRule
		for _, rule := range cfg.Rules {
			if allowed[rule.TargetKey] && rule.TargetKey != source {
				kept = append(kept, rule)
			}
		}
		cfg.Rules = kept
		out[source] = cfg
	}
	return out
}

func (s SplitConfigs) ruleIndex(source CompanyKey, ruleID string) int {
	for i, rule := range s[source].Rules {
		if rule.ID == ruleID {
			return i
		}
	}
	return -1
}

// NextTarget returns the first available company that is neither the source nor already
// targeted by one of rules.
func NextTarget(source CompanyKey, available []CompanyKey, rules []SplitPaymentRule) (CompanyKey, bool) {
	taken := map[CompanyKey]bool{source: true}
	for _, rule := range rules {
		taken[rule.TargetKey] = true
	}
	for _, key := range available {
		if !taken[key] {
			return key, true
		}
	}
	return "", false
}

func validateTarget(source, target CompanyKey, available []CompanyKey) error {
	if target == source {
		return fmt.Errorf("%w: %s", ErrSplitSelfTarget, source)
	}
	if !keySet(available)[target] {
		return fmt.Errorf("%w: %s", ErrSplitUnknownTarget, target)
	}
	return nil
}

func newRule(target CompanyKey) SplitPaymentRule {
	return SplitPaymentRule{
		ID:        uuid.NewString(),
		TargetKey: target,
		Mode:      RulePercentage,
		Value:     "0",
		Method:    MethodBank,
	}
}

func keySet(keys []CompanyKey) map[CompanyKey]bool {
	set := make(map[CompanyKey]bool, len(keys))
	for _, key := range keys {
		set[key] = true
	}
	return set
}

type SplitLeg struct {
	Rule       SplitPaymentRule `json:"rule"`
	TargetName string           `json:"targetName"`
	Amount     float64          `json:"amount"`
}

type SplitSummary struct {
	Source        CompanyKey `json:"source"`
	SourceName    string     `json:"sourceName"`
	SourceAmount  float64    `json:"sourceAmount"`
	Legs          []SplitLeg `json:"legs"`
	Distributed   float64    `json:"distributed"`
	Remaining     float64    `json:"remaining"`
	OverAllocated bool       `json:"overAllocated"`
}

// EvaluateSplit computes each leg of a split source. Under-allocation is allowed and
// over-allocation is only flagged.
func EvaluateSplit(sourceAmount float64, cfg SplitConfig) SplitSummary {
	summary := SplitSummary{SourceAmount: sourceAmount}
	if cfg.Mode != SplitSplit {
		summary.Remaining = sourceAmount
		return summary
	}
	for _, rule := range cfg.Rules {
		value := ParseAmount(rule.Value)
		amount := value
		if rule.Mode != RuleAmount {
			amount = sourceAmount * value / 100
		}
		summary.Legs = append(summary.Legs, SplitLeg{Rule: rule, Amount: amount})
		summary.Distributed += amount
	}
	summary.Remaining = sourceAmount - summary.Distributed
	summary.OverAllocated = summary.Remaining < -BreakdownTolerance
	return summary
}

// EvaluateSplits evaluates every split-mode source present in the breakdown, in breakdown
// order, after pruning stale destinations.
func EvaluateSplits(breakdown []CompanyAllocation, configs SplitConfigs) ([]SplitSummary, []Advisory) {
	keys := make([]CompanyKey, 0, len(breakdown))
	names := map[CompanyKey]string{}
	for _, entry := range breakdown {
		keys = append(keys, entry.Key)
		names[entry.Key] = entry.Name
	}
	pruned := configs.Prune(keys)

	var summaries []SplitSummary
	var advisories []Advisory
	for _, entry := range breakdown {
		cfg, ok := pruned[entry.Key]
		if !ok || cfg.Mode != SplitSplit {
			continue
		}
		summary := EvaluateSplit(entry.Amount, cfg)
		summary.Source = entry.Key
		summary.SourceName = entry.Name
		for i := range summary.Legs {
			summary.Legs[i].TargetName = names[summary.Legs[i].Rule.TargetKey]
		}
		if summary.OverAllocated {
			advisories = append(advisories, overAllocationAdvisory(entry.Name, summary.Remaining))
		}
		summaries = append(summaries, summary)
	}
	return summaries, advisories
}

package payroll

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type CompanyGroup struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Color         string        `json:"color"`
	Companies     []CompanyKey  `json:"companies"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

func (g CompanyGroup) Has(key CompanyKey) bool {
	for _, member := range g.Companies {
		if member == key {
			return true
		}
	}
	return false
}

// Grouping bundles employers under operator-defined groups. A company belongs to at most
// one group; commands return a new value and leave the receiver untouched.
type Grouping struct {
	Groups []CompanyGroup `json:"groups"`
}

func (g Grouping) clone() Grouping {
	out := Grouping{Groups: make([]CompanyGroup, len(g.Groups))}
	for i, group := range g.Groups {
		group.Companies = append([]CompanyKey(nil), group.Companies...)
		out.Groups[i] = group
	}
	return out
}

func (g Grouping) index(groupID string) int {
	for i, group := range g.Groups {
		if group.ID == groupID {
			return i
		}
	}
	return -1
}

func (g Grouping) GroupOf(key CompanyKey) (CompanyGroup, bool) {
	for _, group := range g.Groups {
		if group.Has(key) {
			return group, true
		}
	}
	return CompanyGroup{}, false
}

func (g Grouping) CreateGroup(name, color string, method PaymentMethod) (Grouping, CompanyGroup) {
	out := g.clone()
	group := CompanyGroup{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(name),
		Color:         defaultString(color, DefaultGroupColor),
		PaymentMethod: defaultMethod(method),
	}
	if group.Name == "" {
		group.Name = fmt.Sprintf("Group %d", len(out.Groups)+1)
	}
	out.Groups = append(out.Groups, group)
	return out, group
}

func (g Grouping) UpdateGroup(groupID, name, color string, method PaymentMethod) (Grouping, error) {
	pos := g.index(groupID)
	if pos < 0 {
		return g, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	out := g.clone()
	group := &out.Groups[pos]
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		group.Name = trimmed
	}
	if trimmed := strings.TrimSpace(color); trimmed != "" {
		group.Color = trimmed
	}
	if method.Valid() {
		group.PaymentMethod = method
	}
	return out, nil
}

func (g Grouping) DeleteGroup(groupID string) Grouping {
	out := Grouping{}
	for _, group := range g.clone().Groups {
		if group.ID != groupID {
			out.Groups = append(out.Groups, group)
		}
	}
	return out
}

// AssignToGroup adds a company to a group. A company already claimed by a different
// group is rejected with ErrCompanyInOtherGroup and the grouping is returned unchanged.
func (g Grouping) AssignToGroup(groupID string, key CompanyKey) (Grouping, error) {
	pos := g.index(groupID)
	if pos < 0 {
		return g, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	if owner, ok := g.GroupOf(key); ok {
		if owner.ID == groupID {
			return g, nil
		}
		return g, fmt.Errorf("%w: %s is in %q", ErrCompanyInOtherGroup, key, owner.Name)
	}
	out := g.clone()
	out.Groups[pos].Companies = append(out.Groups[pos].Companies, key)
	return out, nil
}

func (g Grouping) RemoveFromGroup(groupID string, key CompanyKey) (Grouping, error) {
	pos := g.index(groupID)
	if pos < 0 {
		return g, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	out := g.clone()
	var kept []CompanyKey
	for _, member := range out.Groups[pos].Companies {
		if member != key {
			kept = append(kept, member)
		}
	}
	out.Groups[pos].Companies = kept
	return out, nil
}

// ToggleCompany removes the company when it already sits in the group and assigns it
// otherwise.
func (g Grouping) ToggleCompany(groupID string, key CompanyKey) (Grouping, error) {
	pos := g.index(groupID)
	if pos >= 0 && g.Groups[pos].Has(key) {
		return g.RemoveFromGroup(groupID, key)
	}
	return g.AssignToGroup(groupID, key)
}

type GroupTotal struct {
	Group   CompanyGroup        `json:"group"`
	Hours   float64             `json:"hours"`
	Amount  float64             `json:"amount"`
	Members []CompanyAllocation `json:"members"`
}

type GroupedBreakdown struct {
	Groups    []GroupTotal        `json:"groups"`
	Remaining []CompanyAllocation `json:"remaining"`
}

// Breakdown folds a calculation breakdown into group totals. Companies no group claims are
// listed individually under Remaining, in breakdown order.
func (g Grouping) Breakdown(breakdown []CompanyAllocation) GroupedBreakdown {
	out := GroupedBreakdown{}
	claimed := map[CompanyKey]bool{}
	for _, group := range g.Groups {
		total := GroupTotal{Group: group}
		for _, key := range group.Companies {
			for _, entry := range breakdown {
				if entry.Key != key {
					continue
				}
				total.Hours += entry.Hours
				total.Amount += entry.Amount
				total.Members = append(total.Members, entry)
				claimed[key] = true
			}
		}
		out.Groups = append(out.Groups, total)
	}
	for _, entry := range breakdown {
		if !claimed[entry.Key] {
			out.Remaining = append(out.Remaining, entry)
		}
	}
	return out
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func defaultMethod(method PaymentMethod) PaymentMethod {
	if method.Valid() {
		return method
	}
	return MethodBank
}

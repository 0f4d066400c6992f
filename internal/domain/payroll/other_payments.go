package payroll

import (
	"strings"

	"github.com/google/uuid"
)

type OtherPaymentItem struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// OtherPayments is the free-form adjustment list, one slice per category.
type OtherPayments map[PaymentCategory][]OtherPaymentItem

type OtherPaymentTotals struct {
	ByCategory   map[PaymentCategory]float64 `json:"byCategory"`
	Additions    float64                     `json:"additions"`
	Subtractions float64                     `json:"subtractions"`
}

func (o OtherPayments) clone() OtherPayments {
	out := OtherPayments{}
	for category, items := range o {
		out[category] = append([]OtherPaymentItem(nil), items...)
	}
	return out
}

// Add appends an item; unknown categories leave the ledger unchanged.
func (o OtherPayments) Add(category PaymentCategory, label, amount string) (OtherPayments, OtherPaymentItem) {
	out := o.clone()
	if !category.Valid() {
		return out, OtherPaymentItem{}
	}
	item := OtherPaymentItem{
		ID:     uuid.NewString(),
		Label:  strings.TrimSpace(label),
		Amount: amount,
	}
	out[category] = append(out[category], item)
	return out, item
}

func (o OtherPayments) Remove(category PaymentCategory, itemID string) OtherPayments {
	out := o.clone()
	items := out[category]
	for i, item := range items {
		if item.ID == itemID {
			out[category] = append(items[:i:i], items[i+1:]...)
			break
		}
	}
	if len(out[category]) == 0 {
		delete(out, category)
	}
	return out
}

func (o OtherPayments) Has(category PaymentCategory, itemID string) bool {
	for _, item := range o[category] {
		if item.ID == itemID {
			return true
		}
	}
	return false
}

func (o OtherPayments) Totals() OtherPaymentTotals {
	totals := OtherPaymentTotals{ByCategory: map[PaymentCategory]float64{}}
	for _, category := range PaymentCategories {
		sum := 0.0
		for _, item := range o[category] {
			sum += ParseAmount(item.Amount)
		}
		totals.ByCategory[category] = sum
		if category.Additive() {
			totals.Additions += sum
		} else {
			totals.Subtractions += sum
		}
	}
	return totals
}

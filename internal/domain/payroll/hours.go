package payroll

import (
	"sort"
	"strings"
	"time"
)

var entryDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	ExportDateLayout,
}

var shiftClockLayouts = []string{
	"15:04",
	"15:04:05",
	time.RFC3339,
}

// AggregateMonth folds raw attendance entries into per-day employer hours. When month is
// set (YYYY-MM) entries from other months are ignored. Entries without a parseable date
// are dropped.
func AggregateMonth(entries []TimeEntry, month string) MonthHours {
	month = strings.TrimSpace(month)
	out := MonthHours{}
	for _, entry := range entries {
		day, ok := entryDay(entry.Date)
		if !ok {
			continue
		}
		dateKey := day.Format(ExportDateLayout)
		if month != "" && !strings.HasPrefix(dateKey, month) {
			continue
		}

		hours := entryHours(entry)
		summary := out[dateKey]
		summary.TotalHours += hours
		if note := strings.TrimSpace(entry.Notes); note != "" {
			summary.Notes = append(summary.Notes, note)
		}

		company := resolveEntryCompany(entry)
		company.Hours = hours
		summary.Companies = mergeCompanyHours(summary.Companies, company)
		out[dateKey] = summary
	}
	return out
}

// Dates returns the date keys in ascending order.
func (m MonthHours) Dates() []string {
	dates := make([]string, 0, len(m))
	for date := range m {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// CompanyTotals sums the month per employer, in order of first appearance. The
// synthesized no-company bucket is included; the calculator filters it out.
func (m MonthHours) CompanyTotals() []CompanyHours {
	var totals []CompanyHours
	for _, date := range m.Dates() {
		for _, company := range m[date].Companies {
			totals = mergeCompanyHours(totals, company)
		}
	}
	return totals
}

func (m MonthHours) TotalHours() float64 {
	total := 0.0
	for _, day := range m {
		total += day.TotalHours
	}
	return total
}

// HoursFor finds an employer's calendar hours, matching by company id first and by name
// second so that id-less attendance still lines up with directory employers.
func HoursFor(totals []CompanyHours, companyID, name string) float64 {
	if id := strings.TrimSpace(companyID); id != "" {
		for _, entry := range totals {
			if strings.TrimSpace(entry.CompanyID) == id {
				return entry.Hours
			}
		}
	}
	normalized := normalizeName(name)
	if normalized == "" {
		return 0
	}
	for _, entry := range totals {
		if normalizeName(entry.Name) == normalized {
			return entry.Hours
		}
	}
	return 0
}

func entryDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range entryDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func entryHours(entry TimeEntry) float64 {
	if entry.Hours != nil {
		return max(*entry.Hours, 0)
	}
	total := 0.0
	for _, shift := range entry.Shifts {
		total += shiftHours(shift)
	}
	return total
}

func shiftHours(shift Shift) float64 {
	start, ok := parseClock(shift.Start)
	if !ok {
		return 0
	}
	end, ok := parseClock(shift.End)
	if !ok {
		return 0
	}
	return max(end.Sub(start).Hours(), 0)
}

func parseClock(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range shiftClockLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// mergeCompanyHours adds company to the matching bucket or appends it. An entry known only
// by name joins the bucket with the same normalized name, and a name-only bucket adopts
// the id of the first identified entry that matches it.
func mergeCompanyHours(buckets []CompanyHours, company CompanyHours) []CompanyHours {
	key := company.Key()
	for i := range buckets {
		if buckets[i].Key() == key {
			buckets[i].Hours += company.Hours
			return buckets
		}
	}
	name := normalizeName(company.Name)
	for i := range buckets {
		if normalizeName(buckets[i].Name) != name {
			continue
		}
		switch {
		case company.CompanyID == "":
			buckets[i].Hours += company.Hours
			return buckets
		case buckets[i].CompanyID == "":
			buckets[i].CompanyID = company.CompanyID
			buckets[i].Name = company.Name
			buckets[i].Hours += company.Hours
			return buckets
		}
	}
	return append(buckets, company)
}

func resolveEntryCompany(entry TimeEntry) CompanyHours {
	id := strings.TrimSpace(entry.CompanyID)
	name := strings.TrimSpace(entry.CompanyName)
	switch {
	case id != "" && name != "":
		return CompanyHours{CompanyID: id, Name: name}
	case id != "":
		return CompanyHours{CompanyID: id, Name: id}
	case name != "":
		return CompanyHours{Name: name}
	}
	return CompanyHours{Name: NoCompanyName}
}

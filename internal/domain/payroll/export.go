package payroll

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const PDFContentType = "application/pdf"

type ExportInput struct {
	WorkerName  string            `json:"workerName"`
	PeriodLabel string            `json:"periodLabel"`
	Result      CalculationResult `json:"result"`
	Grouping    Grouping          `json:"grouping"`
	Splits      SplitConfigs      `json:"splits"`
}

// Document is an encoded export ready for delivery.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportLines renders the summary as ordered text lines: header, totals, the grouped or
// flat breakdown, then split legs and any unresolved remainder.
func ExportLines(in ExportInput) []string {
	r := in.Result
	lines := []string{
		DefaultExportTitle,
		"Worker: " + strings.TrimSpace(in.WorkerName),
		"Period: " + strings.TrimSpace(in.PeriodLabel),
		"",
		fmt.Sprintf("Total hours: %s (regular %s, overtime %s)", FormatMoney(r.TotalHours), FormatMoney(r.RegularHours), FormatMoney(r.OvertimeHours)),
		"Regular pay: " + FormatMoney(r.RegularPay),
		"Overtime pay: " + FormatMoney(r.OvertimePay),
		"Bonuses: " + FormatMoney(r.Bonuses),
		"Deductions: " + FormatMoney(r.Deductions),
		"Total amount: " + FormatMoney(r.TotalAmount),
		"Social security: " + FormatMoney(r.SocialSecurity),
		"Income tax: " + FormatMoney(r.IncomeTax),
		"Net amount: " + FormatMoney(r.NetAmount),
		"",
	}

	if len(in.Grouping.Groups) > 0 {
		view := in.Grouping.Breakdown(r.CompanyBreakdown)
		lines = append(lines, "Breakdown by group:")
		for _, group := range view.Groups {
			lines = append(lines, fmt.Sprintf("%s [%s]: %s h / %s", group.Group.Name, group.Group.PaymentMethod, FormatMoney(group.Hours), FormatMoney(group.Amount)))
			for _, member := range group.Members {
				lines = append(lines, "  - "+allocationLine(member))
			}
		}
		if len(view.Remaining) > 0 {
			lines = append(lines, "Remaining:")
			for _, entry := range view.Remaining {
				lines = append(lines, "  "+allocationLine(entry))
			}
		}
	} else {
		lines = append(lines, "Breakdown by company:")
		for _, entry := range r.CompanyBreakdown {
			lines = append(lines, "  "+allocationLine(entry))
		}
	}

	summaries, _ := EvaluateSplits(r.CompanyBreakdown, in.Splits)
	if len(summaries) > 0 {
		lines = append(lines, "", "Split payments:")
		for _, summary := range summaries {
			lines = append(lines, fmt.Sprintf("%s (%s):", summary.SourceName, FormatMoney(summary.SourceAmount)))
			for _, leg := range summary.Legs {
				lines = append(lines, fmt.Sprintf("  -> %s [%s]: %s (%s)", leg.TargetName, leg.Rule.Method, FormatMoney(leg.Amount), ruleBase(leg.Rule)))
			}
			if math.Abs(summary.Remaining) > BreakdownTolerance {
				lines = append(lines, "  Unresolved remainder: "+FormatMoney(summary.Remaining))
			}
		}
	}
	return lines
}

func allocationLine(entry CompanyAllocation) string {
	return fmt.Sprintf("%s: %s h / %s", entry.Name, FormatMoney(entry.Hours), FormatMoney(entry.Amount))
}

func ruleBase(rule SplitPaymentRule) string {
	value := ParseAmount(rule.Value)
	if rule.Mode == RuleAmount {
		return "fixed " + FormatMoney(value)
	}
	return FormatHours(value) + "%"
}

// EncodePDF lays the lines out top-down in a fixed-width font on A4 pages.
func EncodePDF(lines []string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	for i, line := range lines {
		if i == 0 {
			pdf.SetFont("Courier", "B", 14)
			pdf.Cell(0, 8, tr(line))
			pdf.Ln(10)
			pdf.SetFont("Courier", "", 10)
			continue
		}
		pdf.Cell(0, 5, tr(line))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("encode payroll pdf: %w", err)
	}
	return buf.Bytes(), nil
}

var filenameUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func ExportFilename(workerName, periodLabel string) string {
	slug := func(value string) string {
		return strings.Trim(filenameUnsafe.ReplaceAllString(strings.ToLower(value), "-"), "-")
	}
	parts := []string{"payroll"}
	if name := slug(workerName); name != "" {
		parts = append(parts, name)
	}
	if period := slug(periodLabel); period != "" {
		parts = append(parts, period)
	}
	return strings.Join(parts, "-") + ".pdf"
}

func Export(in ExportInput) (Document, error) {
	body, err := EncodePDF(ExportLines(in))
	if err != nil {
		return Document{}, err
	}
	return Document{
		Filename:    ExportFilename(in.WorkerName, in.PeriodLabel),
		ContentType: PDFContentType,
		Body:        body,
	}, nil
}

package payroll

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportResult() CalculationResult {
	return Calculate(CalculationInput{
		Base: BaseInputs{BaseSalary: "1500", OvertimeHours: "10"},
		Calendar: []CompanyHours{
			{CompanyID: "a", Name: "Alpha", Hours: 100},
			{CompanyID: "b", Name: "Beta", Hours: 60},
		},
	})
}

func TestExportLinesFlatBreakdown(t *testing.T) {
	lines := ExportLines(ExportInput{WorkerName: "Ana Ruiz", PeriodLabel: "2025-03", Result: exportResult()})

	require.GreaterOrEqual(t, len(lines), 17)
	assert.Equal(t, DefaultExportTitle, lines[0])
	assert.Equal(t, "Worker: Ana Ruiz", lines[1])
	assert.Equal(t, "Period: 2025-03", lines[2])
	assert.Contains(t, lines, "Total hours: 170.00 (regular 160.00, overtime 10.00)")
	assert.Contains(t, lines, "Total amount: 1640.63")
	assert.Contains(t, lines, "Breakdown by company:")
	assert.Contains(t, lines, "  Alpha: 100.00 h / 1025.39")
	assert.Contains(t, lines, "  Beta: 60.00 h / 615.23")
	assert.NotContains(t, lines, "Split payments:")
}

func TestExportLinesGroupsAndSplits(t *testing.T) {
	result := exportResult()
	grouping, group := Grouping{}.CreateGroup("Main", "", MethodCash)
	grouping, err := grouping.AssignToGroup(group.ID, CompanyKeyFor("a", "Alpha"))
	require.NoError(t, err)

	splits := SplitConfigs{
		CompanyKeyFor("a", "Alpha"): {Mode: SplitSplit, Rules: []SplitPaymentRule{
			{ID: "r1", TargetKey: CompanyKeyFor("b", "Beta"), Mode: RulePercentage, Value: "50", Method: MethodBank},
		}},
	}

	lines := ExportLines(ExportInput{WorkerName: "Ana", PeriodLabel: "March", Result: result, Grouping: grouping, Splits: splits})

	assert.Contains(t, lines, "Breakdown by group:")
	assert.Contains(t, lines, "Main [cash]: 100.00 h / 1025.39")
	assert.Contains(t, lines, "  - Alpha: 100.00 h / 1025.39")
	assert.Contains(t, lines, "Remaining:")
	assert.Contains(t, lines, "  Beta: 60.00 h / 615.23")
	assert.Contains(t, lines, "Split payments:")
	assert.Contains(t, lines, "Alpha (1025.39):")
	assert.Contains(t, lines, "  -> Beta [bank]: 512.70 (50%)")
	assert.Contains(t, lines, "  Unresolved remainder: 512.70")
	assert.NotContains(t, lines, "Breakdown by company:")
}

func TestEncodePDFCarriesLines(t *testing.T) {
	body, err := EncodePDF([]string{"Payroll summary", "Worker: Ana Ruiz", "Total amount: 1600.00"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	assert.True(t, bytes.Contains(body, []byte("Worker: Ana Ruiz")))
	assert.True(t, bytes.Contains(body, []byte("Total amount: 1600.00")))
}

func TestExportDocument(t *testing.T) {
	doc, err := Export(ExportInput{WorkerName: "Ana Ruiz", PeriodLabel: "2025-03", Result: exportResult()})
	require.NoError(t, err)
	assert.Equal(t, "payroll-ana-ruiz-2025-03.pdf", doc.Filename)
	assert.Equal(t, PDFContentType, doc.ContentType)
	assert.NotEmpty(t, doc.Body)
}

func TestExportFilenameFallback(t *testing.T) {
	assert.Equal(t, "payroll.pdf", ExportFilename("  ", "!!"))
	assert.Equal(t, "payroll-jos-p-rez-q1-2025.pdf", ExportFilename("José Pérez", "Q1 2025"))
}

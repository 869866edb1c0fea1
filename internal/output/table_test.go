package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-qc/internal/qc"
)

var failRefB = qc.Verdict{Kind: qc.Fail, Reasons: []qc.Reason{
	{Kind: qc.ReasonRefCoverage, Limit: 90},
	{Kind: qc.ReasonMeanCoverage, Limit: 100},
}}

func testVerdicts() []qc.VerdictRow {
	return []qc.VerdictRow{
		{Sample: "S1", Reference: "RefA", Verdict: qc.Verdict{Kind: qc.Pass}},
		{Sample: "S1", Reference: "RefB", Verdict: failRefB},
		{Sample: "S2", Verdict: qc.Verdict{Kind: qc.NoAssembly}},
	}
}

func testReport() []qc.ReportRow {
	return []qc.ReportRow{
		{
			SummaryRow: qc.SummaryRow{
				Sample: "S1", Reference: "RefA", TotalReads: 1000, PassQCReads: 950, ReadsMapped: 900,
				PercRefCovered: 90, MeanCoverage: 150, MinorSNVs: 1,
			},
			Verdict: qc.Verdict{Kind: qc.Pass},
		},
		{
			SummaryRow: qc.SummaryRow{
				Sample: "S1", Reference: "RefB", TotalReads: 1000, PassQCReads: 950, ReadsMapped: 50,
				PercRefCovered: 12.5, MeanCoverage: 3, MinorIndels: 2,
			},
			Verdict: failRefB,
		},
		{
			SummaryRow: qc.SummaryRow{Sample: "S2"},
			Verdict:    qc.Verdict{Kind: qc.NoAssembly},
		},
	}
}

func TestSummaryTable(t *testing.T) {
	tbl := SummaryTable(testReport())
	assert.Equal(t, SummaryColumns, tbl.Columns)
	assert.Equal(t, []any{0, 1, 2}, tbl.Index)
	require.Len(t, tbl.Data, 3)
	assert.Equal(t, []any{"S2", int64(0), int64(0), int64(0), "N/A", 0.0, 0.0, 0, 0, "No assembly"}, tbl.Data[2])
}

func TestSummaryTable_MissingVerdictFails(t *testing.T) {
	res := &qc.Result{Summary: []qc.SummaryRow{{Sample: "S1", Reference: "RefA"}}}
	tbl := SummaryTable(res.Report())
	assert.Equal(t, "Fail", tbl.Data[0][len(SummaryColumns)-1])
}

func TestPassFailTable(t *testing.T) {
	tbl := PassFailTable(testVerdicts())
	assert.Equal(t, []string{"RefA", "RefB"}, tbl.Columns)
	assert.Equal(t, []any{"S1", "S2"}, tbl.Index)
	assert.Equal(t, [][]any{
		{"Pass", "Less than 90% of reference covered; Mean coverage < 100"},
		{nil, nil},
	}, tbl.Data)
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "66.67", formatCell("% Reference Covered", 66.67))
	assert.Equal(t, "2", formatCell("Mean Coverage", 2.0))
	assert.Equal(t, "0.5", formatCell("other", 0.5))
	assert.Equal(t, "42", formatCell("", int64(42)))
	assert.Equal(t, "", formatCell("", nil))
}

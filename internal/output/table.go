// Package output writes QC result tables and gated consensus sequences.
package output

import (
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/inodb/vibe-qc/internal/qc"
)

// NoReference stands in for the empty reference of samples without mapped reads.
const NoReference = "N/A"

// Summary table columns.
var SummaryColumns = []string{
	"Sample",
	"Total Reads",
	"Pass QC",
	"Reads Mapped",
	"Reference",
	"% Reference Covered",
	"Mean Coverage",
	"Count of Minor SNVs >= 0.05",
	"Count of Minor Indels >= 0.05",
	"Pass/Fail Reason",
}

// Table is a rectangular result in split layout: column names, one index
// label per row and the row values.
type Table struct {
	Columns []string `json:"columns"`
	Index   []any    `json:"index"`
	Data    [][]any  `json:"data"`
}

// SummaryTable renders the report rows, indexed by row number.
func SummaryTable(rows []qc.ReportRow) Table {
	t := Table{
		Columns: SummaryColumns,
		Index:   make([]any, len(rows)),
		Data:    make([][]any, len(rows)),
	}
	for i, r := range rows {
		ref := r.Reference
		if ref == "" {
			ref = NoReference
		}
		t.Index[i] = i
		t.Data[i] = []any{
			r.Sample,
			r.TotalReads,
			r.PassQCReads,
			r.ReadsMapped,
			ref,
			r.PercRefCovered,
			r.MeanCoverage,
			r.MinorSNVs,
			r.MinorIndels,
			r.Verdict.String(),
		}
	}
	return t
}

// PassFailTable pivots verdicts into a Sample x Reference matrix. Columns are
// the sorted non-empty references; a sample without a verdict for a reference
// gets a nil cell. Samples with only an empty reference keep an all-nil row.
func PassFailTable(verdicts []qc.VerdictRow) Table {
	refs := lo.Uniq(lo.FilterMap(verdicts, func(v qc.VerdictRow, _ int) (string, bool) {
		return v.Reference, v.Reference != ""
	}))
	slices.Sort(refs)
	samples := lo.Uniq(lo.Map(verdicts, func(v qc.VerdictRow, _ int) string { return v.Sample }))
	slices.Sort(samples)

	col := make(map[string]int, len(refs))
	for i, r := range refs {
		col[r] = i
	}
	row := make(map[string]int, len(samples))
	t := Table{
		Columns: refs,
		Index:   make([]any, len(samples)),
		Data:    make([][]any, len(samples)),
	}
	for i, s := range samples {
		row[s] = i
		t.Index[i] = s
		t.Data[i] = make([]any, len(refs))
	}
	for _, v := range verdicts {
		if v.Reference == "" {
			continue
		}
		t.Data[row[v.Sample]][col[v.Reference]] = v.Verdict.String()
	}
	return t
}

// Protein issue kinds.
const (
	IssueUnresolved = "unresolved"
	IssueAmbiguous  = "ambiguous"
)

// ProteinIssueColumns are the columns of the protein issue table.
var ProteinIssueColumns = []string{"Sample", "Protein", "Issue", "Candidates", "Chosen"}

// ProteinIssueTable lists the proteins whose premature stop codons could not be
// placed on a reference, then those placed on the first of several candidates.
func ProteinIssueTable(unresolved, ambiguous []qc.ProteinIssue) Table {
	t := Table{Columns: ProteinIssueColumns}
	add := func(kind string, issues []qc.ProteinIssue) {
		for _, p := range issues {
			t.Index = append(t.Index, len(t.Index))
			t.Data = append(t.Data, []any{p.Sample, p.Protein, kind, strings.Join(p.Candidates, ","), p.Chosen})
		}
	}
	add(IssueUnresolved, unresolved)
	add(IssueAmbiguous, ambiguous)
	return t
}

// formatCell renders a table value for delimited text output.
func formatCell(column string, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		switch column {
		case "% Reference Covered":
			return strconv.FormatFloat(x, 'f', 2, 64)
		case "Mean Coverage":
			return strconv.FormatFloat(x, 'f', 0, 64)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

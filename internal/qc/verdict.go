package qc

import (
	"strconv"
	"strings"
)

// Thresholds are the pass/fail limits of one sequencing platform.
type Thresholds struct {
	AllowStopCodons bool    `mapstructure:"allow_stop_codons" yaml:"allow_stop_codons"`
	PercRefCovered  float64 `mapstructure:"perc_ref_covered" yaml:"perc_ref_covered"`
	MeanCov         float64 `mapstructure:"mean_cov" yaml:"mean_cov"`
	MinorVars       int     `mapstructure:"minor_vars" yaml:"minor_vars"`
}

// ReasonKind enumerates the QC rules. The values give the reporting order.
type ReasonKind int

const (
	ReasonPrematureStop ReasonKind = iota + 1
	ReasonRefCoverage
	ReasonMeanCoverage
	ReasonMinorVariants
)

// Reason is one failed rule together with the limit it was checked against.
type Reason struct {
	Kind  ReasonKind
	Limit float64
}

func (r Reason) String() string {
	switch r.Kind {
	case ReasonPrematureStop:
		return "Premature stop codon"
	case ReasonRefCoverage:
		return "Less than " + formatLimit(r.Limit) + "% of reference covered"
	case ReasonMeanCoverage:
		return "Mean coverage < " + formatLimit(r.Limit)
	case ReasonMinorVariants:
		return "Count of minor variants at or over 5% > " + formatLimit(r.Limit)
	}
	return ""
}

// formatLimit prints a threshold in its shortest form: 90, 90.5.
func formatLimit(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// VerdictKind is the category of a QC verdict.
type VerdictKind int

const (
	// Fail carries the failed rules in Verdict.Reasons. A Fail without reasons
	// marks a pair seen in the assembly outputs but absent from the read funnel.
	Fail VerdictKind = iota
	Pass
	NoMatchingReads
	NoAssembly
)

// Verdict is the QC outcome of one (Sample, Reference) pair.
type Verdict struct {
	Kind    VerdictKind
	Reasons []Reason // ordered by Kind; only set for Fail
}

// String renders the verdict the way reports show it.
func (v Verdict) String() string {
	switch v.Kind {
	case Pass:
		return "Pass"
	case NoMatchingReads:
		return "No matching reads"
	case NoAssembly:
		return "No assembly"
	}
	if len(v.Reasons) == 0 {
		return "Fail"
	}
	parts := make([]string, 0, len(v.Reasons))
	for _, r := range v.Reasons {
		if s := r.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "; ")
}

// Emits reports whether consensus sequences are written for this verdict:
// on a pass, or when a premature stop codon is the only failure.
func (v Verdict) Emits() bool {
	if v.Kind == Pass {
		return true
	}
	return v.Kind == Fail && len(v.Reasons) == 1 && v.Reasons[0].Kind == ReasonPrematureStop
}

// HasReason reports whether the verdict failed on the given rule.
func (v Verdict) HasReason(kind ReasonKind) bool {
	for _, r := range v.Reasons {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// VerdictRow is one row of the verdict table.
type VerdictRow struct {
	Sample    string
	Reference string
	Verdict   Verdict
}

// Key returns the row key.
func (r VerdictRow) Key() Key {
	return Key{Sample: r.Sample, Reference: r.Reference}
}

// VerdictInput holds everything ResolveVerdicts decides on.
type VerdictInput struct {
	Summary   []SummaryRow
	Reasons   ReasonTable
	Consensus map[Key]bool    // pairs with a nucleotide consensus sequence
	Observed  map[Key]bool    // pairs present in the coverage, allele or indel tables
	Assembled map[string]bool // samples with a row in any source table
}

// ResolveVerdicts assigns one verdict per summary row, plus a bare Fail for
// every observed or consensus pair that has no summary row. Rows are sorted by
// sample then reference.
//
// For a summary row with a reference: failed rules give Fail(reasons);
// otherwise the row passes when a consensus sequence exists and reports no
// matching reads when none does. A row without a reference reports no assembly
// when its sample never appears in any source table, and no matching reads
// otherwise.
func ResolveVerdicts(in VerdictInput) []VerdictRow {
	verdicts := make(map[Key]Verdict, len(in.Summary))
	for _, row := range in.Summary {
		k := row.Key()
		switch {
		case k.Reference == "" && !in.Assembled[k.Sample]:
			verdicts[k] = Verdict{Kind: NoAssembly}
		case k.Reference == "":
			verdicts[k] = Verdict{Kind: NoMatchingReads}
		case len(in.Reasons[k]) > 0:
			verdicts[k] = Verdict{Kind: Fail, Reasons: in.Reasons[k]}
		case in.Consensus[k]:
			verdicts[k] = Verdict{Kind: Pass}
		default:
			verdicts[k] = Verdict{Kind: NoMatchingReads}
		}
	}

	for _, extra := range []map[Key]bool{in.Observed, in.Consensus} {
		for k := range extra {
			if _, ok := verdicts[k]; !ok && k.Reference != "" {
				verdicts[k] = Verdict{Kind: Fail}
			}
		}
	}

	rows := make([]VerdictRow, 0, len(verdicts))
	for _, k := range sortedKeys(verdicts) {
		rows = append(rows, VerdictRow{Sample: k.Sample, Reference: k.Reference, Verdict: verdicts[k]})
	}
	return rows
}

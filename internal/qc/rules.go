package qc

import (
	"regexp"
	"slices"

	"go.uber.org/zap"
)

// prematureStop matches an amino acid change ending in a stop, e.g. "Q677*".
var prematureStop = regexp.MustCompile(`[0-9]\*`)

// ReasonTable maps a (Sample, Reference) pair to its failed rules.
// Pairs that failed nothing are absent.
type ReasonTable map[Key][]Reason

// Evaluation is the output of the rule evaluator.
type Evaluation struct {
	Reasons    ReasonTable
	Unresolved []ProteinIssue // stop codons whose protein matched no assembled reference
	Ambiguous  []ProteinIssue // stop codons whose protein matched several references
}

// Evaluator applies the QC thresholds to a summary table.
type Evaluator struct {
	thresholds    Thresholds
	proteins      *ProteinMap
	segmentSuffix bool
	logger        *zap.Logger
}

// NewEvaluator creates an evaluator for the given thresholds and protein map.
func NewEvaluator(th Thresholds, proteins *ProteinMap) *Evaluator {
	if proteins == nil {
		proteins = NewProteinMap(nil)
	}
	return &Evaluator{
		thresholds: th,
		proteins:   proteins,
		logger:     zap.NewNop(),
	}
}

// SetSegmentSuffix configures whether protein variant sample names carry a
// "_<segment>" suffix to strip before matching summary samples.
func (e *Evaluator) SetSegmentSuffix(on bool) {
	e.segmentSuffix = on
}

// SetLogger sets the logger for resolution diagnostics.
func (e *Evaluator) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Evaluate checks every summary row against the thresholds. Reasons of a row
// are ordered premature stop, reference coverage, mean coverage, minor variants.
// Rows without a reference are not evaluated.
func (e *Evaluator) Evaluate(summary []SummaryRow, variants []ProteinVariant) Evaluation {
	ev := Evaluation{Reasons: make(ReasonTable)}
	stops := e.prematureStops(summary, variants, &ev)

	th := e.thresholds
	for _, row := range summary {
		k := row.Key()
		if k.Reference == "" {
			continue
		}
		var reasons []Reason
		if stops[k] {
			reasons = append(reasons, Reason{Kind: ReasonPrematureStop})
		}
		if row.PercRefCovered < th.PercRefCovered {
			reasons = append(reasons, Reason{Kind: ReasonRefCoverage, Limit: th.PercRefCovered})
		}
		if row.MeanCoverage < th.MeanCov {
			reasons = append(reasons, Reason{Kind: ReasonMeanCoverage, Limit: th.MeanCov})
		}
		if row.MinorSNVs > th.MinorVars {
			reasons = append(reasons, Reason{Kind: ReasonMinorVariants, Limit: float64(th.MinorVars)})
		}
		if len(reasons) > 0 {
			ev.Reasons[k] = reasons
		}
	}
	return ev
}

// prematureStops returns the pairs whose translated proteins contain a
// premature stop codon. Proteins that cannot be placed on an assembled reference
// are logged and recorded in ev instead of failing the run.
func (e *Evaluator) prematureStops(summary []SummaryRow, variants []ProteinVariant, ev *Evaluation) map[Key]bool {
	stops := make(map[Key]bool)
	if e.thresholds.AllowStopCodons {
		return stops
	}

	present := presentReferences(summary)
	reported := make(map[Key]bool)
	for _, v := range variants {
		if !prematureStop.MatchString(v.Variants) {
			continue
		}
		sample := v.Sample
		if e.segmentSuffix {
			sample = TrimSegmentSuffix(sample)
		}

		ref, matches, ok := e.proteins.Resolve(v.Protein, present[sample])
		issueKey := Key{Sample: sample, Reference: v.Protein}
		switch {
		case !ok:
			if !reported[issueKey] {
				e.logger.Warn("no assembled reference for protein",
					zap.String("sample", sample),
					zap.String("protein", v.Protein))
				ev.Unresolved = append(ev.Unresolved, ProteinIssue{Sample: sample, Protein: v.Protein})
			}
			reported[issueKey] = true
			continue
		case len(matches) > 1:
			if !reported[issueKey] {
				e.logger.Warn("protein matches several assembled references",
					zap.String("sample", sample),
					zap.String("protein", v.Protein),
					zap.Strings("candidates", matches),
					zap.String("chosen", ref))
				ev.Ambiguous = append(ev.Ambiguous, ProteinIssue{
					Sample: sample, Protein: v.Protein, Candidates: matches, Chosen: ref,
				})
			}
			reported[issueKey] = true
		}
		stops[Key{Sample: sample, Reference: ref}] = true
	}

	slices.SortFunc(ev.Unresolved, compareIssues)
	slices.SortFunc(ev.Ambiguous, compareIssues)
	return stops
}

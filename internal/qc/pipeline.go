package qc

import (
	"fmt"

	"go.uber.org/zap"
)

// Profile bundles the platform thresholds and virus protein map of a run.
type Profile struct {
	Thresholds    Thresholds
	Proteins      *ProteinMap
	SegmentSuffix bool
}

// Inputs are the loaded tables of one run.
type Inputs struct {
	Reads               []ReadRecord
	Coverage            []CoverageRecord
	Alleles             []VariantRecord
	Indels              []VariantRecord
	ProteinVariants     []ProteinVariant
	NucleotideConsensus []Sequence
	AminoAcidConsensus  []Sequence
	RefLengths          map[string]int
	// Samples is the sample sheet. When nil, negative controls are guessed
	// from the read table.
	Samples []Sample
}

// Result holds every table derived from one run.
type Result struct {
	Summary    []SummaryRow
	Verdicts   []VerdictRow
	Statement  Statement
	Consensus  []ConsensusRecord
	Unresolved []ProteinIssue
	Ambiguous  []ProteinIssue
}

// ReportRow is a summary row with its verdict attached.
type ReportRow struct {
	SummaryRow
	Verdict Verdict
}

// Report left-joins the verdict table onto the summary. A summary row without
// a verdict gets the zero Verdict, which renders as "Fail".
func (r *Result) Report() []ReportRow {
	verdicts := make(map[Key]Verdict, len(r.Verdicts))
	for _, v := range r.Verdicts {
		verdicts[v.Key()] = v.Verdict
	}
	rows := make([]ReportRow, len(r.Summary))
	for i, s := range r.Summary {
		rows[i] = ReportRow{SummaryRow: s, Verdict: verdicts[s.Key()]}
	}
	return rows
}

// Pipeline runs summary, rules, verdicts, negative controls and consensus gating.
type Pipeline struct {
	profile Profile
	logger  *zap.Logger
}

// NewPipeline creates a pipeline for the given profile.
func NewPipeline(p Profile) *Pipeline {
	return &Pipeline{profile: p, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress and diagnostics.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Run derives all QC tables from in. It fails without partial results when a
// table is malformed or a covered reference has no length.
func (p *Pipeline) Run(in Inputs) (*Result, error) {
	ids := make([]string, len(in.Samples))
	for i, s := range in.Samples {
		ids[i] = s.ID
	}

	summary, err := BuildSummary(SummaryInput{
		Reads:      in.Reads,
		Coverage:   in.Coverage,
		Alleles:    in.Alleles,
		Indels:     in.Indels,
		RefLengths: in.RefLengths,
		Samples:    ids,
	})
	if err != nil {
		return nil, fmt.Errorf("build summary: %w", err)
	}
	p.logger.Info("built summary", zap.Int("rows", len(summary)))

	ev := NewEvaluator(p.profile.Thresholds, p.profile.Proteins)
	ev.SetSegmentSuffix(p.profile.SegmentSuffix)
	ev.SetLogger(p.logger)
	evaluation := ev.Evaluate(summary, in.ProteinVariants)

	verdicts := ResolveVerdicts(VerdictInput{
		Summary:   summary,
		Reasons:   evaluation.Reasons,
		Consensus: sequenceKeys(in.NucleotideConsensus),
		Observed:  observedKeys(in),
		Assembled: assembledSamples(in),
	})

	consensus := SelectConsensus(ConsensusInput{
		Verdicts:      verdicts,
		Nucleotide:    in.NucleotideConsensus,
		AminoAcid:     in.AminoAcidConsensus,
		Proteins:      p.profile.Proteins,
		SegmentSuffix: p.profile.SegmentSuffix,
	})
	p.logger.Info("resolved verdicts",
		zap.Int("verdicts", len(verdicts)),
		zap.Int("consensus", len(consensus)))

	negatives := NegativeControls(in.Samples)
	if in.Samples == nil {
		negatives = GuessNegativeControls(in.Reads)
		p.logger.Info("no sample sheet, guessed negative controls", zap.Strings("samples", negatives))
	}

	return &Result{
		Summary:    summary,
		Verdicts:   verdicts,
		Statement:  NegativeQCStatement(in.Reads, negatives),
		Consensus:  consensus,
		Unresolved: evaluation.Unresolved,
		Ambiguous:  evaluation.Ambiguous,
	}, nil
}

func sequenceKeys(seqs []Sequence) map[Key]bool {
	keys := make(map[Key]bool, len(seqs))
	for _, s := range seqs {
		keys[Key{Sample: s.Sample, Reference: s.Name}] = true
	}
	return keys
}

// observedKeys returns the pairs of the coverage, allele and indel tables.
func observedKeys(in Inputs) map[Key]bool {
	keys := make(map[Key]bool)
	for _, r := range in.Coverage {
		keys[Key{Sample: r.Sample, Reference: r.Reference}] = true
	}
	for _, table := range [][]VariantRecord{in.Alleles, in.Indels} {
		for _, r := range table {
			keys[Key{Sample: r.Sample, Reference: r.Reference}] = true
		}
	}
	return keys
}

// assembledSamples returns the samples with at least one row in a source table.
func assembledSamples(in Inputs) map[string]bool {
	samples := make(map[string]bool)
	for _, r := range in.Reads {
		samples[r.Sample] = true
	}
	for k := range observedKeys(in) {
		samples[k.Sample] = true
	}
	return samples
}

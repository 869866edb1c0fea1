package qc

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// MinorFrequency is the frequency at or above which a variant counts as a minor variant.
const MinorFrequency = 0.05

// Read funnel stage prefixes kept by the summary.
const (
	stageInitial = "1-"
	stagePassQC  = "2-pass"
	stageMapped  = "4-"
)

// gapMarkers are consensus calls that do not count towards the mapped length:
// deletions, ambiguous bases and lower-case low coverage calls.
var gapMarkers = map[string]bool{
	"-": true,
	"N": true,
	"a": true,
	"c": true,
	"t": true,
	"g": true,
}

// SummaryRow holds the QC metrics of one sample against one reference.
type SummaryRow struct {
	Sample         string
	Reference      string
	TotalReads     int64
	PassQCReads    int64
	ReadsMapped    int64
	PercRefCovered float64
	MeanCoverage   float64
	MinorSNVs      int
	MinorIndels    int
}

// Key returns the row key.
func (r SummaryRow) Key() Key {
	return Key{Sample: r.Sample, Reference: r.Reference}
}

// SummaryInput holds the tables joined by BuildSummary.
type SummaryInput struct {
	Reads      []ReadRecord
	Coverage   []CoverageRecord
	Alleles    []VariantRecord
	Indels     []VariantRecord
	RefLengths map[string]int
	Samples    []string // every sample id of the run
}

// MissingReferenceLengthError reports a covered reference absent from the length registry.
type MissingReferenceLengthError struct {
	Reference string
}

func (e *MissingReferenceLengthError) Error() string {
	return fmt.Sprintf("no reference length for %q", e.Reference)
}

// DuplicateRecordError reports a read funnel stage listed twice for one sample.
type DuplicateRecordError struct {
	Sample string
	Record string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate read record %q for sample %q", e.Record, e.Sample)
}

// BuildSummary joins the read funnel, coverage and minor variant tables into one
// row per (Sample, Reference), sorted by sample then reference.
//
// Join policy: mapped read rows are the driving table; coverage metrics and
// variant counts are left-joined onto them and default to zero. The result is then
// outer-joined with the sample roster on Sample, so that a sample without any
// mapped reference still yields one zero row with an empty Reference.
func BuildSummary(in SummaryInput) ([]SummaryRow, error) {
	funnel, err := pivotReads(in.Reads)
	if err != nil {
		return nil, err
	}
	coverage, err := coverageMetrics(in.Coverage, in.RefLengths)
	if err != nil {
		return nil, err
	}
	snvs := countMinor(in.Alleles)
	indels := countMinor(in.Indels)

	rows := make([]SummaryRow, 0, len(funnel.mapped)+len(in.Samples))
	seen := make(map[string]bool)
	for _, key := range sortedKeys(funnel.mapped) {
		row := SummaryRow{
			Sample:      key.Sample,
			Reference:   key.Reference,
			TotalReads:  funnel.total[key.Sample],
			PassQCReads: funnel.passQC[key.Sample],
			ReadsMapped: funnel.mapped[key],
			MinorSNVs:   snvs[key],
			MinorIndels: indels[key],
		}
		if m, ok := coverage[key]; ok {
			row.PercRefCovered = m.percCovered
			row.MeanCoverage = m.meanDepth
		}
		rows = append(rows, row)
		seen[key.Sample] = true
	}

	for _, sample := range lo.Uniq(in.Samples) {
		if seen[sample] {
			continue
		}
		rows = append(rows, SummaryRow{Sample: sample})
		seen[sample] = true
	}

	slices.SortFunc(rows, func(a, b SummaryRow) int {
		return compareKeys(a.Key(), b.Key())
	})
	return rows, nil
}

// readFunnel is the read table pivoted by stage.
// Total and pass-QC counts are per sample; mapped counts are per reference.
type readFunnel struct {
	total  map[string]int64
	passQC map[string]int64
	mapped map[Key]int64
}

func pivotReads(reads []ReadRecord) (*readFunnel, error) {
	f := &readFunnel{
		total:  make(map[string]int64),
		passQC: make(map[string]int64),
		mapped: make(map[Key]int64),
	}
	seen := make(map[Key]bool, len(reads))
	for _, r := range reads {
		k := Key{Sample: r.Sample, Reference: r.Record}
		if seen[k] {
			return nil, &DuplicateRecordError{Sample: r.Sample, Record: r.Record}
		}
		seen[k] = true

		switch {
		case strings.HasPrefix(r.Record, stageInitial):
			f.total[r.Sample] += r.Reads
		case strings.HasPrefix(r.Record, stagePassQC):
			f.passQC[r.Sample] += r.Reads
		case strings.HasPrefix(r.Record, stageMapped):
			ref := r.Record[len(stageMapped):]
			f.mapped[Key{Sample: r.Sample, Reference: ref}] = r.Reads
		}
	}
	return f, nil
}

type coverageMetric struct {
	percCovered float64
	meanDepth   float64
}

// coverageMetrics computes % reference covered and mean depth per (Sample, Reference).
func coverageMetrics(records []CoverageRecord, refLengths map[string]int) (map[Key]coverageMetric, error) {
	depths := make(map[Key][]float64)
	mappedLen := make(map[Key]int)
	for _, r := range records {
		k := Key{Sample: r.Sample, Reference: r.Reference}
		depths[k] = append(depths[k], r.Depth)
		if !gapMarkers[r.Consensus] {
			mappedLen[k]++
		}
	}

	metrics := make(map[Key]coverageMetric, len(depths))
	for _, k := range sortedKeys(depths) {
		refLen, ok := refLengths[k.Reference]
		if !ok || refLen <= 0 {
			return nil, &MissingReferenceLengthError{Reference: k.Reference}
		}
		metrics[k] = coverageMetric{
			percCovered: roundFixed(float64(mappedLen[k])/float64(refLen)*100, 2),
			meanDepth:   roundFixed(stat.Mean(depths[k], nil), 0),
		}
	}
	return metrics, nil
}

// countMinor counts variants at or above MinorFrequency per (Sample, Reference).
func countMinor(records []VariantRecord) map[Key]int {
	counts := make(map[Key]int)
	for _, r := range records {
		if r.Frequency >= MinorFrequency {
			counts[Key{Sample: r.Sample, Reference: r.Reference}]++
		}
	}
	return counts
}

// roundFixed rounds x the way fixed-point formatting with prec decimals does.
func roundFixed(x float64, prec int) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', prec, 64), 64)
	if err != nil {
		return x
	}
	return v
}

package qc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testThresholds = Thresholds{
	AllowStopCodons: false,
	PercRefCovered:  90,
	MeanCov:         100,
	MinorVars:       5,
}

func testProteins() *ProteinMap {
	return NewProteinMap(map[string][]string{
		"S":  {"SARS-CoV-2"},
		"HA": {"A_HA_H1", "A_HA_H3", "B_HA"},
		"NA": {"A_NA_N1", "A_NA_N2", "B_NA"},
	})
}

func goodRow(sample, ref string) SummaryRow {
	return SummaryRow{
		Sample: sample, Reference: ref,
		TotalReads: 1000, PassQCReads: 950, ReadsMapped: 900,
		PercRefCovered: 99, MeanCoverage: 500,
	}
}

func TestEvaluate_NoReasons(t *testing.T) {
	ev := NewEvaluator(testThresholds, testProteins())
	got := ev.Evaluate([]SummaryRow{goodRow("S1", "SARS-CoV-2")}, nil)
	assert.Empty(t, got.Reasons)
}

func TestEvaluate_EachRule(t *testing.T) {
	tests := []struct {
		name string
		edit func(*SummaryRow)
		want string
	}{
		{"ref coverage", func(r *SummaryRow) { r.PercRefCovered = 89.99 }, "Less than 90% of reference covered"},
		{"ref coverage at limit", func(r *SummaryRow) { r.PercRefCovered = 90 }, ""},
		{"mean coverage", func(r *SummaryRow) { r.MeanCoverage = 50 }, "Mean coverage < 100"},
		{"mean coverage at limit", func(r *SummaryRow) { r.MeanCoverage = 100 }, ""},
		{"minor variants", func(r *SummaryRow) { r.MinorSNVs = 6 }, "Count of minor variants at or over 5% > 5"},
		{"minor variants at limit", func(r *SummaryRow) { r.MinorSNVs = 5 }, ""},
		{"minor indels ignored", func(r *SummaryRow) { r.MinorIndels = 50 }, ""},
		{
			"all three in order",
			func(r *SummaryRow) { r.PercRefCovered, r.MeanCoverage, r.MinorSNVs = 10, 10, 10 },
			"Less than 90% of reference covered; Mean coverage < 100; Count of minor variants at or over 5% > 5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := goodRow("S1", "SARS-CoV-2")
			tt.edit(&row)
			got := NewEvaluator(testThresholds, testProteins()).Evaluate([]SummaryRow{row}, nil)
			reasons := got.Reasons[row.Key()]
			if tt.want == "" {
				assert.Empty(t, reasons)
				return
			}
			assert.Equal(t, tt.want, Verdict{Kind: Fail, Reasons: reasons}.String())
		})
	}
}

func TestEvaluate_EmptyReferenceSkipped(t *testing.T) {
	got := NewEvaluator(testThresholds, testProteins()).Evaluate([]SummaryRow{{Sample: "S1"}}, nil)
	assert.Empty(t, got.Reasons)
}

func TestEvaluate_PrematureStopFirst(t *testing.T) {
	row := goodRow("S1", "SARS-CoV-2")
	row.MeanCoverage = 20
	variants := []ProteinVariant{
		{Sample: "S1", Protein: "S", Variants: "D614G,Q677*"},
		{Sample: "S1", Protein: "S", Variants: "E484K"},
	}
	got := NewEvaluator(testThresholds, testProteins()).Evaluate([]SummaryRow{row}, variants)
	reasons := got.Reasons[row.Key()]
	require.Len(t, reasons, 2)
	assert.Equal(t, ReasonPrematureStop, reasons[0].Kind)
	assert.Equal(t, "Premature stop codon; Mean coverage < 100", Verdict{Kind: Fail, Reasons: reasons}.String())
}

func TestEvaluate_StopPattern(t *testing.T) {
	tests := []struct {
		variants string
		stop     bool
	}{
		{"Q677*", true},
		{"D614G,W152*", true},
		{"*", false},
		{"D614G", false},
		{"", false},
	}
	for _, tt := range tests {
		got := NewEvaluator(testThresholds, testProteins()).Evaluate(
			[]SummaryRow{goodRow("S1", "SARS-CoV-2")},
			[]ProteinVariant{{Sample: "S1", Protein: "S", Variants: tt.variants}},
		)
		assert.Equal(t, tt.stop, len(got.Reasons) > 0, "variants %q", tt.variants)
	}
}

func TestEvaluate_AllowStopCodons(t *testing.T) {
	th := testThresholds
	th.AllowStopCodons = true
	got := NewEvaluator(th, testProteins()).Evaluate(
		[]SummaryRow{goodRow("S1", "SARS-CoV-2")},
		[]ProteinVariant{{Sample: "S1", Protein: "S", Variants: "Q677*"}},
	)
	assert.Empty(t, got.Reasons)
}

func TestEvaluate_StopResolvesToAssembledReference(t *testing.T) {
	summary := []SummaryRow{goodRow("S1", "A_HA_H3"), goodRow("S1", "A_NA_N2")}
	got := NewEvaluator(testThresholds, testProteins()).Evaluate(summary, []ProteinVariant{
		{Sample: "S1", Protein: "HA", Variants: "R220*"},
	})
	assert.Len(t, got.Reasons, 1)
	assert.Contains(t, got.Reasons, Key{Sample: "S1", Reference: "A_HA_H3"})
	assert.Empty(t, got.Unresolved)
	assert.Empty(t, got.Ambiguous)
}

func TestEvaluate_SegmentSuffix(t *testing.T) {
	ev := NewEvaluator(testThresholds, testProteins())
	ev.SetSegmentSuffix(true)
	got := ev.Evaluate([]SummaryRow{goodRow("S1", "A_HA_H3")}, []ProteinVariant{
		{Sample: "S1_4", Protein: "HA", Variants: "R220*"},
	})
	assert.Contains(t, got.Reasons, Key{Sample: "S1", Reference: "A_HA_H3"})
}

func TestEvaluate_UnresolvedProteinLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ev := NewEvaluator(testThresholds, testProteins())
	ev.SetLogger(zap.New(core))

	got := ev.Evaluate([]SummaryRow{goodRow("S1", "A_NA_N2")}, []ProteinVariant{
		{Sample: "S1", Protein: "HA", Variants: "R220*"},
		{Sample: "S1", Protein: "HA", Variants: "K300*"},
		{Sample: "S1", Protein: "ORF99", Variants: "K3*"},
	})
	assert.Empty(t, got.Reasons)
	assert.Equal(t, []ProteinIssue{
		{Sample: "S1", Protein: "HA"},
		{Sample: "S1", Protein: "ORF99"},
	}, got.Unresolved)
	assert.Equal(t, 2, logs.FilterMessage("no assembled reference for protein").Len())
}

func TestEvaluate_AmbiguousProteinDeterministic(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	summary := []SummaryRow{goodRow("S1", "B_HA"), goodRow("S1", "A_HA_H3"), goodRow("S1", "A_HA_H1")}
	variants := []ProteinVariant{{Sample: "S1", Protein: "HA", Variants: "R220*"}}

	for range 5 {
		ev := NewEvaluator(testThresholds, testProteins())
		ev.SetLogger(zap.New(core))
		got := ev.Evaluate(summary, variants)

		// First candidate in configured order wins.
		require.Len(t, got.Reasons, 1)
		assert.Contains(t, got.Reasons, Key{Sample: "S1", Reference: "A_HA_H1"})
		require.Len(t, got.Ambiguous, 1)
		assert.Equal(t, "A_HA_H1", got.Ambiguous[0].Chosen)
		assert.Equal(t, []string{"A_HA_H1", "A_HA_H3", "B_HA"}, got.Ambiguous[0].Candidates)
	}
	assert.Equal(t, 5, logs.FilterMessage("protein matches several assembled references").Len())
}

func TestEvaluate_MeanCovMonotonic(t *testing.T) {
	var summary []SummaryRow
	for i, depth := range []float64{0, 50, 99, 100, 150, 500, 999, 1000, 5000} {
		row := goodRow("S1", "R"+string(rune('a'+i)))
		row.MeanCoverage = depth
		summary = append(summary, row)
	}
	count := func(meanCov float64) int {
		th := testThresholds
		th.MeanCov = meanCov
		n := 0
		for _, reasons := range NewEvaluator(th, nil).Evaluate(summary, nil).Reasons {
			if (Verdict{Kind: Fail, Reasons: reasons}).HasReason(ReasonMeanCoverage) {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 3, count(100))
	assert.Equal(t, 7, count(1000))
	assert.GreaterOrEqual(t, count(1000), count(100))
}

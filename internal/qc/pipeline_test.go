package qc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioInputs(depth float64) Inputs {
	return Inputs{
		Reads:      funnel("S1", 1000, 950, map[string]int64{"RefA": 900}),
		Coverage:   coverageRows("S1", "RefA", 1000, 100, depth),
		RefLengths: map[string]int{"RefA": 1000},
		NucleotideConsensus: []Sequence{
			{Sample: "S1", Name: "RefA", Seq: "ACGTACGT"},
		},
		Samples: []Sample{{ID: "S1", Type: "Test"}},
	}
}

func TestPipeline_Pass(t *testing.T) {
	res, err := NewPipeline(Profile{Thresholds: testThresholds}).Run(scenarioInputs(150))
	require.NoError(t, err)

	require.Len(t, res.Verdicts, 1)
	assert.Equal(t, "Pass", res.Verdicts[0].Verdict.String())
	require.Len(t, res.Consensus, 1)
	assert.Equal(t, "RefA", res.Consensus[0].Reference)

	report := res.Report()
	require.Len(t, report, 1)
	assert.Equal(t, 90.0, report[0].PercRefCovered)
	assert.Equal(t, 150.0, report[0].MeanCoverage)
	assert.Equal(t, Pass, report[0].Verdict.Kind)
}

func TestPipeline_LowDepthWithheld(t *testing.T) {
	res, err := NewPipeline(Profile{Thresholds: testThresholds}).Run(scenarioInputs(50))
	require.NoError(t, err)

	require.Len(t, res.Verdicts, 1)
	assert.Equal(t, "Mean coverage < 100", res.Verdicts[0].Verdict.String())
	assert.Empty(t, res.Consensus)
}

func TestPipeline_NegativeControls(t *testing.T) {
	in := scenarioInputs(150)
	in.Reads = append(in.Reads,
		ReadRecord{Sample: "NTC1", Record: "1-initial", Reads: 10000},
		ReadRecord{Sample: "NTC1", Record: "3-match", Reads: 2},
	)
	in.Samples = append(in.Samples, Sample{ID: "NTC1", Type: NegativeControlType}, Sample{ID: "S2", Type: "Test"})

	res, err := NewPipeline(Profile{Thresholds: testThresholds}).Run(in)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"NTC1": "0.02"}, res.Statement.Fails)
	assert.Empty(t, res.Statement.Passes)

	bySample := make(map[string][]VerdictRow)
	for _, v := range res.Verdicts {
		bySample[v.Sample] = append(bySample[v.Sample], v)
	}
	for _, s := range in.Samples {
		assert.NotEmpty(t, bySample[s.ID], s.ID)
	}
	require.Len(t, bySample["S2"], 1)
	assert.Equal(t, NoAssembly, bySample["S2"][0].Verdict.Kind)
	require.Len(t, bySample["NTC1"], 1)
	assert.Equal(t, NoMatchingReads, bySample["NTC1"][0].Verdict.Kind)
}

func TestPipeline_Idempotent(t *testing.T) {
	in := scenarioInputs(150)
	in.Reads = append(in.Reads, funnel("S2", 500, 400, map[string]int64{"RefA": 10, "RefB": 300})...)
	in.Coverage = append(in.Coverage, coverageRows("S2", "RefB", 1000, 0, 40)...)
	in.RefLengths["RefB"] = 1000
	p := NewPipeline(Profile{Thresholds: testThresholds, Proteins: testProteins()})

	first, err := p.Run(in)
	require.NoError(t, err)
	second, err := p.Run(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipeline_Error(t *testing.T) {
	in := scenarioInputs(150)
	in.RefLengths = nil
	_, err := NewPipeline(Profile{Thresholds: testThresholds}).Run(in)
	var missing *MissingReferenceLengthError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, err.Error(), "build summary")
}

func TestResult_ReportMissingVerdict(t *testing.T) {
	res := &Result{Summary: []SummaryRow{{Sample: "S1", Reference: "RefA"}}}
	report := res.Report()
	require.Len(t, report, 1)
	assert.Equal(t, "Fail", report[0].Verdict.String())
}

func TestPipeline_NoSampleSheetGuessesNegatives(t *testing.T) {
	in := scenarioInputs(150)
	in.Samples = nil
	in.Reads = append(in.Reads,
		ReadRecord{Sample: "PCR-NTC", Record: "1-initial", Reads: 1000},
		ReadRecord{Sample: "PCR-NTC", Record: "3-match", Reads: 0},
	)
	res, err := NewPipeline(Profile{Thresholds: testThresholds}).Run(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PCR-NTC": "0.00"}, res.Statement.Passes)
}

func TestPipeline_EmptySampleSheetNoGuess(t *testing.T) {
	in := scenarioInputs(150)
	in.Samples = []Sample{}
	in.Reads = append(in.Reads, ReadRecord{Sample: "PCR-NTC", Record: "1-initial", Reads: 1000})
	res, err := NewPipeline(Profile{Thresholds: testThresholds}).Run(in)
	require.NoError(t, err)
	assert.Empty(t, res.Statement.Passes)
	assert.Empty(t, res.Statement.Fails)
}

package irma

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-qc/internal/qc"
)

func TestLoadReferenceLengths(t *testing.T) {
	in := ">A_HA_H3 hemagglutinin\nACGTACGTAC\nACGT\n>A_NA_N2\nACG\n"
	got, err := LoadReferenceLengths(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A_HA_H3": 14, "A_NA_N2": 3}, got)
}

func TestLoadReferenceLengths_Duplicate(t *testing.T) {
	_, err := LoadReferenceLengths(strings.NewReader(">RefA\nAC\n>RefA\nACGT\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RefA")
}

func TestLoadConsensus(t *testing.T) {
	in := ">S1|SARS-CoV-2\nACGTNNAC\n>S2|SARS-CoV-2\nAC-GT\n"
	got, err := LoadConsensus(strings.NewReader(in), qc.Nucleotide)
	require.NoError(t, err)
	assert.Equal(t, []qc.Sequence{
		{Sample: "S1", Name: "SARS-CoV-2", Seq: "ACGTNNAC"},
		{Sample: "S2", Name: "SARS-CoV-2", Seq: "AC-GT"},
	}, got)
}

func TestLoadConsensus_AminoAcid(t *testing.T) {
	got, err := LoadConsensus(strings.NewReader(">S1_4|HA\nMKTIIAL*\n"), qc.AminoAcid)
	require.NoError(t, err)
	assert.Equal(t, []qc.Sequence{{Sample: "S1_4", Name: "HA", Seq: "MKTIIAL*"}}, got)
}

func TestLoadConsensus_BadName(t *testing.T) {
	_, err := LoadConsensus(strings.NewReader(">S1\nACGT\n"), qc.Nucleotide)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sample|Name")
}

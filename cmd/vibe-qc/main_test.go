package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-qc/internal/output"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

// writeIRMADir writes a run with one passing sample and one clean negative control.
func writeIRMADir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"reads.tsv": "Sample\tRecord\tReads\n" +
			"S1\t1-initial\t1000\nS1\t2-passQC\t950\nS1\t3-match\t900\nS1\t4-SARS-CoV-2\t900\n" +
			"NTC1\t1-initial\t1000\nNTC1\t3-match\t0\n",
		"coverage.tsv":       "Sample\tReference_Name\tPosition\tConsensus\tCoverage Depth\nS1\tSARS-CoV-2\t1\tA\t60\nS1\tSARS-CoV-2\t2\tC\t60\n",
		"alleles.tsv":        "Sample\tReference\tPosition\tMinority Frequency\n",
		"indels.tsv":         "Sample\tReference\tPosition\tFrequency\n",
		"references.fasta":   ">SARS-CoV-2\nAC\n",
		"nt_consensus.fasta": ">S1|SARS-CoV-2\nAC\n",
		"samplesheet.csv":    "Sample ID,Sample Type\nS1,Test\nNTC1,- Control\n",
	})
	return dir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vibe-qc version dev")
}

func TestExitCodes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	assert.Equal(t, ExitSuccess, run([]string{"version"}))
	assert.Equal(t, ExitUsage, run([]string{"run"}))
	assert.Equal(t, ExitUsage, run([]string{"version", "extra"}))
	assert.Equal(t, ExitUsage, run([]string{"run", "--no-such-flag"}))
	assert.Equal(t, ExitError, run([]string{"run", t.TempDir(), "--platform", "ont", "--virus", "sc2"}))
}

func TestRunCommand(t *testing.T) {
	dir := writeIRMADir(t)
	outDir := filepath.Join(t.TempDir(), "qc")
	dbPath := filepath.Join(t.TempDir(), "qc.duckdb")

	out, err := execute(t, "run", dir,
		"--samplesheet", filepath.Join(dir, "samplesheet.csv"),
		"--platform", "ont", "--virus", "sc2",
		"--out", outDir, "--db", dbPath, "--run-id", "run1", "--xlsx")
	require.NoError(t, err)
	assert.Contains(t, out, "QC complete: 2 samples, 2 verdicts, 1 consensus sequences")
	assert.NotContains(t, out, "WARNING")

	for _, name := range []string{
		output.FileStatement, output.FileSummaryTSV, output.FilePassFailTSV,
		output.FileNucleotideFA, output.FileWorkbook,
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	fa, err := os.ReadFile(filepath.Join(outDir, output.FileNucleotideFA))
	require.NoError(t, err)
	assert.Equal(t, ">S1|SARS-CoV-2\nAC\n", string(fa))

	out, err = execute(t, "db", "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run1")
	assert.Contains(t, out, "ont")

	out, err = execute(t, "db", "verdicts", "run1", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "S1\tPass")

	out, err = execute(t, "db", "negatives", "run1", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"NTC1":"0.00"`)

	_, err = execute(t, "db", "sample", "run1", "S9", "--db", dbPath)
	assert.Error(t, err)
}

func TestRunCommand_RerunStore(t *testing.T) {
	dir := writeIRMADir(t)
	sheet := filepath.Join(dir, "samplesheet.csv")
	dbPath := filepath.Join(t.TempDir(), "qc.duckdb")
	args := []string{"run", dir, "--samplesheet", sheet, "--platform", "ont", "--virus", "sc2",
		"--out", t.TempDir(), "--db", dbPath}

	_, err := execute(t, args...)
	require.NoError(t, err)
	_, err = execute(t, args...)
	require.NoError(t, err, "unchanged rerun")
	_, err = execute(t, append(args, "--force")...)
	require.NoError(t, err, "forced rewrite")

	// A changed sample sheet rewrites the stored run.
	writeFiles(t, dir, map[string]string{
		"samplesheet.csv": "Sample ID,Sample Type\nS1,Test\nNTC1,- Control\nNTC2,- Control\n",
	})
	_, err = execute(t, args...)
	require.NoError(t, err)

	out, err := execute(t, "db", "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2, out)

	out, err = execute(t, "db", "negatives", filepath.Base(dir), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"NTC2":"0.00"`)
}

func TestRunCommand_StoreFailureWritesNothing(t *testing.T) {
	dir := writeIRMADir(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	outDir := filepath.Join(t.TempDir(), "qc")

	_, err := execute(t, "run", dir, "--platform", "ont", "--virus", "sc2",
		"--out", outDir, "--db", filepath.Join(blocker, "qc.duckdb"))
	require.Error(t, err)
	assert.NoDirExists(t, outDir)
}

func TestRunCommand_UnknownPlatform(t *testing.T) {
	dir := writeIRMADir(t)
	_, err := execute(t, "run", dir, "--platform", "pacbio", "--virus", "sc2", "--out", t.TempDir())
	var usage *usageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, err.Error(), "pacbio")
}

func TestNegativeCommand(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"reads.tsv": "Sample\tRecord\tReads\n" +
			"PCR-NTC\t1-initial\t1000\nPCR-NTC\t3-match\t5\n" +
			"NTC2\t1-initial\t1000\nNTC2\t3-match\t0\n",
	})
	reads := filepath.Join(dir, "reads.tsv")

	out, err := execute(t, "negative", reads)
	require.NoError(t, err)
	assert.Contains(t, out, `"PCR-NTC":"0.50"`)
	assert.NotContains(t, out, "NTC2")

	out, err = execute(t, "negative", reads, "--negative", "NTC2")
	require.NoError(t, err)
	assert.Contains(t, out, `"NTC2":"0.00"`)
	assert.NotContains(t, out, "PCR-NTC")
}

package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/vibe-qc/internal/qc"
)

// Artifact file names.
const (
	FileStatement      = "qc_statement.json"
	FileSummaryTSV     = "irma_summary.tsv"
	FileSummaryJSON    = "irma_summary.json"
	FilePassFailTSV    = "pass_fail_qc.tsv"
	FilePassFailJSON   = "pass_fail_qc.json"
	FileNucleotideFA   = "amended_consensus.fasta"
	FileAminoAcidFA    = "amino_acid_consensus.fasta"
	FileProteinIssues  = "protein_issues.tsv"
	FileWorkbook       = "qc_report.xlsx"
	passFailIndexLabel = "Sample"
)

// ArtifactWriter writes every artifact of a run into one directory.
type ArtifactWriter struct {
	dir      string
	workbook bool
	logger   *zap.Logger
}

// NewArtifactWriter creates a writer for dir.
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir, logger: zap.NewNop()}
}

// SetWorkbook enables the xlsx report.
func (a *ArtifactWriter) SetWorkbook(on bool) {
	a.workbook = on
}

// SetLogger sets the logger for written artifacts.
func (a *ArtifactWriter) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Write writes the artifacts of res and returns their paths.
func (a *ArtifactWriter) Write(res *qc.Result) ([]string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	summary := SummaryTable(res.Report())
	passFail := PassFailTable(res.Verdicts)
	issues := ProteinIssueTable(res.Unresolved, res.Ambiguous)

	steps := []struct {
		name  string
		write func(w *bufio.Writer) error
	}{
		{FileStatement, func(w *bufio.Writer) error { return WriteStatementJSON(w, res.Statement) }},
		{FileSummaryTSV, func(w *bufio.Writer) error { return writeTSV(w, summary, "") }},
		{FileSummaryJSON, func(w *bufio.Writer) error { return WriteTableJSON(w, summary) }},
		{FilePassFailTSV, func(w *bufio.Writer) error { return writeTSV(w, passFail, passFailIndexLabel) }},
		{FilePassFailJSON, func(w *bufio.Writer) error { return WriteTableJSON(w, passFail) }},
		{FileNucleotideFA, func(w *bufio.Writer) error { return WriteConsensus(w, res.Consensus, qc.Nucleotide) }},
		{FileAminoAcidFA, func(w *bufio.Writer) error { return WriteConsensus(w, res.Consensus, qc.AminoAcid) }},
		{FileProteinIssues, func(w *bufio.Writer) error { return writeTSV(w, issues, "") }},
	}

	var paths []string
	for _, s := range steps {
		path := filepath.Join(a.dir, s.name)
		if err := writeFile(path, s.write); err != nil {
			return paths, err
		}
		a.logger.Info("wrote artifact", zap.String("path", path))
		paths = append(paths, path)
	}

	if a.workbook {
		path := filepath.Join(a.dir, FileWorkbook)
		if err := WriteWorkbook(path, summary, passFail, res.Statement); err != nil {
			return paths, err
		}
		a.logger.Info("wrote artifact", zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTSV(w *bufio.Writer, t Table, indexLabel string) error {
	tw := NewTabWriter(w, indexLabel)
	if err := tw.Write(t); err != nil {
		return err
	}
	return tw.Flush()
}

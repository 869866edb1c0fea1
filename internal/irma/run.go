package irma

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/vibe-qc/internal/qc"
)

// Files names the inputs of a run directory.
type Files struct {
	Reads               string
	Coverage            string
	Alleles             string
	Indels              string
	ProteinVariants     string // optional
	References          string
	NucleotideConsensus string // optional
	AminoAcidConsensus  string // optional
}

// DefaultFiles returns the standard file names of a run directory.
func DefaultFiles() Files {
	return Files{
		Reads:               "reads.tsv",
		Coverage:            "coverage.tsv",
		Alleles:             "alleles.tsv",
		Indels:              "indels.tsv",
		ProteinVariants:     "dais_vars.tsv",
		References:          "references.fasta",
		NucleotideConsensus: "nt_consensus.fasta",
		AminoAcidConsensus:  "aa_consensus.fasta",
	}
}

// Paths returns the files of f resolved against dir, optional files included.
func (f Files) Paths(dir string) []string {
	names := []string{
		f.Reads, f.Coverage, f.Alleles, f.Indels, f.ProteinVariants,
		f.References, f.NucleotideConsensus, f.AminoAcidConsensus,
	}
	paths := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			paths = append(paths, resolve(dir, n))
		}
	}
	return paths
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// Loader reads every table of a run directory.
type Loader struct {
	files  Files
	logger *zap.Logger
}

// NewLoader creates a loader for the given file names.
func NewLoader(files Files) *Loader {
	return &Loader{files: files, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load reads the run in dir. Sample sheet entries are not part of the run
// directory and are left empty.
func (l *Loader) Load(dir string) (qc.Inputs, error) {
	var (
		in  qc.Inputs
		err error
	)
	path := func(name string) string {
		if name == "" {
			return ""
		}
		return resolve(dir, name)
	}

	if in.Reads, err = LoadReadsFile(path(l.files.Reads)); err != nil {
		return qc.Inputs{}, err
	}
	if in.Coverage, err = LoadCoverageFile(path(l.files.Coverage)); err != nil {
		return qc.Inputs{}, err
	}
	if in.Alleles, err = LoadAllelesFile(path(l.files.Alleles)); err != nil {
		return qc.Inputs{}, err
	}
	if in.Indels, err = LoadIndelsFile(path(l.files.Indels)); err != nil {
		return qc.Inputs{}, err
	}
	if in.RefLengths, err = LoadReferenceLengthsFile(path(l.files.References)); err != nil {
		return qc.Inputs{}, err
	}

	if in.ProteinVariants, err = optional(l, path(l.files.ProteinVariants), LoadProteinVariantsFile); err != nil {
		return qc.Inputs{}, err
	}
	if in.NucleotideConsensus, err = optional(l, path(l.files.NucleotideConsensus), func(p string) ([]qc.Sequence, error) {
		return LoadConsensusFile(p, qc.Nucleotide)
	}); err != nil {
		return qc.Inputs{}, err
	}
	if in.AminoAcidConsensus, err = optional(l, path(l.files.AminoAcidConsensus), func(p string) ([]qc.Sequence, error) {
		return LoadConsensusFile(p, qc.AminoAcid)
	}); err != nil {
		return qc.Inputs{}, err
	}

	l.logger.Info("loaded run",
		zap.String("dir", dir),
		zap.Int("reads", len(in.Reads)),
		zap.Int("coverage", len(in.Coverage)),
		zap.Int("alleles", len(in.Alleles)),
		zap.Int("indels", len(in.Indels)),
		zap.Int("references", len(in.RefLengths)))
	return in, nil
}

// optional loads path, treating an unset or missing file as empty.
func optional[T any](l *Loader, path string, load func(string) ([]T, error)) ([]T, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("optional input absent", zap.String("path", path))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return load(path)
}

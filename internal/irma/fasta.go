package irma

import (
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/inodb/vibe-qc/internal/qc"
)

// LoadReferenceLengths reads a reference FASTA and returns the length of each
// reference by name.
func LoadReferenceLengths(r io.Reader) (map[string]int, error) {
	lengths := make(map[string]int)
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))
	for sc.Next() {
		s := sc.Seq()
		if _, dup := lengths[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate reference %q", s.Name())
		}
		lengths[s.Name()] = s.Len()
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("read reference fasta: %w", err)
	}
	return lengths, nil
}

// LoadReferenceLengthsFile reads the reference FASTA at path.
func LoadReferenceLengthsFile(path string) (map[string]int, error) {
	return loadFile(path, LoadReferenceLengths)
}

// LoadConsensus reads consensus sequences whose records are named
// "Sample|Name", where Name is a reference or a protein.
func LoadConsensus(r io.Reader, kind qc.SequenceKind) ([]qc.Sequence, error) {
	var a alphabet.Alphabet = alphabet.DNA
	if kind == qc.AminoAcid {
		a = alphabet.Protein
	}

	var out []qc.Sequence
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, a)))
	for sc.Next() {
		s, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("unexpected sequence type %T", sc.Seq())
		}
		sample, name, ok := strings.Cut(s.Name(), "|")
		if !ok || sample == "" || name == "" {
			return nil, fmt.Errorf("consensus record %q is not named Sample|Name", s.Name())
		}
		out = append(out, qc.Sequence{
			Sample: sample,
			Name:   name,
			Seq:    string(alphabet.LettersToBytes(s.Seq)),
		})
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("read consensus fasta: %w", err)
	}
	return out, nil
}

// LoadConsensusFile reads the consensus FASTA at path.
func LoadConsensusFile(path string, kind qc.SequenceKind) ([]qc.Sequence, error) {
	return loadFile(path, func(r io.Reader) ([]qc.Sequence, error) {
		return LoadConsensus(r, kind)
	})
}

package output

import (
	"fmt"
	"io"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/inodb/vibe-qc/internal/qc"
)

// FastaWidth is the line width of written sequences.
const FastaWidth = 60

// WriteConsensus writes the records of the given kind as FASTA named
// "Sample|Name", in input order.
func WriteConsensus(w io.Writer, records []qc.ConsensusRecord, kind qc.SequenceKind) error {
	var a alphabet.Alphabet = alphabet.DNA
	if kind == qc.AminoAcid {
		a = alphabet.Protein
	}

	fw := fasta.NewWriter(w, FastaWidth)
	for _, r := range records {
		if r.Kind != kind {
			continue
		}
		s := linear.NewSeq(r.Sample+"|"+r.Name, alphabet.BytesToLetters([]byte(r.Seq)), a)
		if _, err := fw.Write(s); err != nil {
			return fmt.Errorf("write sequence %s|%s: %w", r.Sample, r.Name, err)
		}
	}
	return nil
}

package qc

// SequenceKind distinguishes nucleotide from amino acid consensus records.
type SequenceKind string

const (
	Nucleotide SequenceKind = "nt"
	AminoAcid  SequenceKind = "aa"
)

// ConsensusRecord is a consensus sequence cleared for output.
// Name is the reference for nucleotide records and the protein for amino acid records.
type ConsensusRecord struct {
	Sample    string
	Name      string
	Reference string
	Kind      SequenceKind
	Seq       string
}

// ConsensusInput holds the sequences gated by SelectConsensus.
type ConsensusInput struct {
	Verdicts      []VerdictRow
	Nucleotide    []Sequence // keyed by (Sample, Reference)
	AminoAcid     []Sequence // keyed by (Sample, Protein)
	Proteins      *ProteinMap
	SegmentSuffix bool // amino acid sample names carry a "_<segment>" suffix
}

// SelectConsensus keeps the sequences whose verdict Emits. Amino acid sequences
// are gated by the verdict of the reference their protein resolves to; proteins
// that resolve to no assembled reference are dropped. Input order is preserved,
// nucleotide records first.
func SelectConsensus(in ConsensusInput) []ConsensusRecord {
	verdicts := make(map[Key]Verdict, len(in.Verdicts))
	for _, v := range in.Verdicts {
		verdicts[v.Key()] = v.Verdict
	}
	emits := func(k Key) bool {
		v, ok := verdicts[k]
		return ok && v.Emits()
	}

	var out []ConsensusRecord
	for _, s := range in.Nucleotide {
		k := Key{Sample: s.Sample, Reference: s.Name}
		if !emits(k) {
			continue
		}
		out = append(out, ConsensusRecord{
			Sample: s.Sample, Name: s.Name, Reference: s.Name, Kind: Nucleotide, Seq: s.Seq,
		})
	}

	if in.Proteins == nil || len(in.AminoAcid) == 0 {
		return out
	}
	present := presentReferences(in.Verdicts)
	for _, s := range in.AminoAcid {
		sample := s.Sample
		if in.SegmentSuffix {
			sample = TrimSegmentSuffix(sample)
		}
		ref, _, ok := in.Proteins.Resolve(s.Name, present[sample])
		if !ok || !emits(Key{Sample: sample, Reference: ref}) {
			continue
		}
		out = append(out, ConsensusRecord{
			Sample: sample, Name: s.Name, Reference: ref, Kind: AminoAcid, Seq: s.Seq,
		})
	}
	return out
}

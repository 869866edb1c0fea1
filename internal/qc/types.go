// Package qc classifies IRMA assemblies into per sample and reference QC verdicts.
//
// The engine is a fixed chain of table transforms: BuildSummary joins the read
// funnel, coverage and minor variant tables into one row per (Sample, Reference),
// an Evaluator turns threshold violations into reasons, ResolveVerdicts assigns the
// final verdict and SelectConsensus gates consensus sequences on that verdict.
package qc

import (
	"cmp"
	"slices"
)

// NegativeControlType is the sample sheet "Sample Type" of a negative control.
const NegativeControlType = "- Control"

// Key identifies a row of the summary and verdict tables.
// An empty Reference marks a sample that matched no reference.
type Key struct {
	Sample    string
	Reference string
}

// compareKeys orders keys by sample, then reference.
func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.Sample, b.Sample); c != 0 {
		return c
	}
	return cmp.Compare(a.Reference, b.Reference)
}

// sortedKeys returns the keys of m in (Sample, Reference) order.
func sortedKeys[V any](m map[Key]V) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// ReadRecord is one row of the read funnel table.
type ReadRecord struct {
	Sample string
	Record string // stage tag, e.g. "1-initial", "3-match", "4-A_HA_H3"
	Reads  int64
}

// CoverageRecord is the consensus base and depth at one reference position.
type CoverageRecord struct {
	Sample    string
	Reference string
	Position  int64
	Consensus string
	Depth     float64
}

// VariantRecord is a minor allele or indel call with its population frequency.
type VariantRecord struct {
	Sample    string
	Reference string
	Position  int64
	Frequency float64
}

// ProteinVariant holds the translated amino acid variants of one protein.
type ProteinVariant struct {
	Sample   string
	Protein  string
	Variants string // e.g. "D614G,Q677*"
}

// Sequence is a consensus sequence. Name is a reference for nucleotide
// sequences and a protein for amino acid sequences.
type Sequence struct {
	Sample string
	Name   string
	Seq    string
}

// Sample is a sample sheet entry.
type Sample struct {
	ID   string
	Type string
}

// IsNegativeControl reports whether the sample is a negative control.
func (s Sample) IsNegativeControl() bool {
	return s.Type == NegativeControlType
}

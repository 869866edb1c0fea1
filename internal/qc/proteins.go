package qc

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ProteinMap maps a protein name to the references it can be translated from.
// Candidate order is significant: it breaks ties when a sample assembled more
// than one candidate reference.
type ProteinMap struct {
	candidates map[string][]string
}

// NewProteinMap creates a ProteinMap. The candidate slices are copied.
func NewProteinMap(candidates map[string][]string) *ProteinMap {
	m := &ProteinMap{candidates: make(map[string][]string, len(candidates))}
	for protein, refs := range candidates {
		m.candidates[protein] = slices.Clone(refs)
	}
	return m
}

// Proteins returns the known protein names in sorted order.
func (m *ProteinMap) Proteins() []string {
	names := lo.Keys(m.candidates)
	slices.Sort(names)
	return names
}

// Candidates returns the candidate references of a protein.
func (m *ProteinMap) Candidates(protein string) []string {
	return m.candidates[protein]
}

// Resolve returns the reference a protein belongs to among the references a
// sample actually assembled. matches lists every present candidate in candidate
// order; the first one is chosen. ok is false when no candidate is present.
func (m *ProteinMap) Resolve(protein string, present map[string]bool) (ref string, matches []string, ok bool) {
	matches = lo.Filter(m.candidates[protein], func(r string, _ int) bool {
		return present[r]
	})
	if len(matches) == 0 {
		return "", nil, false
	}
	return matches[0], matches, true
}

// ProteinIssue records a protein whose reference could not be picked cleanly.
type ProteinIssue struct {
	Sample     string
	Protein    string
	Candidates []string // present candidates; empty when unresolved
	Chosen     string
}

// TrimSegmentSuffix strips the "_<segment number>" suffix that segmented
// genomes append to sample names, e.g. "S1_4" -> "S1".
func TrimSegmentSuffix(sample string) string {
	i := strings.LastIndexByte(sample, '_')
	if i < 0 || i == len(sample)-1 {
		return sample
	}
	for _, c := range sample[i+1:] {
		if c < '0' || c > '9' {
			return sample
		}
	}
	return sample[:i]
}

// presentReferences indexes the non-empty references of each sample.
func presentReferences[T interface{ Key() Key }](rows []T) map[string]map[string]bool {
	present := make(map[string]map[string]bool)
	for _, r := range rows {
		k := r.Key()
		if k.Reference == "" {
			continue
		}
		if present[k.Sample] == nil {
			present[k.Sample] = make(map[string]bool)
		}
		present[k.Sample][k.Reference] = true
	}
	return present
}

func compareIssues(a, b ProteinIssue) int {
	return compareKeys(Key{Sample: a.Sample, Reference: a.Protein}, Key{Sample: b.Sample, Reference: b.Protein})
}

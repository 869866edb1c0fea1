package qc

import (
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Read funnel stages used by the negative control statement.
const (
	RecordInitial  = "1-initial"
	RecordMatch    = "3-match"
	RecordAltMatch = "3-altmatch"
)

// NegativeFailPercent is the mapping percentage at or above which a negative
// control is considered contaminated.
const NegativeFailPercent = 0.01

// UnboundedPercent is reported for a control with matched reads but no
// initial read count.
const UnboundedPercent = "inf"

// Statement groups negative controls by outcome. Values are mapping
// percentages with two decimals.
type Statement struct {
	Passes map[string]string `json:"passes QC"`
	Fails  map[string]string `json:"FAILS QC"`
}

// NegativeQCStatement classifies each negative control by the percentage of its
// initial reads that matched a reference. A control missing from the read table
// maps 0% and passes; one with matched reads but no initial count fails as "inf".
func NegativeQCStatement(reads []ReadRecord, negatives []string) Statement {
	initial := make(map[string]int64)
	matched := make(map[string]int64)
	for _, r := range reads {
		switch r.Record {
		case RecordInitial:
			initial[r.Sample] += r.Reads
		case RecordMatch, RecordAltMatch:
			matched[r.Sample] += r.Reads
		}
	}

	st := Statement{Passes: make(map[string]string), Fails: make(map[string]string)}
	for _, s := range negatives {
		pct := 0.0
		switch {
		case initial[s] > 0:
			pct = float64(matched[s]) / float64(initial[s]) * 100
		case matched[s] > 0:
			st.Fails[s] = UnboundedPercent
			continue
		}
		formatted := strconv.FormatFloat(pct, 'f', 2, 64)
		if pct >= NegativeFailPercent {
			st.Fails[s] = formatted
		} else {
			st.Passes[s] = formatted
		}
	}
	return st
}

// GuessNegativeControls returns the samples of the read table whose id contains
// "PCR", for runs without a sample sheet.
func GuessNegativeControls(reads []ReadRecord) []string {
	samples := lo.Uniq(lo.Map(reads, func(r ReadRecord, _ int) string { return r.Sample }))
	negatives := lo.Filter(samples, func(s string, _ int) bool { return strings.Contains(s, "PCR") })
	slices.Sort(negatives)
	return negatives
}

// NegativeControls returns the ids of the negative controls of a sample sheet.
func NegativeControls(samples []Sample) []string {
	return lo.FilterMap(samples, func(s Sample, _ int) (string, bool) {
		return s.ID, s.IsNegativeControl()
	})
}

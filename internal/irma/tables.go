// Package irma loads the per-run tables and sequences of an IRMA assembly
// into the records consumed by the qc engine.
package irma

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/grailbio/base/tsv"

	"github.com/inodb/vibe-qc/internal/qc"
)

// Table names used in errors.
const (
	TableReads    = "reads"
	TableCoverage = "coverage"
	TableAlleles  = "alleles"
	TableIndels   = "indels"
	TableDais     = "dais_vars"
)

// layout describes the header of a delimited table.
type layout struct {
	name    string
	columns []string          // required columns
	aliases map[string]string // alternate header -> required column
	comma   rune
}

// readTable validates the header of r against l, then decodes each row into R
// and hands it to emit.
func readTable[R any](r io.Reader, l layout, emit func(R) error) error {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read %s header: %w", l.name, err)
	}
	header = strings.TrimRight(header, "\r\n")
	if strings.TrimSpace(header) == "" {
		return &ParseError{Table: l.name, Line: 1, Message: "no header line found"}
	}

	names := strings.Split(header, string(l.comma))
	for i, n := range names {
		names[i] = strings.Trim(strings.TrimSpace(n), `"`)
	}
	// An alias only stands in for a column the header lacks.
	for i, n := range names {
		if c, ok := l.aliases[n]; ok && !slices.Contains(names, c) {
			names[i] = c
		}
	}
	for _, col := range l.columns {
		if !slices.Contains(names, col) {
			return &MissingColumnError{Table: l.name, Column: col}
		}
	}

	// Hand the normalized header to the decoder ahead of the remaining rows.
	normalized := strings.Join(names, string(l.comma)) + "\n"
	tr := tsv.NewReader(io.MultiReader(strings.NewReader(normalized), br))
	tr.Comma = l.comma
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true

	line := 1
	for {
		var row R
		err := tr.Read(&row)
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return &ParseError{Table: l.name, Line: line, Message: err.Error()}
		}
		if err := emit(row); err != nil {
			return &ParseError{Table: l.name, Line: line, Message: err.Error()}
		}
	}
}

// collect returns an emit function appending converted rows to dst.
func collect[R, T any](dst *[]T, conv func(R) (T, error)) func(R) error {
	return func(row R) error {
		v, err := conv(row)
		if err != nil {
			return err
		}
		*dst = append(*dst, v)
		return nil
	}
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("empty %s", name)
	}
	return nil
}

type readsRow struct {
	Sample string `tsv:"Sample"`
	Record string `tsv:"Record"`
	Reads  int64  `tsv:"Reads"`
}

var readsLayout = layout{
	name:    TableReads,
	columns: []string{"Sample", "Record", "Reads"},
	comma:   '\t',
}

// LoadReads reads the read funnel table.
func LoadReads(r io.Reader) ([]qc.ReadRecord, error) {
	var out []qc.ReadRecord
	err := readTable(r, readsLayout, collect(&out, func(row readsRow) (qc.ReadRecord, error) {
		if err := requireField("Sample", row.Sample); err != nil {
			return qc.ReadRecord{}, err
		}
		if row.Reads < 0 {
			return qc.ReadRecord{}, fmt.Errorf("negative read count %d", row.Reads)
		}
		return qc.ReadRecord{Sample: row.Sample, Record: row.Record, Reads: row.Reads}, nil
	}))
	return out, err
}

// LoadReadsFile reads the read funnel table at path.
func LoadReadsFile(path string) ([]qc.ReadRecord, error) {
	return loadFile(path, LoadReads)
}

type coverageRow struct {
	Sample    string  `tsv:"Sample"`
	Reference string  `tsv:"Reference_Name"`
	Position  int64   `tsv:"Position"`
	Consensus string  `tsv:"Consensus"`
	Depth     float64 `tsv:"Coverage Depth"`
}

var coverageLayout = layout{
	name:    TableCoverage,
	columns: []string{"Sample", "Reference_Name", "Position", "Consensus", "Coverage Depth"},
	aliases: map[string]string{"Coverage_Depth": "Coverage Depth"},
	comma:   '\t',
}

// LoadCoverage reads the per-position coverage table. A "Coverage_Depth"
// header is accepted for "Coverage Depth".
func LoadCoverage(r io.Reader) ([]qc.CoverageRecord, error) {
	var out []qc.CoverageRecord
	err := readTable(r, coverageLayout, collect(&out, func(row coverageRow) (qc.CoverageRecord, error) {
		if err := requireField("Reference_Name", row.Reference); err != nil {
			return qc.CoverageRecord{}, err
		}
		return qc.CoverageRecord{
			Sample:    row.Sample,
			Reference: row.Reference,
			Position:  row.Position,
			Consensus: row.Consensus,
			Depth:     row.Depth,
		}, nil
	}))
	return out, err
}

// LoadCoverageFile reads the coverage table at path.
func LoadCoverageFile(path string) ([]qc.CoverageRecord, error) {
	return loadFile(path, LoadCoverage)
}

type alleleRow struct {
	Sample    string  `tsv:"Sample"`
	Reference string  `tsv:"Reference"`
	Position  int64   `tsv:"Position"`
	Frequency float64 `tsv:"Minority Frequency"`
}

var allelesLayout = layout{
	name:    TableAlleles,
	columns: []string{"Sample", "Reference", "Position", "Minority Frequency"},
	comma:   '\t',
}

// LoadAlleles reads the minority allele table.
func LoadAlleles(r io.Reader) ([]qc.VariantRecord, error) {
	var out []qc.VariantRecord
	err := readTable(r, allelesLayout, collect(&out, func(row alleleRow) (qc.VariantRecord, error) {
		return qc.VariantRecord(row), nil
	}))
	return out, err
}

// LoadAllelesFile reads the minority allele table at path.
func LoadAllelesFile(path string) ([]qc.VariantRecord, error) {
	return loadFile(path, LoadAlleles)
}

type indelRow struct {
	Sample    string  `tsv:"Sample"`
	Reference string  `tsv:"Reference"`
	Position  int64   `tsv:"Position"`
	Frequency float64 `tsv:"Frequency"`
}

var indelsLayout = layout{
	name:    TableIndels,
	columns: []string{"Sample", "Reference", "Position", "Frequency"},
	aliases: map[string]string{"Upstream_Position": "Position"},
	comma:   '\t',
}

// LoadIndels reads the insertion/deletion table.
func LoadIndels(r io.Reader) ([]qc.VariantRecord, error) {
	var out []qc.VariantRecord
	err := readTable(r, indelsLayout, collect(&out, func(row indelRow) (qc.VariantRecord, error) {
		return qc.VariantRecord(row), nil
	}))
	return out, err
}

// LoadIndelsFile reads the indel table at path.
func LoadIndelsFile(path string) ([]qc.VariantRecord, error) {
	return loadFile(path, LoadIndels)
}

type daisRow struct {
	Sample   string `tsv:"Sample"`
	Protein  string `tsv:"Protein"`
	Variants string `tsv:"AA Variants"`
}

var daisLayout = layout{
	name:    TableDais,
	columns: []string{"Sample", "Protein", "AA Variants"},
	comma:   '\t',
}

// LoadProteinVariants reads the amino acid variant table.
func LoadProteinVariants(r io.Reader) ([]qc.ProteinVariant, error) {
	var out []qc.ProteinVariant
	err := readTable(r, daisLayout, collect(&out, func(row daisRow) (qc.ProteinVariant, error) {
		return qc.ProteinVariant(row), nil
	}))
	return out, err
}

// LoadProteinVariantsFile reads the amino acid variant table at path.
func LoadProteinVariantsFile(path string) ([]qc.ProteinVariant, error) {
	return loadFile(path, LoadProteinVariants)
}

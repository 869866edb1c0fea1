package irma

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/inodb/vibe-qc/internal/qc"
)

// Sample sheet columns.
const (
	ColSampleID   = "Sample ID"
	ColSampleType = "Sample Type"

	TableSampleSheet = "samplesheet"
)

type sampleRow struct {
	ID   string `tsv:"Sample ID"`
	Type string `tsv:"Sample Type"`
}

var sampleSheetLayout = layout{
	name:    TableSampleSheet,
	columns: []string{ColSampleID, ColSampleType},
	comma:   ',',
}

// LoadSampleSheet reads a comma-separated sample sheet. A sheet without
// entries yields an empty, non-nil slice.
func LoadSampleSheet(r io.Reader) ([]qc.Sample, error) {
	out := []qc.Sample{}
	err := readTable(r, sampleSheetLayout, collect(&out, func(row sampleRow) (qc.Sample, error) {
		return newSample(row.ID, row.Type)
	}))
	return out, err
}

// LoadSampleSheetFile reads the sample sheet at path. Files ending in .xlsx
// are read from their first worksheet; anything else is read as CSV.
func LoadSampleSheetFile(path string) ([]qc.Sample, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadSampleSheetXLSX(path)
	}
	return loadFile(path, LoadSampleSheet)
}

func loadSampleSheetXLSX(path string) ([]qc.Sample, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: read sheet %s: %w", path, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &ParseError{Table: TableSampleSheet, Line: 1, Message: "no header line found"}
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	idCol := slices.Index(header, ColSampleID)
	if idCol < 0 {
		return nil, &MissingColumnError{Table: TableSampleSheet, Column: ColSampleID}
	}
	typeCol := slices.Index(header, ColSampleType)
	if typeCol < 0 {
		return nil, &MissingColumnError{Table: TableSampleSheet, Column: ColSampleType}
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	out := []qc.Sample{}
	for i, row := range rows[1:] {
		id, typ := cell(row, idCol), cell(row, typeCol)
		if id == "" && typ == "" {
			continue // trailing blank rows
		}
		s, err := newSample(id, typ)
		if err != nil {
			return nil, &ParseError{Table: TableSampleSheet, Line: i + 2, Message: err.Error()}
		}
		out = append(out, s)
	}
	return out, nil
}

func newSample(id, typ string) (qc.Sample, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return qc.Sample{}, fmt.Errorf("empty %s", ColSampleID)
	}
	return qc.Sample{ID: id, Type: strings.TrimSpace(typ)}, nil
}

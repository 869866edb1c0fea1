package output

import (
	"bufio"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/inodb/vibe-qc/internal/qc"
)

// Workbook sheet names.
const (
	SheetSummary  = "Summary"
	SheetPassFail = "Pass-Fail"
	SheetNegative = "Negative Controls"
)

// WriteWorkbook writes the summary, the verdict matrix and the negative
// control statement as sheets of one xlsx workbook.
func WriteWorkbook(path string, summary, passFail Table, st qc.Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, SheetSummary, summary.Columns, summary.Data); err != nil {
		return err
	}

	passFailRows := make([][]any, len(passFail.Data))
	for i, row := range passFail.Data {
		passFailRows[i] = append([]any{passFail.Index[i]}, row...)
	}
	if err := addSheet(f, SheetPassFail, append([]string{"Sample"}, passFail.Columns...), passFailRows); err != nil {
		return err
	}

	if err := addSheet(f, SheetNegative, []string{"Sample", "Percent Mapped", "Result"}, statementRows(st)); err != nil {
		return err
	}

	return writeFile(path, func(w *bufio.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func statementRows(st qc.Statement) [][]any {
	var rows [][]any
	for _, group := range []struct {
		result string
		values map[string]string
	}{{"FAILS QC", st.Fails}, {"passes QC", st.Passes}} {
		samples := lo.Keys(group.values)
		slices.Sort(samples)
		for _, s := range samples {
			rows = append(rows, []any{s, group.values[s], group.result})
		}
	}
	return rows
}

func addSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	return writeSheet(f, sheet, header, rows)
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

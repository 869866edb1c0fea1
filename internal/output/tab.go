package output

import (
	"bufio"
	"io"
	"strings"
)

// TabWriter writes tables in tab-delimited format.
type TabWriter struct {
	w          *bufio.Writer
	indexLabel string
}

// NewTabWriter creates a new tab-delimited writer. A non-empty indexLabel
// writes the table index as a leading column with that header.
func NewTabWriter(w io.Writer, indexLabel string) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w), indexLabel: indexLabel}
}

// Write writes the header line and every row of t.
func (tw *TabWriter) Write(t Table) error {
	header := t.Columns
	if tw.indexLabel != "" {
		header = append([]string{tw.indexLabel}, t.Columns...)
	}
	if _, err := tw.w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}

	values := make([]string, 0, len(header))
	for i, row := range t.Data {
		values = values[:0]
		if tw.indexLabel != "" {
			values = append(values, formatCell("", t.Index[i]))
		}
		for j, v := range row {
			values = append(values, formatCell(t.Columns[j], v))
		}
		if _, err := tw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/inodb/vibe-qc/internal/qc"
)

// WriteTableJSON writes t in split layout.
func WriteTableJSON(w io.Writer, t Table) error {
	if err := json.NewEncoder(w).Encode(t); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	return nil
}

// WriteStatementJSON writes the negative control statement.
func WriteStatementJSON(w io.Writer, st qc.Statement) error {
	if err := json.NewEncoder(w).Encode(st); err != nil {
		return fmt.Errorf("encode statement: %w", err)
	}
	return nil
}

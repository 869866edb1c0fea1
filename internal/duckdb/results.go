package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-qc/internal/qc"
)

// RunRecord identifies one stored QC run.
type RunRecord struct {
	ID        string
	Platform  string
	Virus     string
	Dir       string
	CreatedAt time.Time
	Inputs    []FileFingerprint
}

// WriteRun stores the result of a run, replacing any rows previously stored
// under the same run id. The write is a single transaction.
func (s *Store) WriteRun(run RunRecord, res *qc.Result) (err error) {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	for _, table := range runTables {
		if _, err := conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", run.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := appendRows(conn, "runs", [][]driver.Value{{run.ID, run.Platform, run.Virus, run.Dir, run.CreatedAt}}); err != nil {
		return err
	}

	inputs := make([][]driver.Value, len(run.Inputs))
	for i, f := range run.Inputs {
		inputs[i] = []driver.Value{run.ID, f.Path, f.Size, f.ModTime}
	}
	if err := appendRows(conn, "run_inputs", inputs); err != nil {
		return err
	}

	summary := make([][]driver.Value, len(res.Summary))
	for i, r := range res.Summary {
		summary[i] = []driver.Value{
			run.ID, r.Sample, r.Reference, r.TotalReads, r.PassQCReads, r.ReadsMapped,
			r.PercRefCovered, r.MeanCoverage, int64(r.MinorSNVs), int64(r.MinorIndels),
		}
	}
	if err := appendRows(conn, "summary", summary); err != nil {
		return err
	}

	var verdicts, reasons [][]driver.Value
	for _, v := range res.Verdicts {
		verdicts = append(verdicts, []driver.Value{run.ID, v.Sample, v.Reference, int64(v.Verdict.Kind)})
		for i, r := range v.Verdict.Reasons {
			reasons = append(reasons, []driver.Value{run.ID, v.Sample, v.Reference, int64(i), int64(r.Kind), r.Limit})
		}
	}
	if err := appendRows(conn, "verdicts", verdicts); err != nil {
		return err
	}
	if err := appendRows(conn, "verdict_reasons", reasons); err != nil {
		return err
	}

	var negatives [][]driver.Value
	for sample, pct := range res.Statement.Passes {
		negatives = append(negatives, []driver.Value{run.ID, sample, pct, true})
	}
	for sample, pct := range res.Statement.Fails {
		negatives = append(negatives, []driver.Value{run.ID, sample, pct, false})
	}
	if err := appendRows(conn, "negative_controls", negatives); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// appendRows bulk-inserts rows into table using the Appender API on conn.
func appendRows(conn *sql.Conn, table string, rows [][]driver.Value) error {
	if len(rows) == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create %s appender: %w", table, err)
	}

	for _, row := range rows {
		if err := appender.AppendRow(row...); err != nil {
			appender.Close()
			return fmt.Errorf("append %s row: %w", table, err)
		}
	}
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", table, err)
	}
	return nil
}

// Runs lists the stored runs ordered by creation time, inputs included.
func (s *Store) Runs() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, platform, virus, dir, created_at
		FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Platform, &r.Virus, &r.Dir, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		if runs[i].Inputs, err = s.RunInputs(runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Run returns the stored run with the given id, or nil when there is none.
func (s *Store) Run(runID string) (*RunRecord, error) {
	r := RunRecord{ID: runID}
	err := s.db.QueryRow(`SELECT platform, virus, dir, created_at FROM runs WHERE run_id = ?`, runID).
		Scan(&r.Platform, &r.Virus, &r.Dir, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	if r.Inputs, err = s.RunInputs(runID); err != nil {
		return nil, err
	}
	return &r, nil
}

// IsCurrent reports whether run is already stored with the same platform, virus
// and unchanged input files.
func (s *Store) IsCurrent(run RunRecord) (bool, error) {
	prev, err := s.Run(run.ID)
	if err != nil || prev == nil {
		return false, err
	}
	if prev.Platform != run.Platform || prev.Virus != run.Virus {
		return false, nil
	}
	return s.InputsUnchanged(run.ID, run.Inputs)
}

// RunInputs returns the input fingerprints stored for a run, ordered by path.
func (s *Store) RunInputs(runID string) ([]FileFingerprint, error) {
	rows, err := s.db.Query(`SELECT path, size, mod_time FROM run_inputs
		WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run inputs: %w", err)
	}
	defer rows.Close()

	var fps []FileFingerprint
	for rows.Next() {
		var f FileFingerprint
		if err := rows.Scan(&f.Path, &f.Size, &f.ModTime); err != nil {
			return nil, fmt.Errorf("scan run input: %w", err)
		}
		fps = append(fps, f)
	}
	return fps, rows.Err()
}

// InputsUnchanged reports whether the run was stored from exactly the given
// input files in their current state.
func (s *Store) InputsUnchanged(runID string, current []FileFingerprint) (bool, error) {
	stored, err := s.RunInputs(runID)
	if err != nil {
		return false, err
	}
	if len(stored) == 0 || len(stored) != len(current) {
		return false, nil
	}
	byPath := make(map[string]FileFingerprint, len(stored))
	for _, f := range stored {
		byPath[f.Path] = f
	}
	for _, f := range current {
		if old, ok := byPath[f.Path]; !ok || !old.Matches(f) {
			return false, nil
		}
	}
	return true, nil
}

// Verdicts returns the verdict rows of a run ordered by (Sample, Reference).
func (s *Store) Verdicts(runID string) ([]qc.VerdictRow, error) {
	return s.queryVerdicts(runID, "")
}

func (s *Store) queryVerdicts(runID, sample string) ([]qc.VerdictRow, error) {
	filter, args := "", []any{runID}
	if sample != "" {
		filter, args = " AND sample = ?", append(args, sample)
	}

	rows, err := s.db.Query(`SELECT sample, reference, kind FROM verdicts
		WHERE run_id = ?`+filter+` ORDER BY sample, reference`, args...)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []qc.VerdictRow
	index := make(map[qc.Key]int)
	for rows.Next() {
		var v qc.VerdictRow
		var kind int64
		if err := rows.Scan(&v.Sample, &v.Reference, &kind); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		v.Verdict.Kind = qc.VerdictKind(kind)
		index[v.Key()] = len(out)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}

	reasons, err := s.db.Query(`SELECT sample, reference, kind, threshold FROM verdict_reasons
		WHERE run_id = ?`+filter+` ORDER BY sample, reference, ordinal`, args...)
	if err != nil {
		return nil, fmt.Errorf("query verdict reasons: %w", err)
	}
	defer reasons.Close()
	for reasons.Next() {
		var k qc.Key
		var kind int64
		var limit float64
		if err := reasons.Scan(&k.Sample, &k.Reference, &kind, &limit); err != nil {
			return nil, fmt.Errorf("scan verdict reason: %w", err)
		}
		i, ok := index[k]
		if !ok {
			continue
		}
		out[i].Verdict.Reasons = append(out[i].Verdict.Reasons, qc.Reason{Kind: qc.ReasonKind(kind), Limit: limit})
	}
	if err := reasons.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdict reasons: %w", err)
	}
	return out, nil
}

// LookupSample returns the summary rows of one sample with their verdicts.
func (s *Store) LookupSample(runID, sample string) ([]qc.ReportRow, error) {
	rows, err := s.db.Query(`SELECT reference, total_reads, pass_qc, reads_mapped,
		perc_ref_covered, mean_coverage, minor_snvs, minor_indels
		FROM summary WHERE run_id = ? AND sample = ? ORDER BY reference`, runID, sample)
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	defer rows.Close()

	var summary []qc.SummaryRow
	for rows.Next() {
		r := qc.SummaryRow{Sample: sample}
		var snvs, indels int64
		if err := rows.Scan(&r.Reference, &r.TotalReads, &r.PassQCReads, &r.ReadsMapped,
			&r.PercRefCovered, &r.MeanCoverage, &snvs, &indels); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		r.MinorSNVs, r.MinorIndels = int(snvs), int(indels)
		summary = append(summary, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}

	verdicts, err := s.queryVerdicts(runID, sample)
	if err != nil {
		return nil, err
	}
	res := qc.Result{Summary: summary, Verdicts: verdicts}
	return res.Report(), nil
}

// NegativeControls returns the negative control statement stored for a run.
func (s *Store) NegativeControls(runID string) (qc.Statement, error) {
	st := qc.Statement{Passes: make(map[string]string), Fails: make(map[string]string)}
	rows, err := s.db.Query(`SELECT sample, percent_mapped, passes FROM negative_controls
		WHERE run_id = ?`, runID)
	if err != nil {
		return st, fmt.Errorf("query negative controls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sample, pct string
		var passes bool
		if err := rows.Scan(&sample, &pct, &passes); err != nil {
			return st, fmt.Errorf("scan negative control: %w", err)
		}
		if passes {
			st.Passes[sample] = pct
		} else {
			st.Fails[sample] = pct
		}
	}
	return st, rows.Err()
}

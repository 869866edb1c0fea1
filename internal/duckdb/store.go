// Package duckdb stores QC run results in DuckDB so that verdicts and negative
// control statements can be queried across runs.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for run results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR,
		platform VARCHAR,
		virus VARCHAR,
		dir VARCHAR,
		created_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS run_inputs (
		run_id VARCHAR,
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS summary (
		run_id VARCHAR,
		sample VARCHAR,
		reference VARCHAR,
		total_reads BIGINT,
		pass_qc BIGINT,
		reads_mapped BIGINT,
		perc_ref_covered DOUBLE,
		mean_coverage DOUBLE,
		minor_snvs BIGINT,
		minor_indels BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS verdicts (
		run_id VARCHAR,
		sample VARCHAR,
		reference VARCHAR,
		kind BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS verdict_reasons (
		run_id VARCHAR,
		sample VARCHAR,
		reference VARCHAR,
		ordinal BIGINT,
		kind BIGINT,
		threshold DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS negative_controls (
		run_id VARCHAR,
		sample VARCHAR,
		percent_mapped VARCHAR,
		passes BOOLEAN
	)`,
}

// runTables lists the tables holding per-run rows, children first. WriteRun
// deletes then appends, so run_id carries no index constraint.
var runTables = []string{"run_inputs", "summary", "verdict_reasons", "verdicts", "negative_controls", "runs"}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

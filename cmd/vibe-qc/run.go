package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-qc/internal/config"
	"github.com/inodb/vibe-qc/internal/duckdb"
	"github.com/inodb/vibe-qc/internal/irma"
	"github.com/inodb/vibe-qc/internal/output"
	"github.com/inodb/vibe-qc/internal/qc"
)

type runOptions struct {
	dir         string
	sampleSheet string
	platform    string
	virus       string
	outDir      string
	dbPath      string
	runID       string
	workbook    bool
	force       bool
	files       irma.Files
}

func newRunCmd() *cobra.Command {
	opts := runOptions{files: irma.DefaultFiles()}
	cmd := &cobra.Command{
		Use:   "run <irma-dir>",
		Short: "Run QC on an IRMA results directory",
		Long: `Build the per-sample summary, apply the platform thresholds, resolve a
verdict for every sample and reference, and write the QC artifacts.`,
		Example: `  vibe-qc run results/ --samplesheet samplesheet.csv --platform ont --virus flu
  vibe-qc run results/ --samplesheet samplesheet.xlsx --platform illumina --virus sc2 --xlsx --db qc.duckdb`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.dir = args[0]
			return runQC(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.sampleSheet, "samplesheet", "", "Sample sheet (.csv or .xlsx) with 'Sample ID' and 'Sample Type' columns")
	f.StringVar(&opts.platform, "platform", "", "Sequencing platform threshold profile: ont, illumina")
	f.StringVar(&opts.virus, "virus", "", "Virus protein profile: sc2, flu")
	f.StringVarP(&opts.outDir, "out", "o", "", "Output directory (default: the IRMA directory)")
	f.StringVar(&opts.dbPath, "db", "", "Store results in this DuckDB database")
	f.StringVar(&opts.runID, "run-id", "", "Run id in the database (default: IRMA directory name)")
	f.BoolVar(&opts.workbook, "xlsx", false, "Also write "+output.FileWorkbook)
	f.BoolVar(&opts.force, "force", false, "Rewrite the stored run even when its inputs are unchanged")
	f.StringVar(&opts.files.Reads, "reads", opts.files.Reads, "Read funnel table")
	f.StringVar(&opts.files.Coverage, "coverage", opts.files.Coverage, "Coverage table")
	f.StringVar(&opts.files.Alleles, "alleles", opts.files.Alleles, "Minority allele table")
	f.StringVar(&opts.files.Indels, "indels", opts.files.Indels, "Indel table")
	f.StringVar(&opts.files.ProteinVariants, "dais-vars", opts.files.ProteinVariants, "Amino acid variant table (optional)")
	f.StringVar(&opts.files.References, "references", opts.files.References, "Reference FASTA")
	f.StringVar(&opts.files.NucleotideConsensus, "nt-consensus", opts.files.NucleotideConsensus, "Nucleotide consensus FASTA (optional)")
	f.StringVar(&opts.files.AminoAcidConsensus, "aa-consensus", opts.files.AminoAcidConsensus, "Amino acid consensus FASTA (optional)")
	cmd.MarkFlagRequired("platform")
	cmd.MarkFlagRequired("virus")

	return cmd
}

func runQC(cmd *cobra.Command, opts runOptions) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	profile, err := cfg.Profile(opts.platform, opts.virus)
	if err != nil {
		return &usageError{err}
	}

	// Load everything before writing anything.
	loader := irma.NewLoader(opts.files)
	loader.SetLogger(logger)
	in, err := loader.Load(opts.dir)
	if err != nil {
		return err
	}
	if opts.sampleSheet != "" {
		if in.Samples, err = irma.LoadSampleSheetFile(opts.sampleSheet); err != nil {
			return err
		}
	}

	p := qc.NewPipeline(profile)
	p.SetLogger(logger)
	res, err := p.Run(in)
	if err != nil {
		return err
	}
	if n := len(res.Unresolved); n > 0 {
		logger.Warn("protein variants without an assembled reference", zap.Int("count", n))
	}

	// The store must open before any artifact is written.
	var st *runStore
	if opts.dbPath != "" {
		if st, err = openRunStore(opts); err != nil {
			return err
		}
		defer st.store.Close()
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = opts.dir
	}
	w := output.NewArtifactWriter(outDir)
	w.SetWorkbook(opts.workbook)
	w.SetLogger(logger)
	paths, err := w.Write(res)
	if err != nil {
		return err
	}

	if st != nil {
		if err := st.write(res); err != nil {
			return err
		}
	}

	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "QC complete: %d samples, %d verdicts, %d consensus sequences\n",
		countSamples(res.Verdicts), len(res.Verdicts), len(res.Consensus))
	for _, path := range paths {
		fmt.Fprintf(stdout, "  %s\n", path)
	}
	if n := len(res.Statement.Fails); n > 0 {
		fmt.Fprintf(stdout, "WARNING: %d negative control(s) FAIL QC\n", n)
	}
	return nil
}

// runStore is an open results database with the record of the current run.
type runStore struct {
	store   *duckdb.Store
	run     duckdb.RunRecord
	current bool
	path    string
}

func openRunStore(opts runOptions) (*runStore, error) {
	runID := opts.runID
	if runID == "" {
		abs, err := filepath.Abs(opts.dir)
		if err != nil {
			return nil, fmt.Errorf("resolve run directory: %w", err)
		}
		runID = filepath.Base(abs)
	}

	paths := opts.files.Paths(opts.dir)
	if opts.sampleSheet != "" {
		paths = append(paths, opts.sampleSheet)
	}
	inputs, err := duckdb.StatFiles(paths)
	if err != nil {
		return nil, fmt.Errorf("fingerprint inputs: %w", err)
	}

	store, err := duckdb.Open(opts.dbPath)
	if err != nil {
		return nil, err
	}
	rs := &runStore{
		store: store,
		path:  opts.dbPath,
		run: duckdb.RunRecord{
			ID:        runID,
			Platform:  opts.platform,
			Virus:     opts.virus,
			Dir:       opts.dir,
			CreatedAt: time.Now().UTC(),
			Inputs:    inputs,
		},
	}
	if !opts.force {
		if rs.current, err = store.IsCurrent(rs.run); err != nil {
			store.Close()
			return nil, err
		}
	}
	return rs, nil
}

// write stores res unless the run is already stored from the same inputs.
func (rs *runStore) write(res *qc.Result) error {
	if rs.current {
		logger.Info("run already stored from unchanged inputs, skipping (use --force to rewrite)",
			zap.String("run", rs.run.ID))
		return nil
	}
	if err := rs.store.WriteRun(rs.run, res); err != nil {
		return fmt.Errorf("store run %s: %w", rs.run.ID, err)
	}
	logger.Info("stored run", zap.String("run", rs.run.ID), zap.String("db", rs.path))
	return nil
}

func countSamples(verdicts []qc.VerdictRow) int {
	seen := make(map[string]bool)
	for _, v := range verdicts {
		seen[v.Sample] = true
	}
	return len(seen)
}

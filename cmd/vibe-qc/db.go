package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-qc/internal/duckdb"
	"github.com/inodb/vibe-qc/internal/output"
)

func newDBCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Query stored QC runs",
		Example: `  vibe-qc db runs --db qc.duckdb
  vibe-qc db verdicts run42 --db qc.duckdb
  vibe-qc db sample run42 S1 --db qc.duckdb
  vibe-qc db negatives run42 --db qc.duckdb`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "qc.duckdb", "DuckDB database")

	withStore := func(fn func(cmd *cobra.Command, s *duckdb.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			return fn(cmd, s, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Args:  usageArgs(cobra.NoArgs),
		RunE: withStore(func(cmd *cobra.Command, s *duckdb.Store, args []string) error {
			runs, err := s.Runs()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tPLATFORM\tVIRUS\tCREATED\tINPUTS\tDIR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.Platform, r.Virus, r.CreatedAt.Format("2006-01-02 15:04:05"), len(r.Inputs), r.Dir)
			}
			return tw.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verdicts <run-id>",
		Short: "Print the verdict matrix of a run",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: withStore(func(cmd *cobra.Command, s *duckdb.Store, args []string) error {
			verdicts, err := s.Verdicts(args[0])
			if err != nil {
				return err
			}
			if len(verdicts) == 0 {
				return fmt.Errorf("no verdicts stored for run %q", args[0])
			}
			tw := output.NewTabWriter(cmd.OutOrStdout(), "Sample")
			if err := tw.Write(output.PassFailTable(verdicts)); err != nil {
				return err
			}
			return tw.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sample <run-id> <sample>",
		Short: "Print the summary rows and verdicts of one sample",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: withStore(func(cmd *cobra.Command, s *duckdb.Store, args []string) error {
			rows, err := s.LookupSample(args[0], args[1])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("sample %q not found in run %q", args[1], args[0])
			}
			tw := output.NewTabWriter(cmd.OutOrStdout(), "")
			if err := tw.Write(output.SummaryTable(rows)); err != nil {
				return err
			}
			return tw.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "negatives <run-id>",
		Short: "Print the negative control statement of a run",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: withStore(func(cmd *cobra.Command, s *duckdb.Store, args []string) error {
			st, err := s.NegativeControls(args[0])
			if err != nil {
				return err
			}
			return output.WriteStatementJSON(cmd.OutOrStdout(), st)
		}),
	})

	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/inodb/vibe-qc/internal/irma"
	"github.com/inodb/vibe-qc/internal/output"
	"github.com/inodb/vibe-qc/internal/qc"
)

func newNegativeCmd() *cobra.Command {
	var (
		sampleSheet string
		negatives   []string
	)
	cmd := &cobra.Command{
		Use:   "negative <reads.tsv>",
		Short: "Report negative control contamination",
		Long: `Print the negative control statement for a read funnel table. Controls
come from --negative, the '- Control' entries of --samplesheet, or, when
neither is given, the samples whose id contains "PCR".`,
		Example: `  vibe-qc negative reads.tsv --samplesheet samplesheet.csv
  vibe-qc negative reads.tsv --negative NTC1 --negative NTC2`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			reads, err := irma.LoadReadsFile(args[0])
			if err != nil {
				return err
			}
			ids := append([]string(nil), negatives...)
			if sampleSheet != "" {
				samples, err := irma.LoadSampleSheetFile(sampleSheet)
				if err != nil {
					return err
				}
				ids = append(ids, qc.NegativeControls(samples)...)
			}
			if len(ids) == 0 && sampleSheet == "" {
				ids = qc.GuessNegativeControls(reads)
			}
			return output.WriteStatementJSON(cmd.OutOrStdout(), qc.NegativeQCStatement(reads, ids))
		},
	}

	cmd.Flags().StringVar(&sampleSheet, "samplesheet", "", "Sample sheet marking negative controls")
	cmd.Flags().StringSliceVar(&negatives, "negative", nil, "Negative control sample id (repeatable)")
	return cmd
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/simulation"
)

func newRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs <database>",
		Short: "List the runs recorded in a database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0,
		"Maximum number of runs to list (0 lists all)")

	return cmd
}

func listRuns(cmd *cobra.Command, filename string, limit int) error {
	reader, err := datarecording.NewReader(filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(simulation.RunSummaryTableName, simulation.RunSummary{})

	rows, total, err := reader.Query(cmd.Context(),
		simulation.RunSummaryTableName,
		datarecording.QueryParams{Limit: limit})
	if err != nil {
		return fmt.Errorf("reading runs: %w", err)
	}

	out := cmd.OutOrStdout()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Run\tC1\tC2\tB\tS\tAccesses\tMiss rate\t"+
		"Write backs\tAverage access time")

	for _, row := range rows {
		r := row.(*simulation.RunSummary)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%f\t%d\t%f\n",
			r.RunID, r.C1, r.C2, r.B, r.S, r.Accesses, r.MissRate,
			r.WriteBacks, r.AvgAccessTime)
	}

	err = tw.Flush()
	if err != nil {
		return err
	}

	if len(rows) < total {
		fmt.Fprintf(out, "%d of %d runs shown\n", len(rows), total)
	}

	return nil
}

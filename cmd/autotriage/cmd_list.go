package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/kiranshivaraju/autotriage/internal/feedback"
	"github.com/kiranshivaraju/autotriage/internal/logging"
	"github.com/kiranshivaraju/autotriage/internal/store"
	"github.com/spf13/cobra"
)

const listColumns = "ID\tMAKE\tMODEL\tSENTIMENT\tCLUSTER\tCREATED\tTEXT"

const maxListText = 60

func newListCmd(e *env) *cobra.Command {
	var filter store.FeedbackFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored feedback, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := feedback.NewService(e.store, logging.New("feedback"))
			items, total, err := svc.List(cmd.Context(), filter)
			if err != nil {
				return failed("list feedback", err)
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No feedback found.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, listColumns)
			for _, fb := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					fb.ID, fb.CarMake, fb.CarModel, orDash(fb.Sentiment), orDash(fb.FaultCluster),
					fb.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(fb.Text, maxListText))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nShowing %d of %d\n", len(items), total)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&filter.Offset, "skip", 0, "Number of records to skip")
	f.IntVar(&filter.Limit, "limit", 20, "Maximum number of records to show")
	f.StringVar(&filter.CarMake, "make", "", "Only show this car make")
	f.StringVar(&filter.FaultCluster, "cluster", "", "Only show this fault cluster")
	return cmd
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

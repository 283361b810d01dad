package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gcal-scheduler/app"
	"github.com/kilianp07/gcal-scheduler/config"
	"github.com/kilianp07/gcal-scheduler/core/calendar"
	"github.com/kilianp07/gcal-scheduler/core/history"
	"github.com/kilianp07/gcal-scheduler/pkg/export"
)

var historyFlags struct {
	since   string
	until   string
	meeting string
	status  string
	limit   int
	chart   string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scheduling runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.since, "since", "", "only runs at or after this date")
	f.StringVar(&historyFlags.until, "until", "", "only runs at or before this date")
	f.StringVar(&historyFlags.meeting, "meeting", "", "only runs that placed this meeting")
	f.StringVar(&historyFlags.status, "status", "", "only runs with this status")
	f.IntVar(&historyFlags.limit, "limit", 20, "maximum number of runs, latest first kept")
	f.StringVar(&historyFlags.chart, "chart", "", "also render attendance and cost to this HTML file")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	return withService(func(_ *config.Config, svc *app.Service) error {
		q := history.Query{Meeting: historyFlags.meeting, Status: historyFlags.status, Limit: historyFlags.limit}
		var err error
		if historyFlags.since != "" {
			if q.Since, err = calendar.ParseBound(historyFlags.since, svc.Location(), false); err != nil {
				return err
			}
		}
		if historyFlags.until != "" {
			if q.Until, err = calendar.ParseBound(historyFlags.until, svc.Location(), true); err != nil {
				return err
			}
		}
		recs, err := svc.History(ctx, q)
		if err != nil {
			return err
		}
		if historyFlags.chart != "" {
			if err := writeChart(historyFlags.chart, recs, svc); err != nil {
				return err
			}
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tTIME\tWEEK\tSTATUS\tMEETINGS\tATTENDANCE\tCOST")
		for _, r := range recs {
			status := r.Status
			if r.Reason != "" {
				status += " (" + r.Reason + ")"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\n",
				r.ID[:min(8, len(r.ID))],
				r.Timestamp.In(svc.Location()).Format("2006-01-02 15:04"),
				r.RangeStart.In(svc.Location()).Format("2006-01-02"),
				status, len(r.Meetings), r.Attendance, r.TotalCost)
		}
		return tw.Flush()
	})
}

func writeChart(path string, recs []history.RunRecord, svc *app.Service) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteHistoryChart(f, recs, svc.Location()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

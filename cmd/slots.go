package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/gcal-scheduler/app"
	"github.com/kilianp07/gcal-scheduler/config"
	"github.com/kilianp07/gcal-scheduler/core/calendar"
	"github.com/kilianp07/gcal-scheduler/core/scheduler"
	"github.com/kilianp07/gcal-scheduler/pkg/export"
)

var slotsCmd = &cobra.Command{
	Use:   "slots WEEK_START WEEK_END",
	Short: "List the availability windows and candidate slots of a week",
	Args:  cobra.ExactArgs(2),
	RunE:  runSlots,
}

func init() {
	rootCmd.AddCommand(slotsCmd)
}

func runSlots(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	return withService(func(_ *config.Config, svc *app.Service) error {
		start, end, err := calendar.WeekRange(args[0], args[1], svc.Location())
		if err != nil {
			return err
		}
		windows, slots, err := svc.Slots(ctx, start, end)
		if err != nil {
			return err
		}
		return export.WriteSlots(cmd.OutOrStdout(), windows, slots, scheduler.WindowID, svc.Location())
	})
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gcal-scheduler/app"
	"github.com/kilianp07/gcal-scheduler/config"
	"github.com/kilianp07/gcal-scheduler/core/calendar"
	"github.com/kilianp07/gcal-scheduler/pkg/export"
)

var scheduleFlags struct {
	keyAttendee    int
	requiredMember int
	keyMeeting     int
	saveCalendar   string
	noSave         bool
	format         string
	output         string
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule WEEK_START WEEK_END",
	Short: "Compute the schedule of a week",
	Long: `Compute the schedule of the week between WEEK_START and WEEK_END.
Bounds are YYYY-MM-DD dates in the configured timezone or RFC 3339
timestamps; a date end bound covers the whole day.`,
	Args: cobra.ExactArgs(2),
	RunE: runSchedule,
}

func init() {
	f := scheduleCmd.Flags()
	f.IntVar(&scheduleFlags.keyAttendee, "penalty-key-attendee-absence", 0, "penalty for a missing key attendee")
	f.IntVar(&scheduleFlags.requiredMember, "penalty-required-member-absence", 0, "penalty for a missing required member")
	f.IntVar(&scheduleFlags.keyMeeting, "penalty-key-meeting-absence", 0, "extra penalty for an absence from a key meeting")
	f.StringVar(&scheduleFlags.saveCalendar, "save-calendar", "", "calendar receiving the schedule (defaults to calendar.save_calendar)")
	f.BoolVar(&scheduleFlags.noSave, "no-save", false, "do not write the schedule to a calendar")
	f.StringVarP(&scheduleFlags.format, "format", "f", "table", "output format: table, json, csv or yaml")
	f.StringVarP(&scheduleFlags.output, "output", "o", "", "write the schedule to a file instead of stdout")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	return withService(func(cfg *config.Config, svc *app.Service) error {
		start, end, err := calendar.WeekRange(args[0], args[1], svc.Location())
		if err != nil {
			return err
		}
		req := app.Request{Start: start, End: end, SaveCalendar: cfg.Calendar.SaveCalendar}
		if cmd.Flags().Changed("save-calendar") {
			req.SaveCalendar = scheduleFlags.saveCalendar
		}
		if scheduleFlags.noSave {
			req.SaveCalendar = ""
		}
		if cmd.Flags().Changed("penalty-key-attendee-absence") {
			req.KeyAttendeeAbsence = &scheduleFlags.keyAttendee
		}
		if cmd.Flags().Changed("penalty-required-member-absence") {
			req.RequiredMemberAbsence = &scheduleFlags.requiredMember
		}
		if cmd.Flags().Changed("penalty-key-meeting-absence") {
			req.KeyMeetingAbsence = &scheduleFlags.keyMeeting
		}

		out, err := svc.Schedule(ctx, req)
		if out == nil {
			return err
		}
		w, closeOut, oerr := openOutput(cmd, scheduleFlags.output)
		if oerr != nil {
			return oerr
		}
		if werr := export.Write(w, scheduleFlags.format, out.View); werr != nil {
			_ = closeOut()
			return werr
		}
		if cerr := closeOut(); cerr != nil {
			return cerr
		}
		if err != nil {
			return err
		}
		if req.SaveCalendar != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %d/%d meetings to %q\n", out.Saved, len(out.View.Rows), req.SaveCalendar)
		}
		return nil
	})
}

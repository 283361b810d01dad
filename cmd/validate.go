package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gcal-scheduler/config"
	"github.com/kilianp07/gcal-scheduler/core/scheduler"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and print the resolved team",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(cfgPath)
	if err == nil {
		var roster *config.Roster
		if roster, err = cfg.Roster(); err == nil {
			fmt.Fprintf(out, "%d members, %d active meetings, %d inactive\n", len(roster.Members), len(roster.Meetings), len(roster.Inactive))
			for _, m := range roster.Meetings {
				fmt.Fprintf(out, "  %s: %v\n", m.Name, roster.MemberNames(m.RequiredMembers))
			}
			fmt.Fprintf(out, "%d potential times, calendar %q, solver %q\n", len(roster.Windows), cfg.Calendar.Type, cfg.Solver.Type)
			return nil
		}
	}
	var cerr *scheduler.ConfigurationError
	if errors.As(err, &cerr) {
		for _, p := range cerr.Problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "- %s\n", p)
		}
		return fmt.Errorf("%d configuration problems", len(cerr.Problems))
	}
	return err
}

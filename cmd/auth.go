package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gcal-scheduler/config"
	"github.com/kilianp07/gcal-scheduler/core/factory"
	"github.com/kilianp07/gcal-scheduler/infra/calendar/google"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Google Calendar access and store the token",
	Args:  cobra.NoArgs,
	RunE:  runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Calendar.Type != "google" {
		return fmt.Errorf("calendar type is %q, auth only applies to google", cfg.Calendar.Type)
	}
	var gc google.Config
	if err := factory.Decode(cfg.Calendar.Conf, &gc); err != nil {
		return err
	}
	if err := google.Authorize(ctx, gc, cmd.OutOrStdout()); err != nil {
		return err
	}
	gc.SetDefaults()
	fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", gc.TokenFile)
	return nil
}

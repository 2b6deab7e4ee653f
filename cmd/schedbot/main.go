package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"schedbot/internal/app"
	"schedbot/internal/config"
	"schedbot/internal/schedule"
)

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "schedbot",
		Short:         "Slack bot that schedules channel messages from a modal",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), resolveCmd(), configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var opts app.Options
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.NewApp(opts)
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				return err
			}

			reason := app.StopSignal
			select {
			case <-ctx.Done():
			case <-a.Done():
				if a.Err() != nil {
					reason = app.StopFatalError
				}
			}
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			if err := a.Stop(stopCtx, reason); err != nil {
				return err
			}
			return a.Err()
		},
	}
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to config yaml/json (empty: defaults + env)")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file loaded before the config (default ./.env if present)")
	return cmd
}

// resolveCmd runs the time grammar and zone resolution offline, the same
// way a modal submission is handled.
func resolveCmd() *cobra.Command {
	var date, raw, zone string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a date, time and time zone to the instant that would be scheduled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if errs := schedule.ValidateTimeField(raw); errs != nil {
				return fmt.Errorf("time: %s", errs[schedule.BlockTime])
			}
			at, err := schedule.NewResolver().ResolveInput(date, raw, zone)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\t%d\t%s\n", at.Format(time.RFC3339), at.Unix(), schedule.FormatInstant(at))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", time.Now().Format(schedule.DateLayout), "calendar date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&raw, "time", "", "time as typed in the modal, e.g. 9:11am")
	cmd.Flags().StringVar(&zone, "tz", "UTC", "IANA time zone")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Config utilities"}

	var path, envFile string
	check := &cobra.Command{
		Use:   "check",
		Short: "Load and validate the config, then print it with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.NewConfigManager(path).Load()
			if err != nil {
				return err
			}
			masked := *cfg
			masked.Slack.SigningSecret = mask(masked.Slack.SigningSecret)
			masked.Slack.BotToken = mask(masked.Slack.BotToken)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(masked)
		},
	}
	check.Flags().StringVar(&path, "config", "", "path to config yaml/json")
	check.Flags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config")
	cmd.AddCommand(check)
	return cmd
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"md5watch/internal/drain"
)

func newDrainCommand(ctx *commandContext) *cobra.Command {
	var backend string
	var verbose bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "drain <dir>",
		Short: "Time how long it takes for a directory to be emptied",
		Long: "Wait for the first file in <dir> to be read or removed, then report how long\n" +
			"it took until the directory was empty.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if strings.TrimSpace(backend) == "" {
				backend = cfg.Watch.Backend
			}
			logger, err := ctx.cliLogger(verbose)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			opts := drain.Options{
				Backend: backend,
				Logger:  logger,
				Verbose: verbose,
			}
			if !asJSON {
				opts.OnStart = func(trigger, name string, at time.Time) {
					fmt.Fprintf(stdout, "%s on %s started the timer at [%s]\n", trigger, name, formatTimestamp(at))
				}
			}
			res, err := drain.Run(runCtx, args[0], opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(stdout, "Directory %q is now empty!\n", res.Dir)
			fmt.Fprintf(stdout, "Duration: [%s]\n", drain.FormatDuration(res.Duration))
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "Notification backend: inotify or fsnotify")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every event")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

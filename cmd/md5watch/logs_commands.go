package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"md5watch/internal/logging"
	"md5watch/internal/logs"
	"md5watch/internal/report"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the current watcher log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			path := filepath.Join(cfg.Paths.LogDir, logging.CurrentLogName)
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stdout := cmd.OutOrStdout()
			opts := logs.TailOptions{Offset: -1, Limit: lines}
			for {
				res, err := logs.Tail(runCtx, path, opts)
				for _, line := range res.Lines {
					fmt.Fprintln(stdout, line)
				}
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				if !follow {
					return nil
				}
				opts = logs.TailOptions{Offset: res.Offset, Follow: true, Wait: 5 * time.Second}
			}
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	return cmd
}

func newFollowCommand(ctx *commandContext) *cobra.Command {
	var apiAddr string
	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Stream classification lines from the watcher's HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			addr := strings.TrimSpace(apiAddr)
			if addr == "" {
				addr = cfg.API.Bind
			}
			client, err := logs.NewResultsClient(addr, cfg.API.Token)
			if err != nil {
				return err
			}
			if client == nil {
				return fmt.Errorf("%w: set api.bind or pass --api", logs.ErrAPIUnavailable)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			dual := cfg.DualMode()

			var since uint64
			for {
				resp, err := client.Fetch(runCtx, since, 0, true)
				if err != nil {
					if runCtx.Err() != nil {
						return nil
					}
					if logs.IsAPIUnavailable(err) {
						return fmt.Errorf("connect to %s: %w", addr, err)
					}
					return err
				}
				for _, res := range resp.Results {
					line := report.Format(res.At.Local(), res.Classification, res.Name, res.SourceTag, dual)
					fmt.Fprintln(stdout, renderClassificationLine(line, res.Classification, colorize))
				}
				if len(resp.Results) > 0 || resp.Next < since {
					since = resp.Next
				}
			}
		},
	}
	cmd.Flags().StringVar(&apiAddr, "api", "", "API address (defaults to api.bind)")
	return cmd
}

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"md5watch/internal/config"
	"md5watch/internal/daemonrun"
)

type watchFlags struct {
	dir      string
	workdir  string
	second   string
	verbose  bool
	keep     bool
	workers  int
	backend  string
	apiBind  string
	logLevel string
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags watchFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch for arriving files and verify them in the foreground",
		Long: "Watch one or two directories for completed arrivals, move each file into the\n" +
			"working directory and print one MD5 GOOD, BAD or INVALID line per file.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.overrides = flags.overrides(cmd)
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var socket string
			if ctx.socketFlag != nil {
				socket = strings.TrimSpace(*ctx.socketFlag)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				SocketPath: socket,
				Output:     cmd.OutOrStdout(),
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.dir, "dir", "d", "", "Directory to watch (default \"/\")")
	f.StringVarP(&flags.workdir, "workdir", "w", "", "Working directory arrivals are moved into")
	f.StringVarP(&flags.second, "second", "s", "", "Second directory to watch; enables source tags in output")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Log every filesystem event and pipeline step")
	f.BoolVarP(&flags.keep, "keep", "k", false, "Keep verified files in the working directory")
	f.IntVar(&flags.workers, "workers", 0, "Number of concurrent verifications")
	f.StringVar(&flags.backend, "backend", "", "Notification backend: inotify or fsnotify")
	f.StringVar(&flags.apiBind, "api-bind", "", "Serve the HTTP API on this address")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	return cmd
}

// overrides returns only the values set on the command line.
func (w *watchFlags) overrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	f := cmd.Flags()
	if f.Changed("dir") {
		o.WatchDir = &w.dir
	}
	if f.Changed("workdir") {
		o.HoldingDir = &w.workdir
	}
	if f.Changed("second") {
		o.SecondaryDir = &w.second
	}
	if f.Changed("verbose") {
		o.Verbose = &w.verbose
		if w.verbose && !f.Changed("log-level") {
			debug := "debug"
			o.LogLevel = &debug
		}
	}
	if f.Changed("keep") {
		o.KeepProcessed = &w.keep
	}
	if f.Changed("workers") {
		o.Workers = &w.workers
	}
	if f.Changed("backend") {
		o.Backend = &w.backend
	}
	if f.Changed("api-bind") {
		o.APIBind = &w.apiBind
	}
	if f.Changed("log-level") {
		o.LogLevel = &w.logLevel
	}
	return o
}

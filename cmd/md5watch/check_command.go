package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"md5watch/internal/hashcodec"
	"md5watch/internal/logging"
	"md5watch/internal/report"
	"md5watch/internal/verifier"
)

// errCheckFailed marks a check run where at least one file did not verify.
var errCheckFailed = errors.New("verification failed")

type checkOutcome struct {
	Path   string        `json:"path"`
	Result report.Result `json:"result"`
	Error  string        `json:"error,omitempty"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var verbose bool
	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Verify files in place against the MD5 token in their names",
		Long: "Classify each file as GOOD, BAD or INVALID without moving, deleting or\n" +
			"recording it. Exits non-zero when any file is not GOOD.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger, err := ctx.cliLogger(verbose)
			if err != nil {
				return err
			}
			v := verifier.New(verifier.Deps{
				Hasher: hashcodec.NewHasher(cfg.Verify.ChunkSizeBytes),
				Logger: logger,
			}, verifier.Options{Verbose: verbose})

			stdout := cmd.OutOrStdout()
			stderr := cmd.ErrOrStderr()
			colorize := shouldColorize(stdout)
			outcomes := make([]checkOutcome, 0, len(args))
			failed := 0
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					path = arg
				}
				res, err := v.Check(cmd.Context(), path)
				outcome := checkOutcome{Path: path, Result: res}
				if err != nil {
					if cmd.Context().Err() != nil {
						return cmd.Context().Err()
					}
					failed++
					outcome.Error = err.Error()
					logging.WarnWithContext(logger, "check failed", "check_failed",
						logging.String(logging.FieldFile, path),
						logging.Error(err),
					)
					if !asJSON {
						fmt.Fprintf(stderr, "%s: %v\n", arg, err)
					}
					outcomes = append(outcomes, outcome)
					continue
				}
				if res.Classification != report.Good {
					failed++
				}
				outcomes = append(outcomes, outcome)
				if !asJSON {
					line := report.Format(res.At.Local(), res.Classification, res.Name, 0, false)
					fmt.Fprintln(stdout, renderClassificationLine(line, res.Classification, colorize))
				}
			}

			if asJSON {
				if err := writeJSON(cmd, outcomes); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %s of %s files", errCheckFailed, formatCount(failed), formatCount(len(args)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of classification lines")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log hashing details")
	return cmd
}

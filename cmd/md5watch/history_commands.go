package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"md5watch/internal/ipc"
	"md5watch/internal/ledger"
	"md5watch/internal/report"
)

type historyFlags struct {
	limit          int
	classification string
	name           string
	since          string
	json           bool
}

func (h *historyFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().IntVarP(&h.limit, "limit", "n", defaultLimit, "Maximum number of records to show")
	cmd.Flags().StringVar(&h.classification, "classification", "", "Only show GOOD, BAD or INVALID results")
	cmd.Flags().StringVar(&h.name, "name", "", "Only show files whose name contains this text")
	cmd.Flags().StringVar(&h.since, "since", "", "Only show results newer than a duration (24h) or RFC3339 time")
	cmd.Flags().BoolVar(&h.json, "json", false, "Emit JSON instead of a table")
}

func (h *historyFlags) filter(now time.Time) (ledger.Filter, error) {
	var filter ledger.Filter
	if value := strings.TrimSpace(h.classification); value != "" {
		c, ok := report.ParseClassification(value)
		if !ok {
			return filter, fmt.Errorf("invalid --classification %q: use good, bad or invalid", value)
		}
		filter.Classification = c
	}
	filter.Name = strings.TrimSpace(h.name)
	since, err := parseSince(h.since, now)
	if err != nil {
		return filter, err
	}
	filter.Since = since
	return filter, nil
}

func newRecentCommand(ctx *commandContext) *cobra.Command {
	var flags historyFlags
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recent verifications from the running watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter(time.Now())
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Recent(ipc.RecentRequest{
					Limit:          flags.limit,
					Classification: string(filter.Classification),
					Name:           filter.Name,
					Since:          filter.Since,
				})
				if err != nil {
					return err
				}
				if flags.json {
					return writeJSON(cmd, resp.Items)
				}
				renderRecords(cmd.OutOrStdout(), resp.Items)
				return nil
			})
		},
	}
	flags.register(cmd, 20)
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var flags historyFlags
	var purgeOlderThan time.Duration
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse the verification ledger without a running watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			now := time.Now()
			filter, err := flags.filter(now)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()

			path := cfg.LedgerPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if flags.json {
					return writeJSON(cmd, []ledger.Record{})
				}
				fmt.Fprintf(stdout, "No ledger at %s\n", path)
				return nil
			}
			store, err := ledger.OpenPath(path)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			if purgeOlderThan > 0 {
				removed, err := store.Purge(cmd.Context(), now.Add(-purgeOlderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Purged %s records older than %s\n", formatCount(removed), purgeOlderThan)
				return nil
			}

			records, err := store.Recent(cmd.Context(), flags.limit, filter)
			if err != nil {
				return err
			}
			if flags.json {
				return writeJSON(cmd, records)
			}
			renderRecords(stdout, records)
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if stats.Total > 0 {
				fmt.Fprintf(stdout, "%s of %s records: %s %s, %s %s, %s %s\n",
					formatCount(len(records)), formatCount(stats.Total),
					formatCount(stats.Good), classificationLabel(report.Good),
					formatCount(stats.Bad), classificationLabel(report.Bad),
					formatCount(stats.Invalid), classificationLabel(report.Invalid))
			}
			return nil
		},
	}
	flags.register(cmd, 50)
	cmd.Flags().DurationVar(&purgeOlderThan, "purge-older-than", 0, "Delete records older than this duration instead of listing")
	return cmd
}

func renderRecords(w io.Writer, records []ledger.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No verifications recorded")
		return
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			fmt.Sprint(rec.ID),
			formatTimestamp(rec.At),
			sourceLabel(rec.SourceTag),
			classificationLabel(rec.Classification),
			rec.Name,
			formatBytes(rec.Size),
			rec.Duration.Round(time.Millisecond).String(),
		})
	}
	fmt.Fprint(w, tableSpec{
		headers: []string{"ID", "Verified", "Source", "Result", "Name", "Size", "Took"},
		rows:    rows,
		aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	}.render())
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"md5watch/internal/daemonctl"
	"md5watch/internal/ipc"
	"md5watch/internal/report"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start [-- watch flags]",
		Short: "Start md5watch in the background",
		Long: "Launch a detached `md5watch watch`. Arguments after -- are passed to it,\n" +
			"for example: md5watch start -- --second /srv/incoming2 --keep",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			socket := ctx.socketPath()
			running, pid, err := daemonctl.ProcessInfo(socket)
			if err == nil && running {
				fmt.Fprintf(stdout, "md5watch already running (pid %d)\n", pid)
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			opts := daemonctl.LaunchOptions{Args: args}
			if ctx.socketFlag != nil {
				opts.SocketPath = strings.TrimSpace(*ctx.socketFlag)
			}
			opts.ConfigPath = ctx.configFlagValue()
			if err := daemonctl.Launch(exe, opts); err != nil {
				return err
			}
			client, err := daemonctl.WaitForClient(socket, 10*time.Second)
			if err != nil {
				return err
			}
			defer client.Close()
			status, err := client.Status()
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "md5watch started (pid %d)\n", status.PID)
			if status.LogPath != "" {
				fmt.Fprintf(stdout, "Log: %s\n", status.LogPath)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "md5watch is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.StopAcknowledged {
				fmt.Fprintln(stdout, "Finishing in-flight verifications...")
			} else {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Killed watcher process (pid %d)\n", result.PID)
			}
			fmt.Fprintln(stdout, "md5watch stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show watcher, directory and ledger status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, snap)
			}
			stdout := cmd.OutOrStdout()
			renderStatus(stdout, snap, shouldColorize(stdout))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit JSON instead of text")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderStatus(w io.Writer, snap *daemonctl.Snapshot, colorize bool) {
	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(w, line)
	}
	for _, line := range snap.Checks {
		fmt.Fprintln(w, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
	}

	if snap.Reachable && snap.Status.Running {
		st := snap.Status
		fmt.Fprintln(w)
		for _, line := range renderSectionHeader("Session", colorize) {
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w, renderStatusLine("PID", statusInfo, fmt.Sprint(st.PID), colorize))
		fmt.Fprintln(w, renderStatusLine("Run ID", statusInfo, st.RunID, colorize))
		if !st.StartedAt.IsZero() {
			uptime := time.Since(st.StartedAt).Truncate(time.Second)
			fmt.Fprintln(w, renderStatusLine("Started", statusInfo, fmt.Sprintf("%s (up %s)", formatTimestamp(st.StartedAt), uptime), colorize))
		}
		watchKind := statusOK
		if !st.Watch.Watching {
			watchKind = statusWarn
		}
		fmt.Fprintln(w, renderStatusLine("Backend", watchKind, st.Watch.Backend, colorize))
		fmt.Fprintln(w, renderStatusLine("Dual mode", statusInfo, yesNo(st.DualMode), colorize))
		fmt.Fprintln(w, renderStatusLine("Keep files", statusInfo, yesNo(st.KeepProcessed), colorize))
		if st.Watch.Overflows > 0 {
			fmt.Fprintln(w, renderStatusLine("Overflows", statusWarn, formatCount(st.Watch.Overflows), colorize))
		}
		if st.LogPath != "" {
			fmt.Fprintln(w, renderStatusLine("Log", statusInfo, st.LogPath, colorize))
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, tableSpec{
			title:   "This session",
			headers: []string{"Observed", "Queued", "In flight", "Good", "Bad", "Invalid", "Vanished", "Failed"},
			rows: [][]string{{
				formatCount(st.Watch.Observed),
				formatCount(st.Dispatch.Queued),
				formatCount(st.Dispatch.InFlight),
				formatCount(st.Verifier.Good),
				formatCount(st.Verifier.Bad),
				formatCount(st.Verifier.Invalid),
				formatCount(st.Verifier.NotFound),
				formatCount(st.Verifier.Failed),
			}},
			aligns: []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
		}.render())
	}

	fmt.Fprintln(w)
	for _, line := range renderSectionHeader("Ledger", colorize) {
		fmt.Fprintln(w, line)
	}
	if snap.LedgerError != "" {
		fmt.Fprintln(w, renderStatusLine("Ledger", statusError, snap.LedgerError, colorize))
		return
	}
	stats := snap.Ledger
	if stats.Total == 0 {
		fmt.Fprintln(w, "No verifications recorded")
		return
	}
	rows := [][]string{
		{classificationLabel(report.Good), formatCount(stats.Good)},
		{classificationLabel(report.Bad), formatCount(stats.Bad)},
		{classificationLabel(report.Invalid), formatCount(stats.Invalid)},
	}
	fmt.Fprint(w, tableSpec{
		headers: []string{"Result", "Count"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignRight},
		footer:  []string{"Total", formatCount(stats.Total)},
	}.render())
	fmt.Fprintf(w, "First: %s  Last: %s\n", formatTimestamp(stats.First), formatTimestamp(stats.Last))
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Sent {
					fmt.Fprintln(stdout, "Test notification sent")
					return nil
				}
				message := strings.TrimSpace(resp.Message)
				if message == "" {
					message = "notification not sent"
				}
				fmt.Fprintln(stdout, message)
				return nil
			})
		},
	}
}

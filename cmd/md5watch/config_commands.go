package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"md5watch/internal/config"
	"md5watch/internal/daemon"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = ctx.configFlagValue()
			}
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set paths.watch_dir and paths.holding_dir before running `md5watch watch`.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.API.Token != "" {
				shown.API.Token = "********"
			}
			data, err := shown.Encode()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.configExists {
				fmt.Fprintf(out, "# loaded from %s\n", ctx.configPath)
			} else {
				fmt.Fprintln(out, "# no config file found; defaults shown")
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and watched directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}

			var problems []string
			for _, target := range daemon.Targets(cfg) {
				info, err := os.Stat(target.Path)
				switch {
				case err != nil:
					problems = append(problems, fmt.Sprintf("watched directory %s: %v", target.Path, err))
				case !info.IsDir():
					problems = append(problems, fmt.Sprintf("watched directory %s is not a directory", target.Path))
				default:
					fmt.Fprintln(out, renderStatusLine(fmt.Sprintf("Watch [%d]", target.Tag), statusOK, target.Path, colorize))
				}
			}
			fmt.Fprintln(out, renderStatusLine("Working dir", statusInfo, cfg.Paths.HoldingDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Collisions", statusInfo, cfg.Verify.OnCollision, colorize))
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintln(out, renderStatusLine("Problem", statusError, p, colorize))
				}
				return fmt.Errorf("configuration has %d problem(s)", len(problems))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

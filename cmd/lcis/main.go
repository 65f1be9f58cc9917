// SPDX-License-Identifier: Apache-2.0

// Command lcis runs the legal coherence tools, either as an MCP server on
// stdio or one check at a time from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaraba/lcis/internal/config"
	"github.com/jaraba/lcis/internal/logging"
	"github.com/jaraba/lcis/internal/tool"
)

var version = "dev"

// app carries the state shared by every subcommand once the root
// PersistentPreRunE has run.
type app struct {
	configPath string
	logLevel   string
	output     string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "lcis",
		Short: "lcis - legal coherence checks for LLM answers",
		Long: `lcis checks that answers about Spanish and EU law respect the normative hierarchy,
competence allocation, organic law reserve and vigencia of the norms they cite.

Run "lcis serve" to expose the checks as MCP tools, or use the subcommands to
run a single check.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Path(a.configPath))
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := cfg.Log.Level
			if cmd.Flags().Changed("log-level") {
				level = a.logLevel
			}
			logger, err := logging.New(level)
			if err != nil {
				return err
			}
			a.logger = logger

			switch a.output {
			case "yaml", "json":
			default:
				return fmt.Errorf("unsupported output format %q (want yaml or json)", a.output)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: $"+config.EnvPath+")")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "yaml", "Output format (yaml or json)")

	rootCmd.AddCommand(a.newServeCmd())
	rootCmd.AddCommand(a.newClassifyCmd())
	rootCmd.AddCommand(a.newEnrichCmd())
	rootCmd.AddCommand(a.newPromptCmd())
	rootCmd.AddCommand(a.newValidateCmd())
	rootCmd.AddCommand(a.newDisclaimerCmd())
	rootCmd.AddCommand(a.newCheckCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// toolset builds the components from the loaded config, without metrics.
func (a *app) toolset() *tool.Toolset {
	return tool.New(nil, a.cfg, nil, nil, a.logger)
}

// write encodes v to the command output in the selected format.
func (a *app) write(cmd *cobra.Command, v any) error {
	var (
		data []byte
		err  error
	)
	if a.output == "json" {
		data, err = yaml.MarshalWithOptions(v, yaml.JSON())
	} else {
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(out, "\n")
	}
	return err
}

// textArg joins args, or reads stdin when there are none.
func textArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text given (pass it as arguments or on stdin)")
	}
	return text, nil
}

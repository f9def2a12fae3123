// Package cmd implements the uistate command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/internal/agent"
	"github.com/xkilldash9x/uistate/internal/config"
	"github.com/xkilldash9x/uistate/internal/observability"
)

// Version is set at build time.
var Version = "dev"

// DefaultTask runs when no task is given on the command line.
const DefaultTask = "How do I create a project in Linear?"

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "uistate [task]",
		Short: "uistate captures every UI state a web app passes through while performing a task.",
		Long: `uistate asks a language model for a plan, opens the app in a real browser, executes
the plan step by step with adaptive element resolution and saves a screenshot of each UI state,
including modals and other states without a URL.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(viper.GetViper()); err != nil {
				basicLogger, _ := zap.NewDevelopment()
				basicLogger.Error("Failed to initialize configuration", zap.Error(err))
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			if err := config.Load(viper.GetViper()); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "uistate"})
				return err
			}
			cfg := config.Get()

			if err := cfg.Validate(); err != nil {
				observability.InitializeLogger(cfg.Logger)
				return fmt.Errorf("invalid configuration: %w", err)
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting uistate", zap.String("version", Version))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), cmd.OutOrStdout(), taskFromArgs(args))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.Flags().Bool("headless", false, "run the browser without a window")
	_ = viper.BindPFlag("browser.headless", rootCmd.Flags().Lookup("headless"))

	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newBatchCmd())
	return rootCmd
}

// Execute runs the root command with a context canceled on interrupt.
func Execute(ctx context.Context) error {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func taskFromArgs(args []string) string {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return DefaultTask
	}
	return strings.TrimSpace(args[0])
}

func runTask(ctx context.Context, out io.Writer, task string) error {
	logger := observability.GetLogger()
	components, err := NewComponentFactory().Create(ctx, config.Get())
	if err != nil {
		return err
	}
	defer components.Shutdown()

	res, err := components.Agent.Run(ctx, task)
	writeSummary(out, res, err)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("Task failed.", zap.Error(err))
		}
		return err
	}
	return nil
}

// writeSummary prints the run summary shown at the end of a task.
func writeSummary(out io.Writer, res agent.Result, err error) {
	fmt.Fprintln(out, strings.Repeat("=", 60))
	if err != nil {
		fmt.Fprintf(out, "Task failed: %v\n", err)
	} else {
		fmt.Fprintln(out, "Task completed successfully")
	}
	fmt.Fprintf(out, "  Task: %s\n", res.Task)
	if res.Plan.App != "" {
		fmt.Fprintf(out, "  App: %s\n", res.Plan.App)
	}
	fmt.Fprintf(out, "  Captured states: %d\n", len(res.CapturedStates))
	if res.DatasetPath != "" {
		fmt.Fprintf(out, "  Dataset: %s\n", res.DatasetPath)
	}
	fmt.Fprintln(out, strings.Repeat("=", 60))
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig(v *viper.Viper) error {
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and the environment still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/uistate/internal/agent"
	"github.com/xkilldash9x/uistate/internal/config"
	"github.com/xkilldash9x/uistate/internal/observability"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <tasks-file>",
		Short: "Run every task listed in a file",
		Long: `Runs one task per non-empty line of the file. Lines starting with # are ignored.
Tasks run in parallel up to engine.worker_concurrency, each in its own browser tab.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open tasks file: %w", err)
			}
			defer f.Close()
			tasks, err := readTasks(f)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				return fmt.Errorf("no tasks found in %s", args[0])
			}

			ctx := cmd.Context()
			cfg := config.Get()
			components, err := NewComponentFactory().Create(ctx, cfg)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			batch := agent.NewBatch(cfg.Engine, observability.GetLogger(), components.Agent)
			taskChan := make(chan string, len(tasks))
			results := make(chan agent.BatchResult, len(tasks))
			batch.Start(ctx, taskChan, results)
			for _, t := range tasks {
				taskChan <- t
			}
			close(taskChan)
			batch.Stop()
			close(results)

			failed := 0
			for r := range results {
				writeSummary(cmd.OutOrStdout(), r.Result, r.Err)
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tasks failed", failed, len(tasks))
			}
			return nil
		},
	}
}

// readTasks returns the trimmed non-comment lines of r.
func readTasks(r io.Reader) ([]string, error) {
	var tasks []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return tasks, nil
}

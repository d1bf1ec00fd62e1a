package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question about the loaded course materials",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()
	ctx := context.Background()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	question := strings.Join(args, " ")

	answer, citations, err := a.Assistant.Query(ctx, question, "")
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer)

	if len(citations) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, c := range citations {
			if c.URL != "" {
				fmt.Fprintf(out, "  - %s (%s)\n", c.Title, c.URL)
			} else {
				fmt.Fprintf(out, "  - %s\n", c.Title)
			}
		}
	}
	return nil
}

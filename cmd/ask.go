package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noorchat/noor/internal/app"
	"github.com/noorchat/noor/internal/config"
	"github.com/noorchat/noor/internal/log"
	"github.com/noorchat/noor/internal/validate"
)

var askLang string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLang, "lang", "", "answer language (en, ar; default: detected)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Keep stdout clean for the answer text.
	logger := log.NewWithWriter(os.Stderr, log.Config{})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	question := strings.Join(args, " ")

	ans, err := a.Pipeline.Answer(ctx, question, askLang, func(delta string) {
		fmt.Print(delta)
	})
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}
	fmt.Println()

	if len(ans.Sources) > 0 {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Sources:")
		for _, s := range ans.Sources {
			line := fmt.Sprintf("  [%s] %s", s.Type, s.Label)
			if s.Reference != "" {
				line += " (" + s.Reference + ")"
			}
			if s.Grade != "" {
				line += " - " + s.Grade
			}
			fmt.Fprintln(os.Stderr, line)
		}
	}
	if ans.Confidence != validate.ConfidenceHigh {
		fmt.Fprintf(os.Stderr, "\nConfidence: %s\n", ans.Confidence)
	}
	for _, w := range ans.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return nil
}

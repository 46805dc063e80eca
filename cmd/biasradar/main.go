// Command biasradar compares the bias of two articles from the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zombar/biasradar/internal/analyzer"
	"github.com/zombar/biasradar/internal/compare"
	"github.com/zombar/biasradar/internal/notify"
	"github.com/zombar/biasradar/internal/termui"
	"github.com/zombar/biasradar/pkg/logging"
)

// stdinArg reads an article from standard input
const stdinArg = "-"

type options struct {
	delay    time.Duration
	asJSON   bool
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "biasradar",
		Short:         "Compare the bias, tone and sentiment of news articles",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&opts.delay, "delay", analyzer.DefaultDelay, "Simulated processing time per analysis")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of the rendered report")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newCompareCmd(opts), newAnalyzeCmd(opts))
	return root
}

func newCompareCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compare FILE1 FILE2",
		Short: "Analyze two articles side by side",
		Long:  `Analyzes two articles concurrently and prints both results with a neutral summary and comparative insights. Use "-" to read one article from stdin.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == stdinArg && args[1] == stdinArg {
				return errors.New("only one article can be read from stdin")
			}

			article1, err := readArticle(cmd, args[0])
			if err != nil {
				return err
			}
			article2, err := readArticle(cmd, args[1])
			if err != nil {
				return err
			}

			logger := opts.logger(cmd)
			session := compare.NewSession(opts.simulator(logger),
				compare.WithNotifier(notify.NewLogger(logger)),
				compare.WithLogger(logger),
			)

			comparison, err := session.Run(cmd.Context(), article1, article2)
			if err != nil {
				var verr *compare.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("please provide both articles to analyze: %w", err)
				}
				return err
			}

			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), comparison)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), termui.Render(comparison))
			return err
		},
	}
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a single article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readArticle(cmd, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("article is empty")
			}

			result, err := opts.simulator(opts.logger(cmd)).Analyze(cmd.Context(), text)
			if err != nil {
				return err
			}

			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), termui.RenderResult("Article Analysis", result))
			return err
		},
	}
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logging.ParseLevel(o.logLevel),
	}))
}

func (o *options) simulator(logger *slog.Logger) *analyzer.Analyzer {
	return analyzer.New(analyzer.WithDelay(o.delay), analyzer.WithLogger(logger))
}

// readArticle loads an article from a file, or from stdin for "-"
func readArticle(cmd *cobra.Command, path string) (string, error) {
	if path == stdinArg {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read article: %w", err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

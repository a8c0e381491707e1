package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vilaw/vilaw-web/internal/handlers"
	"github.com/vilaw/vilaw-web/internal/models"
	"github.com/vilaw/vilaw-web/internal/services"
	"github.com/vilaw/vilaw-web/internal/stream"
)

var (
	serverURL string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the ViLaw assistant a question and stream the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		backend := services.NewViLaw(serverURL, logger)
		err := ask(ctx, backend, models.DefaultLabels, strings.Join(args, " "), cmd.OutOrStdout())

		var connErr *stream.ConnectionError
		if errors.As(err, &connErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), handlers.DefaultErrorMessage)
		}
		return err
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", services.ViLawDefaultBaseURL, "base URL of the ViLaw API")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log session details to stderr")
}

// ask prints the question as a user entry, then streams the answer to out as it arrives. An empty
// question prints nothing.
func ask(ctx context.Context, backend handlers.Backend, labels models.Labels, question string, out io.Writer) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}

	fmt.Fprintln(out, labels.Line(models.Message{Sender: models.SenderUser, Text: question}))
	fmt.Fprintf(out, "%s: ", labels.Label(models.SenderBot))

	sess := stream.NewSession(uuid.New().String())
	err := sess.Run(ctx, func(ctx context.Context) (io.ReadCloser, error) {
		return backend.Stream(ctx, question)
	}, stream.NewWriterSink(out))
	fmt.Fprintln(out)

	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

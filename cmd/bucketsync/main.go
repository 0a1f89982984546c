package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/adapters/ndjson"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/exitcode"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/storage"
)

// usageError marks bad flags, config or input: nothing was sent to the bucket.
type usageError struct {
	err  error
	code int
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func configErr(err error) error { return &usageError{err: err, code: exitcode.ConfigError} }
func dataErr(err error) error   { return &usageError{err: err, code: exitcode.DataError} }

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return ue.code
	}
	var de *ndjson.DecodeError
	if errors.As(err, &de) {
		return exitcode.DataError
	}
	return exitcode.FromError(err)
}

type app struct {
	in     io.Reader
	out    io.Writer
	level  *slog.LevelVar
	logger *slog.Logger

	// newClient is swapped in tests.
	newClient func() (*storage.Client, error)

	verbose bool
	runID   string
}

func newApp(in io.Reader, out io.Writer, logOut io.Writer) *app {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	return &app{
		in:        in,
		out:       out,
		level:     level,
		logger:    slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level})),
		newClient: clientFromEnv,
	}
}

func clientFromEnv() (*storage.Client, error) {
	// Ensure environment variables are loaded
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load env vars", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, configErr(fmt.Errorf("failed to load config: %w", err))
	}
	return storage.NewClientFromConfig(cfg), nil
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bucketsync",
		Short:         "Block-indexed file log in an S3 bucket",
		Long:          "Reads and writes table/prefix_N.json block files in the sync bucket. The last synced block of a table is derived from the object names.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return configErr(err)
	})
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging.")
	cmd.PersistentFlags().StringVar(&a.runID, "run-id", "", "Run identifier (UUIDv7) attached to every log line. Generated when empty.")

	cmd.AddCommand(
		a.lastBlockCommand(),
		a.lsCommand(),
		a.deleteAllCommand(),
		a.putCommand(),
		a.uploadCommand(),
		a.downloadCommand(),
	)
	return cmd
}

func (a *app) setup(ctx context.Context) error {
	if a.verbose {
		a.level.Set(slog.LevelDebug)
	}

	runID := model.RunID(a.runID)
	if runID == "" {
		id, err := model.NewRunID()
		if err != nil {
			return err
		}
		runID = id
	}
	if err := runID.Validate(); err != nil {
		return configErr(fmt.Errorf("invalid run-id: %w", err))
	}

	a.logger = a.logger.With("run_id", runID.String())
	slog.SetDefault(a.logger)
	slog.DebugContext(ctx, "run started")
	return nil
}

func (a *app) run(ctx context.Context, args []string) error {
	cmd := a.rootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.out)
	return cmd.ExecuteContext(ctx)
}

func main() {
	// Create a cancellable context (for graceful shutdown)
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	slog.SetDefault(a.logger)

	err := a.run(ctx, os.Args[1:])
	cancel()
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(exitCode(err))
	}
}

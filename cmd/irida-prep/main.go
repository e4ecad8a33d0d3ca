package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lamim/irida-prep/internal/api"
	"github.com/lamim/irida-prep/internal/config"
	"github.com/lamim/irida-prep/internal/logging"
	"github.com/lamim/irida-prep/internal/metrics"
	"github.com/lamim/irida-prep/internal/upload"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// app holds the state shared by all subcommands of one invocation
type app struct {
	verbose     bool
	envFile     string
	metricsFile string

	stdin   io.Reader
	logger  *slog.Logger
	metrics *metrics.Collector
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin}
	rootCmd := a.rootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)

	if a.metrics != nil && a.metricsFile != "" {
		if werr := a.metrics.WriteTextfile(a.metricsFile); werr != nil {
			fmt.Fprintf(stderr, "Warning: failed to write metrics: %v\n", werr)
		}
	}

	if err == nil {
		return 0
	}
	var exitErr *upload.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "irida-prep",
		Short: "Prepare and upload sequencing runs to IRIDA",
		Long: `irida-prep creates IRIDA projects, writes the SampleList.csv manifest
for a folder of FASTQ files and uploads prepared runs.`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to environment file")
	rootCmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(a.prepareCommand())
	rootCmd.AddCommand(a.uploadCommand())
	rootCmd.AddCommand(a.configCommand())
	return rootCmd
}

// setup loads the env file and creates the console logger and metrics collector
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			// Only a missing default env file is silent
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to load env file: %v\n", err)
			}
		}
	}

	a.logger = logging.Console(cmd.ErrOrStderr(), a.logLevel())
	a.metrics = metrics.NewCollector(a.logger)
	return nil
}

func (a *app) logLevel() slog.Level {
	if a.verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// loadSettings resolves the IRIDA connection settings, prompting on stdin for anything missing
func (a *app) loadSettings(cmd *cobra.Command, path string, logger *slog.Logger) (*config.Settings, error) {
	prompt := config.NewPromptSource(a.stdin, cmd.ErrOrStderr())
	if a.stdin == os.Stdin {
		prompt = config.StdinPrompt()
	}

	settings, err := config.Load(path, prompt, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return settings, nil
}

// newClient creates an API client that reports into the metrics collector
func (a *app) newClient(settings *config.Settings, logger *slog.Logger) *api.Client {
	client := api.NewClient(settings, logger)
	client.SetRecorder(a.metrics)
	return client
}

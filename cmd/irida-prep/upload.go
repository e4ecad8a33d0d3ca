package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lamim/irida-prep/internal/config"
	"github.com/lamim/irida-prep/internal/logging"
	"github.com/lamim/irida-prep/internal/upload"
)

type uploadOptions struct {
	force      bool
	resume     bool
	mode       string
	batch      bool
	verifyGzip bool
	configPath string
}

func (a *app) uploadCommand() *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload [directory]",
		Short: "Upload a prepared run directory to IRIDA",
		Long: `Upload the samples listed in a run directory's SampleList.csv.
With --batch every subdirectory holding a SampleList.csv is uploaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpload(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force-upload", false, "Upload even if the run was uploaded before")
	cmd.Flags().BoolVar(&opts.resume, "continue-upload", false, "Resume a partially uploaded run")
	cmd.Flags().StringVar(&opts.mode, "upload_mode", "default", "Upload mode: default, assemblies or fast5")
	cmd.Flags().BoolVar(&opts.batch, "batch", false, "Upload every run directory inside the directory")
	cmd.Flags().BoolVar(&opts.verifyGzip, "verify-gzip", false, "Check gzip files for corruption before uploading")
	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to IRIDA config file")

	return cmd
}

func (a *app) runUpload(cmd *cobra.Command, args []string, opts uploadOptions) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	} else if wd, err := os.Getwd(); err == nil {
		dir = wd
	}

	mode, err := upload.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	var logFile *os.File
	defer func() {
		if logFile != nil {
			_ = logFile.Sync()
			_ = logFile.Close()
		}
	}()

	logger := a.logger.With("command", "upload")

	var trigger *upload.Trigger
	connect := func(ctx context.Context) (upload.Runner, error) {
		runLogger, f, err := logging.WithFile(cmd.ErrOrStderr(), filepath.Join(dir, logging.FileName), a.logLevel())
		if err != nil {
			logger.Warn("Failed to open run log", "error", err)
		} else {
			logFile = f
			logger = runLogger.With("command", "upload")
			trigger.SetLogger(logger)
		}

		settings, err := a.loadSettings(cmd, opts.configPath, logger)
		if err != nil {
			return nil, err
		}

		uploader := upload.NewUploader(a.newClient(settings, logger), logger)
		uploader.SetRecorder(a.metrics)
		return uploader, nil
	}

	trigger = upload.NewTrigger(connect, logger)
	code := trigger.Run(cmd.Context(), upload.Request{
		Directory:  dir,
		Force:      opts.force,
		Mode:       mode,
		Continue:   opts.resume,
		Batch:      opts.batch,
		VerifyGzip: opts.verifyGzip,
	})
	if code != 0 {
		return &upload.ExitError{Code: code}
	}
	return nil
}

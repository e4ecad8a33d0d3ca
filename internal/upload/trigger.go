package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/lamim/irida-prep/pkg/models"
)

// Options controls how a run is uploaded
type Options struct {
	Force      bool
	Continue   bool
	Mode       models.UploadMode
	VerifyGzip bool
}

// Result is the outcome of an upload; ExitCode is 0 on success and 1 on any error
type Result struct {
	ExitCode int
	Uploaded int
	Skipped  int
	Err      error
}

// Runner performs uploads of one run or a batch of runs
type Runner interface {
	UploadRun(ctx context.Context, dir string, opts Options) Result
	UploadBatch(ctx context.Context, dir string, opts Options) Result
}

// Request is one invocation of the upload command
type Request struct {
	Directory string
	Force     bool
	Mode      models.UploadMode
	Continue  bool
	Batch     bool

	VerifyGzip bool
}

// ParseMode converts a command line value into an upload mode
func ParseMode(s string) (models.UploadMode, error) {
	if s == "" {
		return models.UploadModeDefault, nil
	}
	for _, m := range models.UploadModes {
		if string(m) == s {
			return m, nil
		}
	}
	names := make([]string, len(models.UploadModes))
	for i, m := range models.UploadModes {
		names[i] = string(m)
	}
	return "", fmt.Errorf("invalid upload mode %q (choose from %s)", s, strings.Join(names, ", "))
}

// Writable reports whether the current user may write into dir
func Writable(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}

// Trigger checks a run directory and hands it to a Runner.
// Connect is called only after the directory passed its checks, so that
// credentials are not requested for a directory that cannot be uploaded.
type Trigger struct {
	Connect  func(ctx context.Context) (Runner, error)
	Writable func(dir string) bool
	Stderr   io.Writer
	logger   *slog.Logger
}

// NewTrigger creates a trigger that obtains its runner from connect
func NewTrigger(connect func(ctx context.Context) (Runner, error), logger *slog.Logger) *Trigger {
	return &Trigger{
		Connect:  connect,
		Writable: Writable,
		Stderr:   os.Stderr,
		logger:   logger,
	}
}

// SetLogger replaces the trigger's logger. Connect may call it to route the
// rest of the run into the run directory's log.
func (t *Trigger) SetLogger(logger *slog.Logger) {
	t.logger = logger
}

// Run executes req and returns the process exit code
func (t *Trigger) Run(ctx context.Context, req Request) int {
	if !t.Writable(req.Directory) {
		_, _ = fmt.Fprintf(t.Stderr, "ERROR! Specified directory is not writable: %s\n", req.Directory)
		return 1
	}

	mode := req.Mode
	if mode == "" {
		mode = models.UploadModeDefault
	}

	runner, err := t.Connect(ctx)
	if err != nil {
		t.logger.Error("Failed to prepare uploader", "error", err)
		return 1
	}

	opts := Options{
		Force:      req.Force,
		Continue:   req.Continue,
		Mode:       mode,
		VerifyGzip: req.VerifyGzip,
	}

	t.logger.Info("Starting upload",
		"directory", req.Directory,
		"mode", mode,
		"batch", req.Batch,
		"force", req.Force,
		"continue", req.Continue)

	var res Result
	if req.Batch {
		res = runner.UploadBatch(ctx, req.Directory, opts)
	} else {
		res = runner.UploadRun(ctx, req.Directory, opts)
	}

	if res.Err != nil {
		t.logger.Error("Upload finished with errors", "error", res.Err, "uploaded", res.Uploaded)
	}
	return res.ExitCode
}

// ExitError carries a non-zero exit code out of a command
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

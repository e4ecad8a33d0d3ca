package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/inhies/go-bytesize"
	"github.com/schollz/progressbar/v3"

	"github.com/lamim/irida-prep/internal/manifest"
	"github.com/lamim/irida-prep/pkg/models"
)

// SampleAPI is the part of the IRIDA client the uploader needs
type SampleAPI interface {
	GetSamples(ctx context.Context, projectID string) ([]models.Sample, error)
	SendSample(ctx context.Context, projectID string, sample models.Sample) (*models.Sample, error)
	SendSequenceFiles(ctx context.Context, sampleID string, mode models.UploadMode, paths []string) error
}

// Recorder receives upload counters
type Recorder interface {
	RecordUpload(mode string, files int, bytes int64)
	RecordSample(outcome string)
}

// ErrRunNotNew is returned when a run was already uploaded (or attempted) and
// neither force nor continue applies
var ErrRunNotNew = errors.New("run has already been uploaded")

// Uploader sends the samples listed in a run's SampleList.csv to IRIDA
type Uploader struct {
	api      SampleAPI
	logger   *slog.Logger
	recorder Recorder
	progress io.Writer
}

// NewUploader creates an uploader. Progress bars go to stderr.
func NewUploader(api SampleAPI, logger *slog.Logger) *Uploader {
	return &Uploader{
		api:      api,
		logger:   logger.With("component", "uploader"),
		progress: os.Stderr,
	}
}

// SetRecorder attaches a metrics recorder
func (u *Uploader) SetRecorder(r Recorder) {
	u.recorder = r
}

// SetProgressWriter redirects the progress bar; nil disables it
func (u *Uploader) SetProgressWriter(w io.Writer) {
	u.progress = w
}

// UploadRun uploads a single run directory
func (u *Uploader) UploadRun(ctx context.Context, dir string, opts Options) Result {
	uploaded, skipped, err := u.uploadRun(ctx, dir, opts)
	if err != nil {
		u.logger.Error("Upload failed", "directory", dir, "error", err)
		return Result{ExitCode: 1, Uploaded: uploaded, Skipped: skipped, Err: err}
	}
	return Result{ExitCode: 0, Uploaded: uploaded, Skipped: skipped}
}

// UploadBatch uploads every immediate subdirectory of dir that holds a sample list
func (u *Uploader) UploadBatch(ctx context.Context, dir string, opts Options) Result {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{ExitCode: 1, Err: fmt.Errorf("failed to read batch directory: %w", err)}
	}

	var runs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		runDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(runDir, manifest.FileName)); err == nil {
			runs = append(runs, runDir)
		}
	}
	if len(runs) == 0 {
		return Result{ExitCode: 1, Err: fmt.Errorf("no run directories with %s found in %s", manifest.FileName, dir)}
	}

	total := Result{}
	var failed []string
	for _, runDir := range runs {
		if ctx.Err() != nil {
			total.ExitCode = 1
			total.Err = ctx.Err()
			return total
		}
		u.logger.Info("Uploading run", "directory", runDir)
		res := u.UploadRun(ctx, runDir, opts)
		total.Uploaded += res.Uploaded
		total.Skipped += res.Skipped
		if res.ExitCode != 0 {
			failed = append(failed, filepath.Base(runDir))
		}
	}

	if len(failed) > 0 {
		total.ExitCode = 1
		total.Err = fmt.Errorf("%d of %d runs failed: %s", len(failed), len(runs), strings.Join(failed, ", "))
	}
	u.logger.Info("Batch upload finished", "runs", len(runs), "failed", len(failed))
	return total
}

func (u *Uploader) uploadRun(ctx context.Context, dir string, opts Options) (int, int, error) {
	rows, err := manifest.ReadSampleList(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, fmt.Errorf("%s lists no samples", manifest.FileName)
	}

	status, err := LoadStatus(dir)
	if err != nil {
		return 0, 0, err
	}
	if err := admit(status, opts); err != nil {
		return 0, 0, err
	}

	files, err := locateFiles(dir, rows)
	if err != nil {
		return 0, 0, u.fail(dir, status, err)
	}

	if opts.VerifyGzip {
		for _, paths := range files {
			for _, path := range paths {
				if !strings.HasSuffix(path, ".gz") {
					continue
				}
				if err := verifyGzip(path); err != nil {
					return 0, 0, u.fail(dir, status, err)
				}
			}
		}
	}

	status.State = models.StatePartial
	status.Mode = string(opts.Mode)
	status.Message = ""
	if err := SaveStatus(dir, status); err != nil {
		return 0, 0, err
	}

	bar := u.newBar(len(rows))
	existing := make(map[string]map[string]string)
	uploaded, skipped := 0, 0

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return uploaded, skipped, u.fail(dir, status, err)
		}

		if status.IsUploaded(row.Key()) {
			u.logger.Info("Skipping uploaded files", "sample", row.SampleID, "file", row.ForwardFile)
			skipped++
			u.recordSample("skipped")
			_ = bar.Add(1)
			continue
		}

		if err := u.uploadSample(ctx, row, files[i], opts.Mode, existing); err != nil {
			u.recordSample("failed")
			return uploaded, skipped, u.fail(dir, status, err)
		}

		status.UploadedRows = append(status.UploadedRows, row.Key())
		if err := SaveStatus(dir, status); err != nil {
			return uploaded, skipped, err
		}
		uploaded++
		u.recordSample("uploaded")
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	status.State = models.StateComplete
	if err := SaveStatus(dir, status); err != nil {
		return uploaded, skipped, err
	}

	u.logger.Info("Run uploaded",
		"directory", dir,
		"session_id", status.SessionID,
		"uploaded", uploaded,
		"skipped", skipped)
	return uploaded, skipped, nil
}

// admit applies the force and continue rules to a run's saved status
func admit(status *models.RunStatus, opts Options) error {
	if status.State == models.StateNew {
		return nil
	}
	if opts.Force {
		status.UploadedRows = nil
		return nil
	}
	if opts.Continue && status.State == models.StatePartial {
		return nil
	}
	return fmt.Errorf("%w (status %q); use --force-upload to upload it again", ErrRunNotNew, status.State)
}

func (u *Uploader) uploadSample(ctx context.Context, row models.ManifestRow, paths []string, mode models.UploadMode, existing map[string]map[string]string) error {
	samples, ok := existing[row.ProjectID]
	if !ok {
		list, err := u.api.GetSamples(ctx, row.ProjectID)
		if err != nil {
			return err
		}
		samples = make(map[string]string, len(list))
		for _, s := range list {
			samples[s.Name] = s.Identifier
		}
		existing[row.ProjectID] = samples
	}

	sampleID, ok := samples[row.SampleID]
	if !ok {
		created, err := u.api.SendSample(ctx, row.ProjectID, models.Sample{Name: row.SampleID})
		if err != nil {
			return err
		}
		sampleID = created.Identifier
		samples[row.SampleID] = sampleID
		u.logger.Debug("Created sample", "sample", row.SampleID, "id", sampleID, "project", row.ProjectID)
	}

	var size int64
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil {
			size += info.Size()
		}
	}

	u.logger.Info("Uploading sample",
		"sample", row.SampleID,
		"project", row.ProjectID,
		"files", len(paths),
		"size", bytesize.New(float64(size)).String())

	if err := u.api.SendSequenceFiles(ctx, sampleID, mode, paths); err != nil {
		return err
	}
	if u.recorder != nil {
		u.recorder.RecordUpload(string(mode), len(paths), size)
	}
	return nil
}

// fail records err in the status file and returns it
func (u *Uploader) fail(dir string, status *models.RunStatus, err error) error {
	status.State = models.StateError
	if len(status.UploadedRows) > 0 {
		status.State = models.StatePartial
	}
	status.Message = err.Error()
	if saveErr := SaveStatus(dir, status); saveErr != nil {
		u.logger.Warn("Failed to save upload status", "error", saveErr)
	}
	return err
}

func (u *Uploader) recordSample(outcome string) {
	if u.recorder != nil {
		u.recorder.RecordSample(outcome)
	}
}

func (u *Uploader) newBar(samples int) *progressbar.ProgressBar {
	if u.progress == nil {
		return progressbar.DefaultSilent(int64(samples))
	}
	return progressbar.NewOptions(samples,
		progressbar.OptionSetWriter(u.progress),
		progressbar.OptionSetDescription("Uploading samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(u.progress)
		}),
	)
}

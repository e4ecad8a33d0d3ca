package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/lamim/irida-prep/pkg/models"
)

// GetSamples lists the samples of a project
func (c *Client) GetSamples(ctx context.Context, projectID string) ([]models.Sample, error) {
	path := fmt.Sprintf("projects/%s/samples", url.PathEscape(projectID))
	build, err := c.jsonRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list sampleList
	if err := c.do(ctx, "samples", build, &list); err != nil {
		return nil, fmt.Errorf("failed to list samples of project %s: %w", projectID, err)
	}
	return list.Resource.Resources, nil
}

// SendSample creates a sample inside a project
func (c *Client) SendSample(ctx context.Context, projectID string, sample models.Sample) (*models.Sample, error) {
	path := fmt.Sprintf("projects/%s/samples", url.PathEscape(projectID))
	build, err := c.jsonRequest(http.MethodPost, path, sample)
	if err != nil {
		return nil, err
	}

	var created sampleEnvelope
	if err := c.do(ctx, "samples", build, &created); err != nil {
		return nil, fmt.Errorf("failed to create sample %q: %w", sample.Name, err)
	}
	if created.Resource.Identifier == "" {
		return nil, fmt.Errorf("server returned no identifier for sample %q", sample.Name)
	}
	return &created.Resource, nil
}

// SendSequenceFiles uploads the files of one sample to the endpoint matching mode.
// In default mode two files go to /pairs and one file to /sequenceFiles;
// assemblies and fast5 files are sent one request per file.
func (c *Client) SendSequenceFiles(ctx context.Context, sampleID string, mode models.UploadMode, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files to upload for sample %s", sampleID)
	}

	base := fmt.Sprintf("samples/%s/", url.PathEscape(sampleID))

	switch mode {
	case models.UploadModeDefault, "":
		if len(paths) == 2 {
			return c.sendFiles(ctx, base+"pairs", []string{"file1", "file2"}, paths)
		}
		if len(paths) == 1 {
			return c.sendFiles(ctx, base+"sequenceFiles", []string{"file"}, paths)
		}
		return fmt.Errorf("default mode takes one or two files per sample (got %d)", len(paths))
	case models.UploadModeAssemblies, models.UploadModeFast5:
		for _, p := range paths {
			if err := c.sendFiles(ctx, base+string(mode), []string{"file"}, []string{p}); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown upload mode %q", mode)
	}
}

// sendFiles streams files as a multipart form, each with a parameters part,
// so large FASTQ files are never held in memory
func (c *Client) sendFiles(ctx context.Context, path string, fields, files []string) error {
	endpoint := filepath.Base(path)

	build := func(ctx context.Context) (*http.Request, error) {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)

		go func() {
			pw.CloseWithError(writeMultipart(mw, fields, files))
		}()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), pr)
		if err != nil {
			_ = pr.Close()
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}

	if err := c.do(ctx, endpoint, build, nil); err != nil {
		return fmt.Errorf("failed to upload %v: %w", files, err)
	}
	return nil
}

func writeMultipart(mw *multipart.Writer, fields, files []string) error {
	for i, field := range fields {
		if err := copyFilePart(mw, field, files[i]); err != nil {
			return err
		}

		params, err := json.Marshal(fileParameters{})
		if err != nil {
			return err
		}
		paramField := "parameters"
		if len(fields) > 1 {
			paramField = fmt.Sprintf("parameters%d", i+1)
		}
		if err := mw.WriteField(paramField, string(params)); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyFilePart(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

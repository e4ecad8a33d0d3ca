package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lamim/irida-prep/internal/api"
	"github.com/lamim/irida-prep/internal/config"
	"github.com/lamim/irida-prep/pkg/models"
)

// fakeAPI records creation calls and serves a fixed project list
type fakeAPI struct {
	projects []models.Project
	listErr  error
	sendErr  error
	created  []models.Project
}

func (f *fakeAPI) GetProjects(ctx context.Context) ([]models.Project, error) {
	return f.projects, f.listErr
}

func (f *fakeAPI) SendProject(ctx context.Context, p models.Project) (*models.Project, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.created = append(f.created, p)
	p.Identifier = "123"
	return &p, nil
}

func newTestResolver(api API) *Resolver {
	r := NewResolver(api, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.Now = func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }
	return r
}

func TestResolveOrCreate_Existing(t *testing.T) {
	api := &fakeAPI{projects: []models.Project{
		{Identifier: "7", Name: "Other"},
		{Identifier: "9", Name: "Test Project"},
	}}

	id, err := newTestResolver(api).ResolveOrCreate(context.Background(), "Test Project")
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	if id != "9" {
		t.Errorf("ResolveOrCreate() = %q, want %q", id, "9")
	}
	if len(api.created) != 0 {
		t.Errorf("expected no creation call, got %d", len(api.created))
	}
}

func TestResolveOrCreate_FirstMatchWins(t *testing.T) {
	api := &fakeAPI{projects: []models.Project{
		{Identifier: "3", Name: "Dup"},
		{Identifier: "4", Name: "Dup"},
	}}

	id, err := newTestResolver(api).ResolveOrCreate(context.Background(), "Dup")
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	if id != "3" {
		t.Errorf("ResolveOrCreate() = %q, want first match %q", id, "3")
	}
}

func TestResolveOrCreate_CaseSensitive(t *testing.T) {
	api := &fakeAPI{projects: []models.Project{{Identifier: "1", Name: "test project"}}}

	id, err := newTestResolver(api).ResolveOrCreate(context.Background(), "Test Project")
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	if id != "123" || len(api.created) != 1 {
		t.Errorf("expected a new project, got id %q and %d creations", id, len(api.created))
	}
}

func TestResolveOrCreate_Creates(t *testing.T) {
	api := &fakeAPI{}

	id, err := newTestResolver(api).ResolveOrCreate(context.Background(), "Test Project")
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	if id != "123" {
		t.Errorf("ResolveOrCreate() = %q, want %q", id, "123")
	}
	if len(api.created) != 1 {
		t.Fatalf("expected exactly one creation call, got %d", len(api.created))
	}
	want := "Created on 2024-03-05 by BOT"
	if api.created[0].Description != want {
		t.Errorf("description = %q, want %q", api.created[0].Description, want)
	}
}

func TestResolveOrCreate_PropagatesErrors(t *testing.T) {
	boom := errors.New("connection refused")

	_, err := newTestResolver(&fakeAPI{listErr: boom}).ResolveOrCreate(context.Background(), "P")
	if !errors.Is(err, boom) {
		t.Errorf("list failure: got %v, want %v", err, boom)
	}

	api := &fakeAPI{sendErr: boom}
	_, err = newTestResolver(api).ResolveOrCreate(context.Background(), "P")
	if !errors.Is(err, boom) {
		t.Errorf("create failure: got %v, want %v", err, boom)
	}
}

func TestNameFromPath(t *testing.T) {
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		path string
		want string
	}{
		{"/data/runs/240612_NB501234_0042_AHXYZ", "QIB-240612-NB501234-0042-AHXYZ-240612"},
		{"/data/runs/240612_NB501234_0042_AHXYZ/", "QIB-240612-NB501234-0042-AHXYZ-240612"},
		{"/data/230101_NB1/fastq_pass", "QIB-fastq-pass-230101"},
		{"/data/my_run", "QIB-my-run-240701"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NameFromPath(tt.path, today); got != tt.want {
				t.Errorf("NameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNameFromPath_RelativeDirectory(t *testing.T) {
	today := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	dir := filepath.Join(t.TempDir(), "run_7")
	if err := os.MkdirAll(filepath.Join(dir, "fastq"), 0755); err != nil {
		t.Fatal(err)
	}
	testChdir(t, filepath.Join(dir, "fastq"))

	tests := []struct {
		path string
		want string
	}{
		{".", "QIB-fastq-240701"},
		{"..", "QIB-run-7-240701"},
		{"../fastq/", "QIB-fastq-240701"},
	}
	for _, tt := range tests {
		if got := NameFromPath(tt.path, today); got != tt.want {
			t.Errorf("NameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestResolveOrCreate_ServerErrorIsNotRetried(t *testing.T) {
	var posts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/oauth/token":
			_, _ = w.Write([]byte(`{"access_token":"t","expires_in":3600}`))
		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"resource":{"resources":[]}}`))
		default:
			posts++
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient(&config.Settings{
		BaseURL:      server.URL + "/api",
		ClientID:     "uploader",
		ClientSecret: "secret",
		Username:     "bot",
		Password:     "pw",
		Timeout:      5,
	}, logger)

	_, err := NewResolver(client, logger).ResolveOrCreate(context.Background(), "QIB-run-240101")
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Expected the 503 APIError, got %v", err)
	}
	if posts != 1 {
		t.Errorf("Expected exactly one creation call, got %d", posts)
	}
}

// testChdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func testChdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

package metrics

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTextfile(t *testing.T) {
	c := NewCollector(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.RecordAPIRequest("projects", 120*time.Millisecond, true)
	c.RecordUpload("default", 2, 2048)
	c.RecordSample("uploaded")
	c.RecordSample("skipped")

	path := filepath.Join(t.TempDir(), "irida_prep.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`irida_prep_uploaded_files_total{mode="default"} 2`,
		`irida_prep_uploaded_bytes_total 2048`,
		`irida_prep_samples_total{outcome="skipped"} 1`,
		`irida_prep_api_request_duration_seconds_count{endpoint="projects",status="success"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q\n%s", want, out)
		}
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewCollector(logger)
	b := NewCollector(logger)
	a.RecordSample("uploaded")

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() == "irida_prep_samples_total" && len(mf.GetMetric()) > 0 {
			t.Errorf("second collector saw samples from the first")
		}
	}
}

package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/lamim/irida-prep/pkg/models"
)

// StatusFilename is the per-run upload status file
const StatusFilename = "irida_uploader_status.toml"

// LoadStatus reads the status file of a run directory.
// A run without one is new and gets a fresh session id.
func LoadStatus(dir string) (*models.RunStatus, error) {
	data, err := os.ReadFile(filepath.Join(dir, StatusFilename))
	if errors.Is(err, fs.ErrNotExist) {
		now := time.Now()
		return &models.RunStatus{
			SessionID: uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
			State:     models.StateNew,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read upload status: %w", err)
	}

	var st models.RunStatus
	if err := toml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse upload status: %w", err)
	}
	if st.State == "" {
		st.State = models.StateNew
	}
	return &st, nil
}

// SaveStatus writes the status file of a run directory
func SaveStatus(dir string, st *models.RunStatus) error {
	st.UpdatedAt = time.Now()

	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal upload status: %w", err)
	}

	// Atomic write: write to temp file, then rename
	statusPath := filepath.Join(dir, StatusFilename)
	tempPath := statusPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp upload status: %w", err)
	}
	if err := os.Rename(tempPath, statusPath); err != nil {
		return fmt.Errorf("failed to rename upload status: %w", err)
	}
	return nil
}

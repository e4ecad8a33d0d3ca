package models

import "time"

// RunState is the upload state recorded for a run directory
type RunState string

const (
	StateNew      RunState = "new"
	StatePartial  RunState = "partial"
	StateComplete RunState = "complete"
	StateError    RunState = "error"
)

// RunStatus is the saved upload state of a run directory
type RunStatus struct {
	// Session identification
	SessionID string    `toml:"session_id"`
	CreatedAt time.Time `toml:"created_at"`
	UpdatedAt time.Time `toml:"updated_at"`

	State   RunState `toml:"state"`
	Mode    string   `toml:"mode"`
	Message string   `toml:"message,omitempty"`

	// Keys of manifest rows whose files were accepted by the server
	UploadedRows []string `toml:"uploaded_rows"`
}

// IsUploaded reports whether the row with key was recorded as uploaded
func (s *RunStatus) IsUploaded(key string) bool {
	for _, name := range s.UploadedRows {
		if name == key {
			return true
		}
	}
	return false
}

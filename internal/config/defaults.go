package config

import (
	"os"
	"path/filepath"
)

const (
	// DefaultTimeoutSeconds is offered when prompting for the request timeout
	DefaultTimeoutSeconds = 10
	// MaxTimeoutSeconds is the largest accepted request timeout
	MaxTimeoutSeconds = 3600
	// DefaultConfigName is the config file looked up next to the executable
	DefaultConfigName = "config.conf"
)

// DefaultPath returns config.conf beside the running binary,
// falling back to the working directory when the executable cannot be located
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultConfigName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), DefaultConfigName)
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
)

var iniOptions = ini.LoadOptions{
	Loose:               true,
	IgnoreInlineComment: true,
}

// tomlDocument mirrors the INI layout: a single [Settings] table
type tomlDocument struct {
	Settings map[string]any `toml:"Settings"`
}

// Load resolves every settings value from the config file, then the environment,
// then prompt (which may be nil). Values that did not come from the file are written
// back so the next run finds them there.
func Load(path string, prompt Source, logger *slog.Logger) (*Settings, error) {
	values, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	resolver := NewResolver(FileSource(values), EnvSource{}, prompt)

	var settings Settings
	changed := false
	for _, f := range Fields {
		v, source, err := resolver.Resolve(f)
		if err != nil {
			return nil, err
		}
		if v == "" && f.Default != "" {
			v, source = f.Default, "default"
		}
		if source != "" && source != "file" {
			changed = true
			logger.Debug("Resolved setting", "key", f.Key, "source", source)
		}
		if err := settings.Set(f.Key, v); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if changed {
		if err := Save(path, &settings); err != nil {
			return nil, fmt.Errorf("failed to persist configuration: %w", err)
		}
		logger.Info("Saved configuration", "path", path)
	}

	return &settings, nil
}

// ReadFile returns the settings section of a config file as strings.
// A missing file yields an empty map.
func ReadFile(path string) (map[string]string, error) {
	values := make(map[string]string)

	if isTOML(path) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var doc tomlDocument
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		for k, v := range doc.Settings {
			values[k] = fmt.Sprint(v)
		}
		return values, nil
	}

	f, err := ini.LoadSources(iniOptions, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	section, err := f.GetSection(SectionName)
	if err != nil {
		// No [Settings] section yet
		return values, nil
	}
	for _, key := range section.Keys() {
		values[key.Name()] = key.String()
	}
	return values, nil
}

// Save writes settings to path, as TOML when the path ends in .toml and INI otherwise.
// Other sections of an existing INI file are preserved.
func Save(path string, s *Settings) error {
	var buf bytes.Buffer

	if isTOML(path) {
		doc := struct {
			Settings *Settings `toml:"Settings"`
		}{Settings: s}
		data, err := toml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		buf.Write(data)
	} else {
		f, err := ini.LoadSources(iniOptions, path)
		if err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		section := f.Section(SectionName)
		for _, field := range Fields {
			section.Key(field.Key).SetValue(s.Get(field.Key))
		}
		if _, err := f.WriteTo(&buf); err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write temp config: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

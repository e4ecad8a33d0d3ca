package config

import (
	"fmt"
	"os"
)

// Source supplies settings values. An empty value means the source has nothing for the field.
type Source interface {
	Name() string
	Lookup(f Field) (string, error)
}

// Resolver consults its sources in order and keeps the first non-empty value
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver over the given sources; nil sources are skipped
func NewResolver(sources ...Source) *Resolver {
	r := &Resolver{}
	for _, s := range sources {
		if s != nil {
			r.sources = append(r.sources, s)
		}
	}
	return r
}

// Resolve returns the value for f and the name of the source that supplied it.
// Both are empty when no source has a value.
func (r *Resolver) Resolve(f Field) (string, string, error) {
	for _, s := range r.sources {
		v, err := s.Lookup(f)
		if err != nil {
			return "", s.Name(), fmt.Errorf("%s lookup for %s failed: %w", s.Name(), f.Key, err)
		}
		if v != "" {
			return v, s.Name(), nil
		}
	}
	return "", "", nil
}

// FileSource serves values read from a config file's settings section
type FileSource map[string]string

// Name implements Source
func (FileSource) Name() string { return "file" }

// Lookup implements Source
func (fs FileSource) Lookup(f Field) (string, error) {
	return fs[f.Key], nil
}

// EnvSource serves values from environment variables
type EnvSource struct {
	// Getenv defaults to os.Getenv
	Getenv func(string) string
}

// Name implements Source
func (EnvSource) Name() string { return "env" }

// Lookup implements Source
func (es EnvSource) Lookup(f Field) (string, error) {
	if f.Env == "" {
		return "", nil
	}
	getenv := es.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return getenv(f.Env), nil
}

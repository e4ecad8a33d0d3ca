// Package project finds or creates the IRIDA project a run is uploaded into.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lamim/irida-prep/pkg/models"
)

// NamePrefix starts every project name derived from a run directory
const NamePrefix = "QIB"

// runDatePattern finds the yymmdd date that sequencers put before the _NB instrument token
var runDatePattern = regexp.MustCompile(`([0-9]{6})_NB`)

// API is the part of the IRIDA client the resolver needs
type API interface {
	GetProjects(ctx context.Context) ([]models.Project, error)
	SendProject(ctx context.Context, project models.Project) (*models.Project, error)
}

// Resolver looks up projects by name and creates missing ones
type Resolver struct {
	api    API
	logger *slog.Logger
	// Now stamps the description of created projects; defaults to time.Now
	Now func() time.Time
}

// NewResolver creates a resolver over api
func NewResolver(api API, logger *slog.Logger) *Resolver {
	return &Resolver{
		api:    api,
		logger: logger.With("component", "project_resolver"),
		Now:    time.Now,
	}
}

// ResolveOrCreate returns the identifier of the project called name, creating it if
// no project has exactly that name. When several match, the first one wins.
// Failures from the server are returned without retry.
func (r *Resolver) ResolveOrCreate(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("project name is required")
	}

	projects, err := r.api.GetProjects(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, p := range projects {
		if p.Name == name {
			matches = append(matches, p.Identifier)
		}
	}

	if len(matches) > 0 {
		r.logger.Warn("Project already exists", "name", name, "identifiers", matches)
		if len(matches) > 1 {
			r.logger.Warn("Several projects share this name, using the first", "name", name, "identifier", matches[0])
		}
		return matches[0], nil
	}

	created, err := r.api.SendProject(ctx, models.Project{
		Name:        name,
		Description: DefaultDescription(r.Now()),
	})
	if err != nil {
		return "", err
	}

	r.logger.Info("Created project", "name", name, "identifier", created.Identifier)
	return created.Identifier, nil
}

// DefaultDescription is the description given to projects created by this tool
func DefaultDescription(now time.Time) string {
	return fmt.Sprintf("Created on %s by BOT", now.Format("2006-01-02"))
}

// NameFromPath derives a project name from a run directory:
// QIB-<directory name with _ replaced by ->-<run date>. The run date is the six-digit
// token before _NB anywhere in the absolute path, or today as yymmdd when there is none.
func NameFromPath(path string, today time.Time) string {
	// "." and other relative paths name the directory they resolve to
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	runDate := today.Format("060102")
	if m := runDatePattern.FindStringSubmatch(path); m != nil {
		runDate = m[1]
	}

	base := filepath.Base(filepath.Clean(path))
	return fmt.Sprintf("%s-%s-%s", NamePrefix, strings.ReplaceAll(base, "_", "-"), runDate)
}

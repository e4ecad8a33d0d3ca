package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lamim/irida-prep/pkg/models"
)

// GetProjects lists every project visible to the authenticated user.
// Project calls are not retried.
func (c *Client) GetProjects(ctx context.Context) ([]models.Project, error) {
	build, err := c.jsonRequest(http.MethodGet, "projects", nil)
	if err != nil {
		return nil, err
	}

	var list projectList
	if err := c.doOnce(ctx, "projects", build, &list); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return list.Resource.Resources, nil
}

// SendProject creates a project and returns it with the identifier assigned by the server
func (c *Client) SendProject(ctx context.Context, project models.Project) (*models.Project, error) {
	if project.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	build, err := c.jsonRequest(http.MethodPost, "projects", project)
	if err != nil {
		return nil, err
	}

	var created projectEnvelope
	if err := c.doOnce(ctx, "projects", build, &created); err != nil {
		return nil, fmt.Errorf("failed to create project %q: %w", project.Name, err)
	}
	if created.Resource.Identifier == "" {
		return nil, fmt.Errorf("server returned no identifier for project %q", project.Name)
	}

	c.logger.Info("Created project", "name", project.Name, "identifier", created.Resource.Identifier)
	return &created.Resource, nil
}

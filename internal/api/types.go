package api

import "github.com/lamim/irida-prep/pkg/models"

// tokenResponse is the OAuth2 token endpoint reply
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// projectList is the envelope returned by GET /projects
type projectList struct {
	Resource struct {
		Resources []models.Project `json:"resources"`
	} `json:"resource"`
}

// projectEnvelope is the envelope returned by POST /projects
type projectEnvelope struct {
	Resource models.Project `json:"resource"`
}

// sampleList is the envelope returned by GET /projects/{id}/samples
type sampleList struct {
	Resource struct {
		Resources []models.Sample `json:"resources"`
	} `json:"resource"`
}

// sampleEnvelope is the envelope returned by POST /projects/{id}/samples
type sampleEnvelope struct {
	Resource models.Sample `json:"resource"`
}

// fileParameters accompanies each uploaded sequence file
type fileParameters struct {
	SequencerRunID string `json:"miseqRunId,omitempty"`
}

// ErrorResponse is the error body returned by the IRIDA REST API
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	// OAuth errors use error_description instead of message
	Description string `json:"error_description"`
}

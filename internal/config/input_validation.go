package config

import (
	"fmt"
	"net/url"
	"unicode"
)

const (
	// MaxCredentialLength bounds client ids, secrets, usernames and passwords
	MaxCredentialLength = 256
)

// ValidateInputs rejects malformed URLs and credentials carrying control characters
func (s *Settings) ValidateInputs() error {
	if err := validateBaseURL(s.BaseURL); err != nil {
		return err
	}

	creds := []struct {
		name  string
		value string
	}{
		{KeyClientID, s.ClientID},
		{KeyClientSecret, s.ClientSecret},
		{KeyUsername, s.Username},
		{KeyPassword, s.Password},
	}
	for _, c := range creds {
		if len(c.value) > MaxCredentialLength {
			return fmt.Errorf("%s exceeds maximum length of %d characters (got %d)",
				c.name, MaxCredentialLength, len(c.value))
		}
		if containsControlChars(c.value) {
			return fmt.Errorf("%s contains invalid control characters", c.name)
		}
	}

	return nil
}

// validateBaseURL checks that the base URL is properly formatted
func validateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", KeyBaseURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme (got %q)", KeyBaseURL, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%s must have a host", KeyBaseURL)
	}

	return nil
}

// containsControlChars checks if a string contains any control characters
func containsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

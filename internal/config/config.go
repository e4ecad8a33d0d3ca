package config

import (
	"fmt"
	"strconv"
	"time"
)

// SectionName is the config file section holding the IRIDA settings
const SectionName = "Settings"

// Settings keys as they appear in the config file
const (
	KeyBaseURL      = "base_url"
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyUsername     = "username"
	KeyPassword     = "password"
	KeyTimeout      = "timeout"
)

// Settings holds the IRIDA connection settings
type Settings struct {
	BaseURL      string `toml:"base_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Timeout      int    `toml:"timeout"` // Request timeout in seconds
}

// Field describes one settings key and where its value may come from
type Field struct {
	Key     string
	Env     string
	Prompt  string
	Default string
	Secret  bool // Hide input when prompting
}

// Fields lists every settings key in resolution and prompt order
var Fields = []Field{
	{Key: KeyBaseURL, Env: "IRIDA_BASE_URL", Prompt: "IRIDA base URL"},
	{Key: KeyClientID, Env: "IRIDA_CLIENT_ID", Prompt: "Client ID"},
	{Key: KeyClientSecret, Env: "IRIDA_CLIENT_SECRET", Prompt: "Client secret", Secret: true},
	{Key: KeyUsername, Env: "IRIDA_USERNAME", Prompt: "Username"},
	{Key: KeyPassword, Env: "IRIDA_PASSWORD", Prompt: "Password", Secret: true},
	{Key: KeyTimeout, Env: "IRIDA_TIMEOUT", Prompt: "Timeout (seconds)", Default: strconv.Itoa(DefaultTimeoutSeconds)},
}

// Get returns the string form of a settings key
func (s *Settings) Get(key string) string {
	switch key {
	case KeyBaseURL:
		return s.BaseURL
	case KeyClientID:
		return s.ClientID
	case KeyClientSecret:
		return s.ClientSecret
	case KeyUsername:
		return s.Username
	case KeyPassword:
		return s.Password
	case KeyTimeout:
		if s.Timeout == 0 {
			return ""
		}
		return strconv.Itoa(s.Timeout)
	}
	return ""
}

// Set assigns a settings key from its string form
func (s *Settings) Set(key, value string) error {
	switch key {
	case KeyBaseURL:
		s.BaseURL = value
	case KeyClientID:
		s.ClientID = value
	case KeyClientSecret:
		s.ClientSecret = value
	case KeyUsername:
		s.Username = value
	case KeyPassword:
		s.Password = value
	case KeyTimeout:
		if value == "" {
			s.Timeout = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be a whole number of seconds (got %q)", KeyTimeout, value)
		}
		s.Timeout = n
	default:
		return fmt.Errorf("unknown settings key %q", key)
	}
	return nil
}

// RequestTimeout returns the configured timeout as a duration
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// Validate checks that every value needed to reach the server is present and sane
func (s *Settings) Validate() error {
	for _, f := range Fields {
		if s.Get(f.Key) == "" {
			return fmt.Errorf("%s.%s is required", SectionName, f.Key)
		}
	}
	if s.Timeout < 1 || s.Timeout > MaxTimeoutSeconds {
		return fmt.Errorf("%s.%s must be between 1 and %d (got %d)", SectionName, KeyTimeout, MaxTimeoutSeconds, s.Timeout)
	}
	return s.ValidateInputs()
}

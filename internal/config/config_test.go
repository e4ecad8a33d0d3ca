package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// clearEnv blanks every IRIDA_* variable so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, f := range Fields {
		t.Setenv(f.Env, "")
	}
}

func validSettings() Settings {
	return Settings{
		BaseURL:      "http://irida.example.org/irida/api",
		ClientID:     "uploader",
		ClientSecret: "secret",
		Username:     "bot",
		Password:     "hunter2",
		Timeout:      30,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{name: "valid settings", mutate: func(s *Settings) {}},
		{name: "missing base url", mutate: func(s *Settings) { s.BaseURL = "" }, wantErr: true},
		{name: "missing password", mutate: func(s *Settings) { s.Password = "" }, wantErr: true},
		{name: "zero timeout", mutate: func(s *Settings) { s.Timeout = 0 }, wantErr: true},
		{name: "huge timeout", mutate: func(s *Settings) { s.Timeout = MaxTimeoutSeconds + 1 }, wantErr: true},
		{name: "ftp scheme", mutate: func(s *Settings) { s.BaseURL = "ftp://irida.example.org" }, wantErr: true},
		{name: "no host", mutate: func(s *Settings) { s.BaseURL = "http://" }, wantErr: true},
		{name: "control char in username", mutate: func(s *Settings) { s.Username = "bot\x00" }, wantErr: true},
		{name: "overlong secret", mutate: func(s *Settings) { s.ClientSecret = strings.Repeat("x", MaxCredentialLength+1) }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Settings.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsSetTimeout(t *testing.T) {
	var s Settings
	if err := s.Set(KeyTimeout, "45"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if s.Timeout != 45 {
		t.Errorf("Timeout = %d, want 45", s.Timeout)
	}
	if err := s.Set(KeyTimeout, "soon"); err == nil {
		t.Error("Set(timeout, \"soon\") expected error, got nil")
	}
	if err := s.Set("colour", "blue"); err == nil {
		t.Error("Set() of unknown key expected error, got nil")
	}
}

func TestResolverPrecedence(t *testing.T) {
	field := Field{Key: "test_key", Env: "TEST_ENV", Prompt: "Test prompt"}
	env := map[string]string{"TEST_ENV": "env_value"}
	envSource := EnvSource{Getenv: func(k string) string { return env[k] }}
	prompt := NewPromptSource(strings.NewReader("prompt_value\n"), io.Discard)

	tests := []struct {
		name       string
		file       FileSource
		env        map[string]string
		wantValue  string
		wantSource string
	}{
		{
			name:       "file beats env",
			file:       FileSource{"test_key": "test_value"},
			env:        map[string]string{"TEST_ENV": "env_value"},
			wantValue:  "test_value",
			wantSource: "file",
		},
		{
			name:       "env beats prompt",
			file:       FileSource{},
			env:        map[string]string{"TEST_ENV": "env_value"},
			wantValue:  "env_value",
			wantSource: "env",
		},
		{
			name:       "prompt as last resort",
			file:       FileSource{},
			env:        map[string]string{},
			wantValue:  "prompt_value",
			wantSource: "prompt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env = tt.env
			r := NewResolver(tt.file, envSource, prompt)
			got, source, err := r.Resolve(field)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.wantValue || source != tt.wantSource {
				t.Errorf("Resolve() = (%q, %q), want (%q, %q)", got, source, tt.wantValue, tt.wantSource)
			}
		})
	}
}

func TestPromptSourceDefault(t *testing.T) {
	p := NewPromptSource(strings.NewReader("\n"), io.Discard)
	got, err := p.Lookup(Field{Key: KeyTimeout, Default: "10"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got != "10" {
		t.Errorf("Lookup() = %q, want default %q", got, "10")
	}
}

func TestPromptSourceEOF(t *testing.T) {
	p := NewPromptSource(strings.NewReader(""), io.Discard)
	if _, err := p.Lookup(Field{Key: KeyUsername}); err == nil {
		t.Error("Lookup() on empty input expected error, got nil")
	}
}

func TestLoadPromptsAndPersists(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.conf")
	if err := os.WriteFile(path, []byte("[Settings]\nbase_url=http://test.com\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var questions strings.Builder
	answers := "test_client_id\ntest_client_secret\ntest_username\ntest_password\n30\n"
	prompt := NewPromptSource(strings.NewReader(answers), &questions)

	s, err := Load(path, prompt, testLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.BaseURL != "http://test.com" {
		t.Errorf("BaseURL = %q, want value from file", s.BaseURL)
	}
	if s.Username != "test_username" || s.Timeout != 30 {
		t.Errorf("prompted values not applied: %+v", s)
	}
	if n := strings.Count(questions.String(), ": "); n != 5 {
		t.Errorf("expected 5 prompts, got %d", n)
	}

	// A second load must not prompt at all
	again, err := Load(path, NewPromptSource(strings.NewReader(""), io.Discard), testLogger())
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if *again != *s {
		t.Errorf("persisted settings = %+v, want %+v", again, s)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}
}

func TestLoadEnvOverPrompt(t *testing.T) {
	clearEnv(t)
	t.Setenv("IRIDA_BASE_URL", "https://env.example.org")
	t.Setenv("IRIDA_CLIENT_ID", "env-client")
	t.Setenv("IRIDA_CLIENT_SECRET", "env-secret")
	t.Setenv("IRIDA_USERNAME", "env-user")
	t.Setenv("IRIDA_PASSWORD", "env-pass")
	t.Setenv("IRIDA_TIMEOUT", "12")

	path := filepath.Join(t.TempDir(), "fresh.conf")
	s, err := Load(path, nil, testLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.BaseURL != "https://env.example.org" || s.Timeout != 12 {
		t.Errorf("env values not applied: %+v", s)
	}

	values, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if values[KeyClientID] != "env-client" {
		t.Errorf("persisted client_id = %q, want env-client", values[KeyClientID])
	}
}

func TestLoadMissingValueWithoutPrompt(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.conf")
	if _, err := Load(path, nil, testLogger()); err == nil {
		t.Error("Load() without any source expected error, got nil")
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irida.toml")
	want := validSettings()
	if err := Save(path, &want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	values, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got Settings
	for k, v := range values {
		if err := got.Set(k, v); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestSavePreservesOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.conf")
	content := "[Queue]\nbackend=sqlite\n\n[Settings]\nbase_url=http://old.example.org\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s := validSettings()
	if err := Save(path, &s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[Queue]") {
		t.Errorf("Save() dropped unrelated section:\n%s", data)
	}
	values, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if values[KeyBaseURL] != s.BaseURL {
		t.Errorf("base_url = %q, want %q", values[KeyBaseURL], s.BaseURL)
	}
}

func TestLoadAppliesTimeoutDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("IRIDA_BASE_URL", "https://env.example.org")
	t.Setenv("IRIDA_CLIENT_ID", "env-client")
	t.Setenv("IRIDA_CLIENT_SECRET", "env-secret")
	t.Setenv("IRIDA_USERNAME", "env-user")
	t.Setenv("IRIDA_PASSWORD", "env-pass")

	s, err := Load(filepath.Join(t.TempDir(), "config.conf"), nil, testLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Timeout != DefaultTimeoutSeconds {
		t.Errorf("Timeout = %d, want %d", s.Timeout, DefaultTimeoutSeconds)
	}
}

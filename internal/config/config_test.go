package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/queryfire/queryfire/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{"--search-target", "http://localhost:8080/search"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Users != 1 {
		t.Errorf("Users = %d, want 1", cfg.Users)
	}
	if cfg.Rate != 0 {
		t.Errorf("Rate = %d, want 0", cfg.Rate)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.ConversationProtocol != config.ProtocolHTTP {
		t.Errorf("ConversationProtocol = %q, want http", cfg.ConversationProtocol)
	}
	if cfg.JSONOutput {
		t.Errorf("JSONOutput = true, want false")
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing.SampleRate = %g, want 1.0", cfg.Tracing.SampleRate)
	}
}

func TestLoadNoArgsShowsHelp(t *testing.T) {
	loader := config.NewLoader()
	_, err := loader.Load([]string{})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(`
users: 10
duration: 2m
ramp_up: 30s
rate: 100
timeout: 45s
search_target: https://search.example.com/query
conversation_target: https://answers.example.com/ask
search_queries:
  - first query
  - second query
conversation_queries:
  - how do I reset my password
headers:
  Authorization: Bearer token
json_output: true
tracing:
  endpoint: otel-collector:4317
  sample_rate: 0.25
  insecure: true
`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--users", "20"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Flag overrides config file.
	if cfg.Users != 20 {
		t.Errorf("Users = %d, want 20 (flag override)", cfg.Users)
	}
	if cfg.Duration != 2*time.Minute {
		t.Errorf("Duration = %s, want 2m", cfg.Duration)
	}
	if cfg.RampUp != 30*time.Second {
		t.Errorf("RampUp = %s, want 30s", cfg.RampUp)
	}
	if len(cfg.SearchQueries) != 2 || cfg.SearchQueries[0] != "first query" {
		t.Errorf("SearchQueries = %v", cfg.SearchQueries)
	}
	if len(cfg.ConversationQueries) != 1 {
		t.Errorf("ConversationQueries = %v", cfg.ConversationQueries)
	}
	if cfg.Headers["Authorization"] != "Bearer token" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if !cfg.JSONOutput {
		t.Errorf("JSONOutput = false, want true")
	}
	if cfg.Tracing.Endpoint != "otel-collector:4317" {
		t.Errorf("Tracing.Endpoint = %q", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("Tracing.SampleRate = %g, want 0.25", cfg.Tracing.SampleRate)
	}
}

func TestLoadQueriesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.yaml")
	if err := os.WriteFile(path, []byte(`
search:
  - from file one
  - from file two
conversation:
  - from file three
`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{
		"--queries-file", path,
		"--search-query", "from flag",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.SearchQueries) != 3 {
		t.Fatalf("SearchQueries = %v, want flag query plus two from file", cfg.SearchQueries)
	}
	if cfg.SearchQueries[0] != "from flag" {
		t.Errorf("flag-supplied query should come first, got %v", cfg.SearchQueries)
	}
	if len(cfg.ConversationQueries) != 1 || cfg.ConversationQueries[0] != "from file three" {
		t.Errorf("ConversationQueries = %v", cfg.ConversationQueries)
	}
}

func TestValidate(t *testing.T) {
	base := config.Config{
		Users:         3,
		Duration:      2 * time.Second,
		SearchQueries: []string{"q1"},
		SearchTarget:  "http://localhost/search",
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"zero users valid", func(c *config.Config) { c.Users = 0 }, ""},
		{"negative users", func(c *config.Config) { c.Users = -1 }, "users must be >= 0"},
		{"zero duration", func(c *config.Config) { c.Duration = 0 }, "duration must be > 0"},
		{"negative duration", func(c *config.Config) { c.Duration = -time.Second }, "duration must be > 0"},
		{"negative ramp", func(c *config.Config) { c.RampUp = -time.Second }, "ramp-up must be >= 0"},
		{"ramp exceeds duration", func(c *config.Config) { c.RampUp = 5 * time.Second }, "ramp-up must not exceed duration"},
		{"missing search target", func(c *config.Config) { c.SearchTarget = "" }, "search-target is required"},
		{
			"missing conversation target",
			func(c *config.Config) { c.ConversationQueries = []string{"q"} },
			"conversation-target is required",
		},
		{
			"bad conversation protocol",
			func(c *config.Config) { c.ConversationProtocol = "carrier-pigeon" },
			"not supported",
		},
		{
			"dashboard with json output",
			func(c *config.Config) { c.Dashboard = true; c.JSONOutput = true },
			"mutually exclusive",
		},
		{
			"bad sample rate",
			func(c *config.Config) { c.Tracing.SampleRate = 1.5 },
			"sample_rate",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidationErrorIssues(t *testing.T) {
	cfg := config.Config{Users: -1, Duration: 0}
	err := cfg.Validate()

	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Issues()) < 2 {
		t.Fatalf("expected multiple issues, got %v", verr.Issues())
	}
}

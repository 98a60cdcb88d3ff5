package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Protocol selects the transport used for the conversation backend.
type Protocol string

const (
	ProtocolHTTP      Protocol = "http"
	ProtocolWebSocket Protocol = "websocket"
)

// Config is the run configuration accepted by the orchestrator and the CLI.
type Config struct {
	Users                int               `mapstructure:"users"`
	Duration             time.Duration     `mapstructure:"duration"`
	RampUp               time.Duration     `mapstructure:"ramp_up"`
	SearchQueries        []string          `mapstructure:"search_queries"`
	ConversationQueries  []string          `mapstructure:"conversation_queries"`
	QueriesFile          string            `mapstructure:"queries_file"`
	SearchTarget         string            `mapstructure:"search_target"`
	ConversationTarget   string            `mapstructure:"conversation_target"`
	ConversationProtocol Protocol          `mapstructure:"conversation_protocol"`
	Headers              map[string]string `mapstructure:"headers"`
	Timeout              time.Duration     `mapstructure:"timeout"`
	Rate                 int               `mapstructure:"rate"`
	JSONOutput           bool              `mapstructure:"json_output"`
	Dashboard            bool              `mapstructure:"dashboard"`
	LogErrors            bool              `mapstructure:"log_errors"`
	HTMLOutput           string            `mapstructure:"html_output"`
	Thresholds           []string          `mapstructure:"thresholds"`
	Tracing              TracingConfig     `mapstructure:"tracing"`
	ConfigFile           string            `mapstructure:"-"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether any tracing surface is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || t.Propagate
}

// ShouldPropagate reports whether W3C trace headers should be injected into
// backend requests. Propagation is implied whenever an exporter endpoint is
// configured, and can be requested on its own for backends that forward
// trace context to their own collectors.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate || strings.TrimSpace(t.Endpoint) != ""
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if c.Users < 0 {
		issues = append(issues, "users must be >= 0")
	}
	if c.Duration <= 0 {
		issues = append(issues, "duration must be > 0")
	}
	if c.RampUp < 0 {
		issues = append(issues, "ramp-up must be >= 0")
	}
	if c.RampUp > c.Duration && c.Duration > 0 {
		issues = append(issues, "ramp-up must not exceed duration")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}

	if len(c.SearchQueries) > 0 && strings.TrimSpace(c.SearchTarget) == "" {
		issues = append(issues, "search-target is required when search queries are configured")
	}
	if len(c.ConversationQueries) > 0 && strings.TrimSpace(c.ConversationTarget) == "" {
		issues = append(issues, "conversation-target is required when conversation queries are configured")
	}

	switch c.ConversationProtocol {
	case "", ProtocolHTTP, ProtocolWebSocket:
	default:
		issues = append(issues, fmt.Sprintf("conversation-protocol %q is not supported (use http or websocket)", c.ConversationProtocol))
	}

	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}

	if c.Users > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High user count configured (%d simulated users). Ensure you have authorization to test the target system.", c.Users))
	}
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High rate limit configured (%d RPS). Ensure you have authorization to test the target system.", c.Rate))
	}

	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

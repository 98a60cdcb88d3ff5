package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "queryfire",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Load shape flags
	flags.IntP("users", "u", 1, "Number of simulated concurrent users")
	flags.DurationP("duration", "d", 0, "How long to run the test (e.g. 30s, 1m)")
	flags.Duration("ramp-up", 0, "Window over which the user population grows linearly to its maximum")
	flags.IntP("rate", "r", 0, "Operations per second cap across all users (0 means unlimited)")
	flags.Duration("timeout", 30*time.Second, "Per-operation timeout")

	// Workload flags
	flags.StringSlice("search-query", nil, "Search query to cycle through (repeatable)")
	flags.StringSlice("conversation-query", nil, "Conversational query to cycle through (repeatable)")
	flags.String("queries-file", "", "Path to YAML file with search and conversation query lists")

	// Backend flags
	flags.String("search-target", "", "Search backend endpoint URL")
	flags.String("conversation-target", "", "Conversation backend endpoint URL")
	flags.String("conversation-protocol", string(ProtocolHTTP), "Conversation transport: 'http' or 'websocket'")
	flags.StringSlice("header", nil, "Additional backend request header in key=value form")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.Bool("log-errors", false, "Log each failed operation to stderr")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'search_duration:p99 < 500')")

	// Tracing flags
	flags.String("otlp-endpoint", "", "OTLP collector endpoint for trace export")
	flags.String("otlp-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
	flags.Bool("otlp-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.Bool("trace-propagate", false, "Inject W3C trace context headers into backend requests")
	flags.String("service-name", "", "Service name reported on exported spans")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("users") {
		val, err := fs.GetInt("users")
		if err != nil {
			return err
		}
		cfg.Users = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("ramp-up") {
		val, err := fs.GetDuration("ramp-up")
		if err != nil {
			return err
		}
		cfg.RampUp = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("search-query") {
		val, err := fs.GetStringSlice("search-query")
		if err != nil {
			return err
		}
		cfg.SearchQueries = val
	}
	if fs.Changed("conversation-query") {
		val, err := fs.GetStringSlice("conversation-query")
		if err != nil {
			return err
		}
		cfg.ConversationQueries = val
	}
	if fs.Changed("queries-file") {
		val, err := fs.GetString("queries-file")
		if err != nil {
			return err
		}
		cfg.QueriesFile = strings.TrimSpace(val)
	}
	if fs.Changed("search-target") {
		val, err := fs.GetString("search-target")
		if err != nil {
			return err
		}
		cfg.SearchTarget = strings.TrimSpace(val)
	}
	if fs.Changed("conversation-target") {
		val, err := fs.GetString("conversation-target")
		if err != nil {
			return err
		}
		cfg.ConversationTarget = strings.TrimSpace(val)
	}
	if fs.Changed("conversation-protocol") {
		val, err := fs.GetString("conversation-protocol")
		if err != nil {
			return err
		}
		cfg.ConversationProtocol = Protocol(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("header") {
		vals, err := fs.GetStringSlice("header")
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, raw := range vals {
			key, value, found := strings.Cut(raw, "=")
			if !found || strings.TrimSpace(key) == "" {
				return fmt.Errorf("invalid header %q: expected key=value", raw)
			}
			cfg.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("otlp-endpoint") {
		val, err := fs.GetString("otlp-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("otlp-protocol") {
		val, err := fs.GetString("otlp-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("otlp-insecure") {
		val, err := fs.GetBool("otlp-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-propagate") {
		val, err := fs.GetBool("trace-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}
	if fs.Changed("service-name") {
		val, err := fs.GetString("service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	return nil
}

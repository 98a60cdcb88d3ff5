package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Users:                1,
		Timeout:              30 * time.Second,
		ConfigFile:           configPath,
		ConversationProtocol: ProtocolHTTP,
		Headers:              map[string]string{},
		Tracing:              TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.SearchTarget = strings.TrimSpace(cfg.SearchTarget)
	cfg.ConversationTarget = strings.TrimSpace(cfg.ConversationTarget)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	if err := loadQueriesFile(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "users"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		cfg.Users = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "rampup", "ramp_up", "ramp-up"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("rampUp: %w", err)
		}
		cfg.RampUp = dur
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "searchqueries", "search_queries", "search-queries"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("searchQueries: %w", err)
		}
		cfg.SearchQueries = vals
	}

	if raw, ok := lookupSetting(settings, "conversationqueries", "conversation_queries", "conversation-queries"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("conversationQueries: %w", err)
		}
		cfg.ConversationQueries = vals
	}

	if raw, ok := lookupSetting(settings, "queriesfile", "queries_file", "queries-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("queriesFile: %w", err)
		}
		cfg.QueriesFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "searchtarget", "search_target", "search-target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("searchTarget: %w", err)
		}
		cfg.SearchTarget = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "conversationtarget", "conversation_target", "conversation-target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("conversationTarget: %w", err)
		}
		cfg.ConversationTarget = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "conversationprotocol", "conversation_protocol", "conversation-protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("conversationProtocol: %w", err)
		}
		if val != "" {
			cfg.ConversationProtocol = Protocol(strings.ToLower(strings.TrimSpace(val)))
		}
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[k] = v
		}
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = vals
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyTracingSettings(cfg *TracingConfig, raw interface{}) error {
	settings, err := toStringKeyMap(raw)
	if err != nil {
		return err
	}

	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		cfg.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		if val != "" {
			cfg.Protocol = strings.ToLower(strings.TrimSpace(val))
		}
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("serviceName: %w", err)
		}
		cfg.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sampleRate: %w", err)
		}
		cfg.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		cfg.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		cfg.Propagate = val
	}
	return nil
}

// queriesFile is the on-disk YAML shape for query sets.
type queriesFile struct {
	Search       []string `yaml:"search"`
	Conversation []string `yaml:"conversation"`
}

// loadQueriesFile appends query sets from the configured YAML file to the
// lists already supplied via flags or the config file.
func loadQueriesFile(cfg *Config) error {
	if cfg.QueriesFile == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.QueriesFile)
	if err != nil {
		return fmt.Errorf("queries file: %w", err)
	}

	var qf queriesFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return fmt.Errorf("queries file %s: %w", cfg.QueriesFile, err)
	}

	cfg.SearchQueries = append(cfg.SearchQueries, qf.Search...)
	cfg.ConversationQueries = append(cfg.ConversationQueries, qf.Conversation...)
	return nil
}

package config

import (
	"testing"
	"time"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{5, 5 * time.Second},
		{2.5, 2500 * time.Millisecond},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %s, want %s", tt.input, got, tt.want)
		}
	}

	if _, err := asDuration("not a duration"); err == nil {
		t.Errorf("asDuration with malformed string should error")
	}
}

func TestAsStringSlice(t *testing.T) {
	got, err := asStringSlice([]interface{}{"a", "b"})
	if err != nil {
		t.Fatalf("asStringSlice error = %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("asStringSlice = %v", got)
	}

	single, err := asStringSlice("solo")
	if err != nil || len(single) != 1 || single[0] != "solo" {
		t.Errorf("asStringSlice(string) = %v, err %v", single, err)
	}
}

func TestToStringKeyMap(t *testing.T) {
	got, err := toStringKeyMap(map[interface{}]interface{}{"Endpoint": "host:4317", "INSECURE": true})
	if err != nil {
		t.Fatalf("toStringKeyMap error = %v", err)
	}
	if got["endpoint"] != "host:4317" {
		t.Errorf("keys should be lowercased: %v", got)
	}
	if _, ok := got["insecure"]; !ok {
		t.Errorf("missing insecure key: %v", got)
	}

	if _, err := toStringKeyMap("not a map"); err == nil {
		t.Errorf("toStringKeyMap with non-map should error")
	}
}

func TestApplyFlagOverridesHeaderParsing(t *testing.T) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse([]string{"--header", "X-Api-Key=secret", "--header", "Accept=application/json"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg := &Config{Headers: map[string]string{}}
	if err := applyFlagOverrides(cfg, cmd.Flags()); err != nil {
		t.Fatalf("applyFlagOverrides error = %v", err)
	}
	if cfg.Headers["X-Api-Key"] != "secret" || cfg.Headers["Accept"] != "application/json" {
		t.Errorf("Headers = %v", cfg.Headers)
	}

	bad := newFlagCommand()
	if err := bad.Flags().Parse([]string{"--header", "missing-equals"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := applyFlagOverrides(&Config{}, bad.Flags()); err == nil {
		t.Errorf("expected error for malformed header")
	}
}

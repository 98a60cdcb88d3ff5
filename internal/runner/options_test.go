package runner

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestOptionsNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    Options
		validate func(*testing.T, Options)
	}{
		{
			name:  "defaults",
			input: Options{},
			validate: func(t *testing.T, o Options) {
				if o.Clock == nil {
					t.Error("Clock should not be nil")
				}
				if o.LimiterFactory == nil {
					t.Error("LimiterFactory should not be nil")
				}
			},
		},
		{
			name: "negative values corrected",
			input: Options{
				Users:    -5,
				Duration: -time.Second,
				RampUp:   -time.Second,
				Rate:     -1,
			},
			validate: func(t *testing.T, o Options) {
				if o.Users != 0 {
					t.Errorf("Users = %d, want 0", o.Users)
				}
				if o.Duration != 0 {
					t.Errorf("Duration = %s, want 0", o.Duration)
				}
				if o.RampUp != 0 {
					t.Errorf("RampUp = %s, want 0", o.RampUp)
				}
				if o.Rate != 0 {
					t.Errorf("Rate = %d, want 0", o.Rate)
				}
			},
		},
		{
			name: "ramp clamped to duration",
			input: Options{
				Users:    2,
				Duration: time.Second,
				RampUp:   5 * time.Second,
			},
			validate: func(t *testing.T, o Options) {
				if o.RampUp != time.Second {
					t.Errorf("RampUp = %s, want clamped to 1s", o.RampUp)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := tt.input
			opt.normalize()
			tt.validate(t, opt)
		})
	}
}

func TestDefaultLimiterFactory(t *testing.T) {
	opt := Options{}
	opt.normalize()

	unlimited := opt.LimiterFactory(0)
	if unlimited.Limit() != rate.Inf {
		t.Errorf("rps=0 should yield an unlimited limiter, got %v", unlimited.Limit())
	}

	capped := opt.LimiterFactory(50)
	if capped.Limit() != rate.Limit(50) {
		t.Errorf("limit = %v, want 50", capped.Limit())
	}
	if capped.Burst() != 50 {
		t.Errorf("burst = %d, want 50", capped.Burst())
	}
}

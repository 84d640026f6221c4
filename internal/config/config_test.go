package config

import (
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Driver != DriverNative {
		t.Errorf("Driver = %q, want %q", cfg.Driver, DriverNative)
	}
	if cfg.Rows != 32 || cfg.Cols != 32 {
		t.Errorf("Rows/Cols = %d/%d, want 32/32", cfg.Rows, cfg.Cols)
	}
	if cfg.MaxBrightness != 100 {
		t.Errorf("MaxBrightness = %d, want 100", cfg.MaxBrightness)
	}
}

func TestParseEnvOverride(t *testing.T) {
	t.Setenv("LED_ROWS", "64")
	t.Setenv("LED_MAX_BRIGHTNESS", "50")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Rows != 64 {
		t.Errorf("Rows = %d, want 64 from LED_ROWS", cfg.Rows)
	}
	if cfg.MaxBrightness != 50 {
		t.Errorf("MaxBrightness = %d, want 50 from LED_MAX_BRIGHTNESS", cfg.MaxBrightness)
	}
}

func TestParseFlagWinsOverEnv(t *testing.T) {
	t.Setenv("LED_ROWS", "64")

	cfg, err := Parse([]string{"-rows", "16"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Rows != 16 {
		t.Errorf("Rows = %d, want 16 (explicit flag should win over LED_ROWS)", cfg.Rows)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad driver", []string{"-driver", "bogus"}},
		{"zero rows", []string{"-rows", "0"}},
		{"pwm-bits too high", []string{"-pwm-bits", "12"}},
		{"dither-bits too high", []string{"-dither-bits", "3"}},
		{"brightness out of range", []string{"-max-brightness", "150"}},
		{"bad port", []string{"-port", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.args); err == nil {
				t.Errorf("Parse(%v) error = nil, want error", tt.args)
			}
		})
	}
}

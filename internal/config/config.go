// Package config parses the CLI flags and LED_-prefixed environment
// variables that configure the panel driver, the display engine, and the
// HTTP server, in the style of cmd/hub75-gpio/main.go's flag.String /
// flag.Int / flag.Bool calls in the teacher repo.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// DriverKind selects the Panel Driver (C1) variant.
type DriverKind string

const (
	DriverNative  DriverKind = "native"
	DriverBinding DriverKind = "binding"
)

// Config is the fully parsed, validated startup configuration.
type Config struct {
	// Panel geometry and timing, per spec.md §4.1/§6.
	Rows              int
	Cols              int
	ChainLength       int
	Parallel          int
	Driver            DriverKind
	HardwareMapping   string
	GPIOSlowdown      int
	PWMBits           int
	PWMLSBNanoseconds int
	DitherBits        int
	RowSetter         string
	LEDSequence       string
	Multiplexing      int
	PixelMapperChain  string
	RefreshRateCap    int
	MaxBrightness     int
	Interlaced        bool
	InverseColors     bool

	// HTTP server.
	BindAddr string
	Port     int

	// State persistence.
	StateFile string

	// Idle placeholder text shown when the playlist is empty; empty means
	// solid black, matching spec.md's default idle behavior.
	IdleText string
}

// stringFlag, intFlag and boolFlag describe one setting's flag name, env var and default,
// so env lookup and flag registration stay in lockstep.
type stringFlag struct {
	name, env, def, usage string
	target                *string
}

type intFlag struct {
	name, env string
	def       int
	usage     string
	target    *int
}

type boolFlag struct {
	name, env string
	def       bool
	usage     string
	target    *bool
}

// Parse reads args (the command line without the program name) and the
// process environment into a Config. Env vars
// are consulted only to override a flag's default before flag.Parse runs,
// so an explicit CLI flag always wins over LED_* even if both are set.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("led-matrix-controller", flag.ContinueOnError)

	var driver, hwMapping, rowSetter, ledSeq, pixelMapper, bindAddr, stateFile, idleText string

	strs := []stringFlag{
		{"hardware-mapping", "LED_HARDWARE_MAPPING", "adafruit-hat", "GPIO mapping name for the panel wiring", &hwMapping},
		{"driver", "LED_DRIVER", string(DriverNative), "panel driver: native or binding", &driver},
		{"row-setter", "LED_ROW_SETTER", "direct", "row address setter scheme", &rowSetter},
		{"led-sequence", "LED_LED_SEQUENCE", "RGB", "LED color channel sequence", &ledSeq},
		{"pixel-mapper", "LED_PIXEL_MAPPER", "", "pixel mapper chain, e.g. U-mapper", &pixelMapper},
		{"bind-addr", "LED_BIND_ADDR", "0.0.0.0", "HTTP bind address", &bindAddr},
		{"state-file", "LED_STATE_FILE", "/var/lib/led-matrix-controller/state.json", "path to the persisted playlist/brightness state", &stateFile},
		{"idle-text", "LED_IDLE_TEXT", "", "placeholder text shown when the playlist is empty (default: solid black)", &idleText},
	}

	ints := []intFlag{
		{"rows", "LED_ROWS", 32, "panel rows", &cfg.Rows},
		{"cols", "LED_COLS", 32, "panel columns", &cfg.Cols},
		{"chain-length", "LED_CHAIN_LENGTH", 1, "number of daisy-chained panels", &cfg.ChainLength},
		{"parallel", "LED_PARALLEL", 1, "number of parallel chains", &cfg.Parallel},
		{"gpio-slowdown", "LED_GPIO_SLOWDOWN", 1, "GPIO write slowdown factor", &cfg.GPIOSlowdown},
		{"pwm-bits", "LED_PWM_BITS", 11, "binary code modulation bit depth (1-11)", &cfg.PWMBits},
		{"pwm-lsb-nanoseconds", "LED_PWM_LSB_NANOSECONDS", 130, "OE pulse width for the least significant BCM plane", &cfg.PWMLSBNanoseconds},
		{"dither-bits", "LED_DITHER_BITS", 0, "temporal dithering bit depth (0-2)", &cfg.DitherBits},
		{"multiplexing", "LED_MULTIPLEXING", 0, "row multiplexing scheme id", &cfg.Multiplexing},
		{"refresh-rate-cap", "LED_REFRESH_RATE_CAP", 0, "cap refresh rate in Hz, 0 = no cap", &cfg.RefreshRateCap},
		{"max-brightness", "LED_MAX_BRIGHTNESS", 100, "process-wide brightness cap (0-100)", &cfg.MaxBrightness},
		{"port", "LED_PORT", 8080, "HTTP port", &cfg.Port},
	}

	bools := []boolFlag{
		{"interlaced", "LED_INTERLACED", false, "interlaced row scan", &cfg.Interlaced},
		{"inverse-colors", "LED_INVERSE_COLORS", false, "invert RGB output, for common-anode panels", &cfg.InverseColors},
	}

	for _, s := range strs {
		def := s.def
		if v, ok := os.LookupEnv(s.env); ok {
			def = v
		}
		fs.StringVar(s.target, s.name, def, s.usage)
	}
	for _, i := range ints {
		def := i.def
		if v, ok := os.LookupEnv(i.env); ok {
			if n, err := strconv.Atoi(v); err == nil {
				def = n
			}
		}
		fs.IntVar(i.target, i.name, def, i.usage)
	}
	for _, b := range bools {
		def := b.def
		if v, ok := os.LookupEnv(b.env); ok {
			if p, err := strconv.ParseBool(v); err == nil {
				def = p
			}
		}
		fs.BoolVar(b.target, b.name, def, b.usage)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Driver = DriverKind(driver)
	cfg.HardwareMapping = hwMapping
	cfg.RowSetter = rowSetter
	cfg.LEDSequence = ledSeq
	cfg.PixelMapperChain = pixelMapper
	cfg.BindAddr = bindAddr
	cfg.StateFile = stateFile
	cfg.IdleText = idleText

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Driver != DriverNative && c.Driver != DriverBinding {
		return fmt.Errorf("driver must be %q or %q, got %q", DriverNative, DriverBinding, c.Driver)
	}
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("rows and cols must be positive")
	}
	if c.ChainLength <= 0 || c.Parallel <= 0 {
		return fmt.Errorf("chain-length and parallel must be positive")
	}
	if c.PWMBits < 1 || c.PWMBits > 11 {
		return fmt.Errorf("pwm-bits must be between 1 and 11, got %d", c.PWMBits)
	}
	if c.DitherBits < 0 || c.DitherBits > 2 {
		return fmt.Errorf("dither-bits must be between 0 and 2, got %d", c.DitherBits)
	}
	if c.MaxBrightness < 0 || c.MaxBrightness > 100 {
		return fmt.Errorf("max-brightness must be between 0 and 100, got %d", c.MaxBrightness)
	}
	if c.GPIOSlowdown < 0 {
		return fmt.Errorf("gpio-slowdown must be >= 0")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.StateFile == "" {
		return fmt.Errorf("state-file must not be empty")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvPathEnvVar        = "DESK_BRIDGE_ENV"
	DefaultReleaseHotkey = "ctrl+shift+f12"

	defaultClickSettleMs      = 500
	defaultDoubleClickGapMs   = 30
	defaultDragStepMs         = 30
	defaultCaptureDeadlineSec = 20

	PortStartEnvVar  = "SINGLEINSTANCE_PORT_START"
	PortEndEnvVar    = "SINGLEINSTANCE_PORT_END"
	DefaultPortStart = 49600
	DefaultPortEnd   = 49650
)

type LoadOptions struct {
	EnvPathOverride       string
	ReleaseHotkeyOverride string
	FileLoggingOverride   *bool
}

type Config struct {
	EnvPath           string
	EnableFileLogging bool
	ReleaseHotkey     string
	ShowTray          bool

	ClickSettle    time.Duration
	DoubleClickGap time.Duration
	DragStep       time.Duration

	CaptureDeadline time.Duration
	CaptureWorkers  int

	// Loopback ports scanned for a resident, inclusive. The resident binds PortStart.
	PortStart int
	PortEnd   int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) explicit override path
	// 2) .env in the executable directory
	// 3) the file named by DESK_BRIDGE_ENV
	envPath := resolveEnvPath(opts)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{
		EnvPath:           envPath,
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		ReleaseHotkey:     getEnvWithDefault("RELEASE_HOTKEY", DefaultReleaseHotkey),
		ShowTray:          strings.ToLower(getEnvWithDefault("SHOW_TRAY", "true")) != "false",
		ClickSettle:       millis("CLICK_SETTLE_MS", defaultClickSettleMs),
		DoubleClickGap:    millis("DOUBLE_CLICK_GAP_MS", defaultDoubleClickGapMs),
		DragStep:          millis("DRAG_STEP_MS", defaultDragStepMs),
		CaptureDeadline:   time.Duration(positiveInt("CAPTURE_DEADLINE_SEC", defaultCaptureDeadlineSec)) * time.Second,
		CaptureWorkers:    positiveInt("CAPTURE_WORKERS", 0),
	}
	cfg.PortStart, cfg.PortEnd = PortRange()

	if override := strings.TrimSpace(opts.ReleaseHotkeyOverride); override != "" {
		cfg.ReleaseHotkey = override
	}
	if opts.FileLoggingOverride != nil {
		cfg.EnableFileLogging = *opts.FileLoggingOverride
	}

	return cfg, nil
}

func resolveEnvPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EnvPathOverride); override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
		return ""
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// positiveInt returns the env value when it parses as a non-negative integer.
func positiveInt(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}

func millis(key string, defaultValue int) time.Duration {
	return time.Duration(positiveInt(key, defaultValue)) * time.Millisecond
}

// PortRange reads the resident port range from the environment. Unset or
// malformed bounds fall back to the defaults; the range is clamped to
// [1024, 65535] and swapped if reversed.
func PortRange() (int, int) {
	start := intEnv(PortStartEnvVar, DefaultPortStart)
	end := intEnv(PortEndEnvVar, DefaultPortEnd)
	start = max(start, 1024)
	end = min(end, 65535)
	if end < start {
		start, end = end, start
	}
	return start, end
}

func intEnv(key string, defaultValue int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return n
	}
	return defaultValue
}

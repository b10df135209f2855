package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "DYNSTRUCT_LOG_LEVEL"
	EnvLogTimestamp = "DYNSTRUCT_LOG_TIMESTAMP"
	EnvLogNoColor   = "DYNSTRUCT_LOG_NOCOLOR"
	EnvLogBypass    = "DYNSTRUCT_LOG_BYPASS"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config selects how the process logger renders.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	// Bypass skips console formatting and writes raw JSON lines.
	Bypass bool
}

var (
	configureOnce sync.Once
	mu            sync.RWMutex
	logger        = zerolog.Nop()
)

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure installs the process logger. Only the first call has an effect.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		applyEnvOverrides(&cfg)
		l := build(cfg, os.Stderr)
		mu.Lock()
		logger = l
		mu.Unlock()
	})
}

// Logger returns the process logger, configuring the runtime profile if no
// profile was chosen yet.
func Logger() zerolog.Logger {
	Configure(ProfileRuntime)
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Timestamp: false}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

// boolOverrides maps each boolean env variable to the Config flag it sets.
func boolOverrides(cfg *Config) map[string]*bool {
	return map[string]*bool{
		EnvLogTimestamp: &cfg.Timestamp,
		EnvLogNoColor:   &cfg.NoColor,
		EnvLogBypass:    &cfg.Bypass,
	}
}

// applyEnvOverrides ignores unset and unparsable values.
func applyEnvOverrides(cfg *Config) {
	if lvl, ok := levelFromEnv(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	for env, dst := range boolOverrides(cfg) {
		if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(env))); err == nil {
			*dst = v
		}
	}
}

func build(cfg Config, f *os.File) zerolog.Logger {
	var out io.Writer = f
	if !cfg.Bypass {
		noColor := cfg.NoColor || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
		cw := zerolog.ConsoleWriter{
			Out:        colorable.NewColorable(f),
			NoColor:    noColor,
			TimeFormat: time.RFC3339,
		}
		if !cfg.Timestamp {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		out = cw
	}
	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

var levelAliases = map[string]zerolog.Level{
	"warning": zerolog.WarnLevel,
	"off":     zerolog.Disabled,
	"none":    zerolog.Disabled,
}

func levelFromEnv(raw string) (zerolog.Level, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return zerolog.NoLevel, false
	}
	if lvl, ok := levelAliases[raw]; ok {
		return lvl, true
	}
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.NoLevel, false
	}
	return lvl, true
}

// debugEnabled reports whether l writes debug events under the global level.
func debugEnabled(l zerolog.Logger) bool {
	return l.GetLevel() <= zerolog.DebugLevel && zerolog.GlobalLevel() <= zerolog.DebugLevel
}

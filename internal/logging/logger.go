package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// historySize is how many lines GET /api/logs can return.
const historySize = 1000

// module is one named logger. Its level and outputs change in place so
// package-level loggers taken at init time follow Initialize and
// SetModuleLevel.
type module struct {
	logger *slog.Logger
	level  *slog.LevelVar
	out    *switchHandler
}

var (
	mutex         sync.RWMutex
	modules       = make(map[string]*module)
	globalConfig  Config
	globalLevel   = &slog.LevelVar{}
	isInitialized bool
	logBuffer     *RingBuffer
	logCallback   LogCallback
	output        io.Writer = os.Stdout
)

// Config selects the global level, output format and per-module overrides.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
	// Output replaces stdout, for commands whose stdout carries data.
	Output io.Writer `toml:"-"`
}

// Initialize applies config to every logger, existing or future.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true
	output = os.Stdout
	if config.Output != nil {
		output = config.Output
	}
	logBuffer = NewRingBuffer(historySize)

	globalLevel.Set(levelFor(""))
	for name, m := range modules {
		m.level.Set(levelFor(name))
		m.out.swap(createHandler(config.Format, m.level))
	}
	slog.SetDefault(slog.New(createHandler(config.Format, globalLevel)))
}

// levelFor resolves a module's level from the current config: the module
// override, else the global level, else info. Callers hold mutex.
func levelFor(name string) slog.Level {
	if !isInitialized {
		return slog.LevelInfo
	}
	if l := parseLevel(globalConfig.Modules[name]); l != nil {
		return *l
	}
	if l := parseLevel(globalConfig.Level); l != nil {
		return *l
	}
	return slog.LevelInfo
}

// GetBuffer returns the log history, nil before Initialize.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback registers fn to receive each buffered entry.
func SetLogCallback(fn LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = fn
}

// GetLogger returns the logger for name, creating it on first use. Every
// record it writes carries module=name.
func GetLogger(name string) *slog.Logger {
	mutex.RLock()
	m, ok := modules[name]
	mutex.RUnlock()
	if ok {
		return m.logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if m, ok := modules[name]; ok {
		return m.logger
	}

	level := &slog.LevelVar{}
	level.Set(levelFor(name))
	format := "text"
	if isInitialized {
		format = globalConfig.Format
	}
	out := newSwitchHandler(createHandler(format, level))
	m = &module{
		logger: slog.New(out).With("module", name),
		level:  level,
		out:    out,
	}
	modules[name] = m
	return m.logger
}

// SetModuleLevel changes the level of one module at runtime and returns the
// level it replaced. Unknown level names are ignored. The orchestrator uses
// it to trace experimental devices at debug.
func SetModuleLevel(name, level string) string {
	GetLogger(name)

	mutex.Lock()
	defer mutex.Unlock()
	lv := modules[name].level
	previous := strings.ToLower(lv.Level().String())
	if parsed := parseLevel(level); parsed != nil {
		lv.Set(*parsed)
	}
	return previous
}

func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}

// Package logging provides simple leveled logging for asyncfile.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Logger wraps stdlib log with level support and structured key=value context.
type Logger struct {
	logger  *log.Logger
	level   LogLevel
	format  string // "text" or "json"
	noColor bool
	mu      *sync.Mutex
	ctx     []any // accumulated key/value pairs from WithRequest/WithError
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logging configuration.
type Config struct {
	Level   LogLevel
	Format  string // "text" (default) or "json"
	Output  io.Writer
	NoColor bool
	Sync    bool // present for API parity; text/json writes are already unbuffered
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		logger:  log.New(output, "", log.LstdFlags),
		level:   config.Level,
		format:  format,
		noColor: config.NoColor,
		mu:      &sync.Mutex{},
	}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// withField returns a child logger carrying an extra key/value pair. The
// child shares the parent's writer and mutex but gets its own copy of the
// context slice, so siblings don't see each other's fields.
func (l *Logger) withField(key string, value any) *Logger {
	ctx := make([]any, len(l.ctx), len(l.ctx)+2)
	copy(ctx, l.ctx)
	ctx = append(ctx, key, value)
	return &Logger{
		logger:  l.logger,
		level:   l.level,
		format:  l.format,
		noColor: l.noColor,
		mu:      l.mu,
		ctx:     ctx,
	}
}

// WithRequest returns a child logger tagged with a request's path and direction.
func (l *Logger) WithRequest(path string, direction string) *Logger {
	return l.withField("path", path).withField("direction", direction)
}

// WithError returns a child logger tagged with an error value.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.withField("error", err.Error())
}

func formatArgsText(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var result string
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if result != "" {
				result += " "
			}
			result += fmt.Sprintf("%v=%v", args[i], args[i+1])
		}
	}
	if result != "" {
		return " " + result
	}
	return ""
}

func (l *Logger) log(level LogLevel, prefix, msg string, args ...any) {
	if level < l.level {
		return
	}

	all := make([]any, 0, len(l.ctx)+len(args))
	all = append(all, l.ctx...)
	all = append(all, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		fields := map[string]any{
			"time":  time.Now().Format(time.RFC3339Nano),
			"level": prefix,
			"msg":   msg,
		}
		for i := 0; i+1 < len(all); i += 2 {
			if key, ok := all[i].(string); ok {
				fields[key] = all[i+1]
			}
		}
		line, err := json.Marshal(fields)
		if err != nil {
			l.logger.Printf("%s %s%s", prefix, msg, formatArgsText(all))
			return
		}
		l.logger.Writer().Write(append(line, '\n'))
		return
	}

	l.logger.Printf("%s %s%s", prefix, msg, formatArgsText(all))
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, "[DEBUG]", msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, "[INFO]", msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, "[WARN]", msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, "[ERROR]", msg, args...) }

// Debugf is printf-style logging at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", fmt.Sprintf(format, args...))
}

// Infof is printf-style logging at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, "[INFO]", fmt.Sprintf(format, args...))
}

// Warnf is printf-style logging at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, "[WARN]", fmt.Sprintf(format, args...))
}

// Errorf is printf-style logging at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, "[ERROR]", fmt.Sprintf(format, args...))
}

// Printf is an alias for Infof, kept for code that expects a
// *log.Logger-shaped Printf method.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// Global convenience functions operating on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Package logging provides the process-wide structured logger: slog-based,
// JSON or text output, with sensitive-data redaction applied to every
// message and attribute before it reaches the handler. The provider API
// key and the target site's credentials flow through the same wiring code
// that produces these log lines, so redaction is unconditional rather than
// opt-in.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Config configures the logger.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	// Empty or unrecognized values default to "info".
	Level string

	// Format is "json" or "text". Defaults to "json".
	Format string

	// Output defaults to os.Stderr so log lines never interleave with a
	// subcommand's stdout output.
	Output io.Writer

	// RedactPatterns are extra regex patterns applied on top of
	// DefaultRedactPatterns.
	RedactPatterns []string
}

// DefaultRedactPatterns match the secret shapes this process handles: the
// LLM provider API key (Authorization bearer header), site login
// passwords, and generic key/token material.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["']?([a-zA-Z0-9_\-]{16,})["']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-\.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["']?([^\s"']{8,})["']?`,
	`sk-[a-zA-Z0-9_\-]{20,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
	`(?i)(secret|key|token)[\s:=]+["']?([a-fA-F0-9]{32,})["']?`,
}

// sensitiveKeys are attribute names whose values are always replaced
// wholesale, regardless of shape.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"credentials":   true,
	"authorization": true,
}

const redactedPlaceholder = "[REDACTED]"

// Logger is a redacting structured logger.
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// New builds a Logger from cfg, falling back to info-level JSON on stderr
// for any unset field.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	redacts := make([]*regexp.Regexp, 0, len(DefaultRedactPatterns)+len(cfg.RedactPatterns))
	for _, pattern := range append(append([]string{}, DefaultRedactPatterns...), cfg.RedactPatterns...) {
		if re, err := regexp.Compile(pattern); err == nil {
			redacts = append(redacts, re)
		}
	}

	return &Logger{logger: slog.New(handler), redacts: redacts}
}

// WithRun returns a Logger that stamps every record with the run id, so a
// run's log lines correlate with its EventLog records.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{logger: l.logger.With("run_id", runID), redacts: l.redacts}
}

// Debug logs at debug level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level with optional key-value pairs. Errors passed
// as values are redacted like any other string.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	redacted := make([]any, len(args))
	for i := 0; i < len(args); i++ {
		// Odd positions are attribute values; even positions are keys. A
		// value under a sensitive key is replaced outright.
		if i%2 == 1 {
			if key, ok := args[i-1].(string); ok && sensitiveKeys[normalizeKey(key)] {
				redacted[i] = redactedPlaceholder
				continue
			}
		}
		redacted[i] = l.redactValue(args[i])
	}
	l.logger.Log(context.Background(), level, l.redactString(msg), redacted...)
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "-", "_"))
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redactString(val)
	case error:
		return l.redactString(val.Error())
	case []byte:
		return l.redactString(string(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if sensitiveKeys[normalizeKey(k)] {
				out[k] = redactedPlaceholder
				continue
			}
			out[k] = l.redactValue(inner)
		}
		return out
	case int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(v); err == nil {
			return l.redactString(string(b))
		}
		return v
	}
}

func (l *Logger) redactString(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

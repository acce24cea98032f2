// Package logging sets up the process-wide zerolog logger and sanitizes
// values pulled from upstream payloads before they reach a log line.
package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// sensitiveKeys are map keys whose values get redacted by Sanitize,
// matched case-insensitively and after stripping underscores/dashes.
var sensitiveKeys = []string{
	"token", "authorization", "password", "secret", "refresh", "access", "clientsecret",
}

const (
	maxDepth       = 4
	maxMapEntries  = 50
	maxListEntries = 20
	maxStringLen   = 500
)

// Setup configures the global zerolog logger level and output format from a
// level string (debug/info/warn/error); anything unrecognized falls back to
// info. Output is JSON unless stdout is a terminal, in which case a
// human-readable console writer is used.
func Setup(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	var writer = os.Stdout
	logger := zerolog.New(writer).With().Timestamp().Logger()
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	return logger
}

// Named returns a child logger tagged with a component name, the pattern
// used throughout the worker to scope log lines per subsystem.
func Named(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// Sanitize returns a copy of v safe to place in a log field: sensitive map
// keys are redacted, deep structures are truncated, and long strings/lists
// are capped. It is the one place upstream payloads pass through before
// reaching a log line.
func Sanitize(v interface{}) interface{} {
	return sanitize(v, 0)
}

func sanitize(v interface{}, depth int) interface{} {
	if depth > maxDepth {
		return "[max-depth]"
	}
	switch val := v.(type) {
	case map[string]interface{}:
		return sanitizeMap(val, depth)
	case []interface{}:
		return sanitizeList(val, depth)
	case string:
		return sanitizeString(val)
	default:
		return val
	}
}

func sanitizeMap(m map[string]interface{}, depth int) map[string]interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]interface{}, len(keys))
	for i, k := range keys {
		if i >= maxMapEntries {
			out["_truncated"] = fmt.Sprintf("+%d more", len(keys)-maxMapEntries)
			break
		}
		if isSensitiveKey(k) {
			out[k] = "***"
			continue
		}
		out[k] = sanitize(m[k], depth+1)
	}
	return out
}

func sanitizeList(list []interface{}, depth int) []interface{} {
	n := len(list)
	if n > maxListEntries {
		out := make([]interface{}, 0, maxListEntries+1)
		for i := 0; i < maxListEntries; i++ {
			out = append(out, sanitize(list[i], depth+1))
		}
		out = append(out, fmt.Sprintf("[+%d more]", n-maxListEntries))
		return out
	}
	out := make([]interface{}, len(list))
	for i, item := range list {
		out[i] = sanitize(item, depth+1)
	}
	return out
}

func sanitizeString(s string) string {
	if len(s) <= maxStringLen {
		return s
	}
	return s[:maxStringLen] + "...[truncated]"
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(normalized, sensitive) {
			return true
		}
	}
	return false
}

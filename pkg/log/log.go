package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Format selects the wire format of emitted log records.
type Format string

const (
	FormatText   Format = "text"
	FormatLogfmt Format = "logfmt"
	FormatJSON   Format = "json"
)

var (
	ErrUnknownFormat = errors.New("unknown log format")
	ErrUnknownLevel  = errors.New("unknown log level")
)

// ParseFormat converts a string to a [Format].
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return FormatText, nil
	case "logfmt":
		return FormatLogfmt, nil
	case "json":
		return FormatJSON, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ParseLevel converts a string to a [slog.Level].
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
}

// CreateHandler creates a [slog.Handler] writing to w at the given level
// and format. Text and logfmt output go through charmbracelet/log; json
// uses [slog.NewJSONHandler] so records stay machine-parseable.
func CreateHandler(w io.Writer, level slog.Level, format Format) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	formatter := charmlog.TextFormatter
	if format == FormatLogfmt {
		formatter = charmlog.LogfmtFormatter
	}

	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		Formatter:       formatter,
		ReportTimestamp: true,
	})
}

// CreateHandlerWithStrings is [CreateHandler] for unparsed flag values.
func CreateHandlerWithStrings(w io.Writer, logLevel, logFormat string) (slog.Handler, error) {
	level, err := ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	format, err := ParseFormat(logFormat)
	if err != nil {
		return nil, err
	}

	return CreateHandler(w, level, format), nil
}

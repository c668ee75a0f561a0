package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drops-platform/dropship/pkg/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		want  slog.Level
		err   error
	}{
		"debug":         {input: "debug", want: slog.LevelDebug},
		"info":          {input: "info", want: slog.LevelInfo},
		"warn":          {input: "warn", want: slog.LevelWarn},
		"warning alias": {input: "warning", want: slog.LevelWarn},
		"error":         {input: "error", want: slog.LevelError},
		"uppercase":     {input: "DEBUG", want: slog.LevelDebug},
		"unknown":       {input: "loud", err: log.ErrUnknownLevel},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseLevel(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		want  log.Format
		err   error
	}{
		"text":    {input: "text", want: log.FormatText},
		"logfmt":  {input: "logfmt", want: log.FormatLogfmt},
		"json":    {input: "json", want: log.FormatJSON},
		"default": {input: "", want: log.FormatText},
		"unknown": {input: "xml", err: log.ErrUnknownFormat},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseFormat(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCreateHandler_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	h := log.CreateHandler(&buf, slog.LevelInfo, log.FormatJSON)
	logger := slog.New(h)

	logger.Info("released", slog.String("tag", "v1.2.3"))

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "released", record["msg"])
	assert.Equal(t, "v1.2.3", record["tag"])
}

func TestCreateHandler_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	h := log.CreateHandler(&buf, slog.LevelWarn, log.FormatText)
	logger := slog.New(h)

	logger.Debug("hidden")
	logger.Warn("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	_, err := log.CreateHandlerWithStrings(&buf, "nope", "text")
	require.ErrorIs(t, err, log.ErrUnknownLevel)

	_, err = log.CreateHandlerWithStrings(&buf, "info", "nope")
	require.ErrorIs(t, err, log.ErrUnknownFormat)

	h, err := log.CreateHandlerWithStrings(&buf, "info", "logfmt")
	require.NoError(t, err)
	require.NotNil(t, h)
}

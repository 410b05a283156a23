package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		want zerolog.Level
		ok   bool
	}{
		"":         {zerolog.InfoLevel, false},
		"DEBUG":    {zerolog.DebugLevel, true},
		" warning": {zerolog.WarnLevel, true},
		"off":      {zerolog.Disabled, true},
		"chatty":   {zerolog.InfoLevel, false},
	}
	for raw, tc := range cases {
		got, ok := parseLevel(raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseLevel(%q) = %v, %v; want %v, %v", raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseBool(t *testing.T) {
	if v, ok := parseBool("true"); !v || !ok {
		t.Fatalf("expected true")
	}
	if _, ok := parseBool("maybe"); ok {
		t.Fatalf("expected invalid bool to be ignored")
	}
	if _, ok := parseBool(" "); ok {
		t.Fatalf("expected blank to be ignored")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")
	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || cfg.Timestamp || !cfg.NoColor {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestForTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	logger := For("stream.decoder")
	logger.Warn().Msg("stream checksum mismatch")
	if !strings.Contains(buf.String(), `"component":"stream.decoder"`) {
		t.Fatalf("missing component field: %s", buf.String())
	}
}

func TestConsoleWriterOmitsMissingTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(consoleWriter(Config{Out: &buf, NoColor: true}))
	logger.Info().Msg("start")
	line := buf.String()
	if strings.Contains(line, "<nil>") {
		t.Fatalf("unexpected empty timestamp in %q", line)
	}
	if !strings.Contains(line, "INF") || !strings.Contains(line, "start") {
		t.Fatalf("unexpected line: %q", line)
	}
}

package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/alnah/go-audioconv/internal/config"
	"github.com/alnah/go-audioconv/internal/logger"
)

func TestNewEnv_Options(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	resolver := &mockFFmpegResolver{}
	loader := &mockConfigLoader{}
	factory := &mockTranscoderFactory{}
	logs := &mockLoggerFactory{}

	env := NewEnv(
		WithStdout(&out),
		WithStderr(&errOut),
		WithGetenv(staticEnv(map[string]string{"K": "v"})),
		WithNow(fixedTime(now)),
		WithFFmpegResolver(resolver),
		WithConfigLoader(loader),
		WithTranscoderFactory(factory),
		WithLoggerFactory(logs),
	)

	if env.Stdout != &out || env.Stderr != &errOut {
		t.Error("NewEnv() did not apply writers")
	}
	if env.Getenv("K") != "v" || !env.Now().Equal(now) {
		t.Error("NewEnv() did not apply getenv/now")
	}
	if env.FFmpegResolver != resolver || env.ConfigLoader != loader ||
		env.TranscoderFactory != factory || env.LoggerFactory != logs {
		t.Error("NewEnv() did not apply factories")
	}
}

func TestDefaultEnv_Complete(t *testing.T) {
	t.Parallel()

	env := DefaultEnv()
	if env.Stdout == nil || env.Stderr == nil || env.Getenv == nil || env.Now == nil ||
		env.FFmpegResolver == nil || env.ConfigLoader == nil ||
		env.TranscoderFactory == nil || env.LoggerFactory == nil {
		t.Errorf("DefaultEnv() has nil fields: %+v", env)
	}
}

func TestBindGlobalFlags(t *testing.T) {
	t.Parallel()

	env, _ := testEnv()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindGlobalFlags(fs, env)

	if err := fs.Parse([]string{"--log-level", "debug", "--log-file", "/tmp/a.log"}); err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if env.LogLevel != "debug" || env.LogFile != "/tmp/a.log" {
		t.Errorf("flags = %q/%q, want debug and /tmp/a.log", env.LogLevel, env.LogFile)
	}
}

func TestEnv_NewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		flagLevel string
		flagFile  string
		cfg       config.Config
		wantLevel string
		wantFile  string
	}{
		{"config only", "", "", config.Config{LogLevel: "warn", LogFile: "/var/log/a.log"}, "warn", "/var/log/a.log"},
		{"flags win", "error", "/tmp/b.log", config.Config{LogLevel: "warn", LogFile: "/var/log/a.log"}, "error", "/tmp/b.log"},
		{"nothing set", "", "", config.Config{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, mocks := testEnv()
			env.LogLevel = tt.flagLevel
			env.LogFile = tt.flagFile

			if _, err := env.newLogger(tt.cfg, logger.EncodingConsole); err != nil {
				t.Fatalf("newLogger() unexpected error: %v", err)
			}
			got := mocks.logger.Config()
			if got.Level != tt.wantLevel || got.File != tt.wantFile {
				t.Errorf("logger config = %q/%q, want %q/%q", got.Level, got.File, tt.wantLevel, tt.wantFile)
			}
			if got.Output != env.Stderr {
				t.Error("logger output is not env.Stderr")
			}
		})
	}
}

func TestDefaultTranscoderFactory(t *testing.T) {
	t.Parallel()

	if _, err := (defaultTranscoderFactory{}).NewTranscoder(""); err == nil {
		t.Error("NewTranscoder(\"\") expected error, got nil")
	}
	tc, err := (defaultTranscoderFactory{}).NewTranscoder("/usr/bin/ffmpeg")
	if err != nil || tc == nil {
		t.Errorf("NewTranscoder() = %v, %v; want a transcoder", tc, err)
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{ErrFileNotFound, ErrOutputExists, ErrOutputConflict, ErrNoInput}
	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("sentinels %d and %d should not match: %v == %v", i, j, err1, err2)
			}
		}
	}
}

package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alnah/go-audioconv/internal/audio"
	"github.com/alnah/go-audioconv/internal/config"
	"github.com/alnah/go-audioconv/internal/ffmpeg"
	"github.com/alnah/go-audioconv/internal/logger"
	"github.com/alnah/go-audioconv/internal/media"
	"github.com/alnah/go-audioconv/internal/transcode"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Global flags, bound by BindGlobalFlags.
	LogLevel string
	LogFile  string

	// Factories for domain objects
	FFmpegResolver    FFmpegResolver
	ConfigLoader      ConfigLoader
	TranscoderFactory TranscoderFactory
	LoggerFactory     LoggerFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context, configured string) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string, log *zap.Logger)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// Transcoder decodes uploads and encodes PCM through ffmpeg.
type Transcoder interface {
	Decode(ctx context.Context, blob media.Blob) (*audio.PCM, error)
	Encode(ctx context.Context, pcm *audio.PCM, target media.Format, name string) (transcode.Result, error)
	Bitrate() string
}

// TranscoderFactory creates transcoders bound to a resolved ffmpeg binary.
type TranscoderFactory interface {
	NewTranscoder(ffmpegPath string, opts ...transcode.Option) (Transcoder, error)
}

// LoggerFactory builds loggers from a logger configuration.
type LoggerFactory interface {
	NewLogger(cfg logger.Config) (*zap.Logger, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithTranscoderFactory sets the transcoder factory.
func WithTranscoderFactory(f TranscoderFactory) EnvOption {
	return func(e *Env) {
		e.TranscoderFactory = f
	}
}

// WithLoggerFactory sets the logger factory.
func WithLoggerFactory(f LoggerFactory) EnvOption {
	return func(e *Env) {
		e.LoggerFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
		Getenv:            os.Getenv,
		Now:               time.Now,
		FFmpegResolver:    &defaultFFmpegResolver{},
		ConfigLoader:      &defaultConfigLoader{},
		TranscoderFactory: &defaultTranscoderFactory{},
		LoggerFactory:     &defaultLoggerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// BindGlobalFlags registers the flags shared by every command.
func BindGlobalFlags(fs *pflag.FlagSet, env *Env) {
	fs.StringVar(&env.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default: config or info)")
	fs.StringVar(&env.LogFile, "log-file", "", "Also write JSON logs to this file, rotated")
}

// newLogger builds a logger from the global flags, falling back to cfg.
func (e *Env) newLogger(cfg config.Config, enc logger.Encoding) (*zap.Logger, error) {
	level := e.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	file := e.LogFile
	if file == "" {
		file = cfg.LogFile
	}
	return e.LoggerFactory.NewLogger(logger.Config{
		Level:    level,
		Encoding: enc,
		Output:   e.Stderr,
		File:     config.ExpandPath(file),
	})
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context, configured string) (string, error) {
	return ffmpeg.NewResolver(ffmpeg.WithConfiguredPath(configured)).Resolve(ctx)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, log *zap.Logger) {
	ffmpeg.NewVersionChecker(ffmpeg.WithVersionLogger(log)).Check(ctx, ffmpegPath)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultTranscoderFactory implements TranscoderFactory using transcode.Service.
type defaultTranscoderFactory struct{}

func (defaultTranscoderFactory) NewTranscoder(ffmpegPath string, opts ...transcode.Option) (Transcoder, error) {
	s, err := transcode.NewService(ffmpegPath, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// defaultLoggerFactory implements LoggerFactory using the logger package.
type defaultLoggerFactory struct{}

func (defaultLoggerFactory) NewLogger(cfg logger.Config) (*zap.Logger, error) {
	return logger.New(cfg)
}

// Compile-time interface verification.
var (
	_ FFmpegResolver    = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader      = (*defaultConfigLoader)(nil)
	_ TranscoderFactory = (*defaultTranscoderFactory)(nil)
	_ LoggerFactory     = (*defaultLoggerFactory)(nil)
	_ Transcoder        = (*transcode.Service)(nil)
)

package ffmpeg

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

const (
	// binaryName is the base name of the ffmpeg binary looked up on PATH.
	binaryName = "ffmpeg"

	// minFFmpegMajorVersion is the minimum supported ffmpeg version.
	// Older builds lack the -b:a handling and demuxers used for speech codecs.
	minFFmpegMajorVersion = 4
)

// EnvFFmpegPath names the environment variable holding a custom ffmpeg path.
const EnvFFmpegPath = "FFMPEG_PATH"

// ---------------------------------------------------------------------------
// Resolver - testable FFmpeg location with dependency injection
// ---------------------------------------------------------------------------

// Resolver locates the FFmpeg binary. It never downloads or installs
// anything; a missing binary is reported with manual install instructions.
type Resolver struct {
	configured string
	stat       fileStatter
	env        envProvider
	goos       string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConfiguredPath sets an explicit path from flags or the config file.
// It takes precedence over the environment and PATH.
func WithConfiguredPath(p string) ResolverOption {
	return func(r *Resolver) { r.configured = p }
}

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.stat = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithPlatform sets the target OS (for testing install instructions).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat: osFileStatter{},
		env:  osEnvProvider{},
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. Configured path (error if set but invalid)
//  2. FFMPEG_PATH environment variable (error if set but invalid)
//  3. System PATH
//
// The returned path is handed unchanged to the transcoder; how it was found
// does not affect conversion behavior.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if r.configured != "" {
		return r.explicit(r.configured, "configured ffmpeg-path")
	}

	if envPath := r.env.Getenv(EnvFFmpegPath); envPath != "" {
		return r.explicit(envPath, EnvFFmpegPath)
	}

	if path, err := r.env.LookPath(binaryName); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w on PATH\n\n%s", ErrNotFound, r.manualInstallInstructions())
}

// explicit accepts a path set by the user. Bare names ("ffmpeg7") are
// looked up on PATH; anything with a separator must exist on disk.
func (r *Resolver) explicit(p, source string) (string, error) {
	if !strings.ContainsAny(p, `/\`) {
		if found, err := r.env.LookPath(p); err == nil {
			return found, nil
		}
		return "", fmt.Errorf("%w: %s is %q but it is not on PATH", ErrNotFound, source, p)
	}
	if _, err := r.stat.Stat(p); err != nil {
		return "", fmt.Errorf("%w: %s is %q but binary not found", ErrNotFound, source, p)
	}
	return p, nil
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	switch r.goos {
	case "darwin":
		return `To install FFmpeg manually:
  brew install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "linux":
		return `To install FFmpeg manually:
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "windows":
		return `To install FFmpeg manually:
  winget install ffmpeg

Or download from https://www.gyan.dev/ffmpeg/builds/

Or set FFMPEG_PATH environment variable to your ffmpeg.exe.`
	default:
		return `To install FFmpeg manually, download from https://ffmpeg.org/download.html
Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	}
}

// ---------------------------------------------------------------------------
// VersionChecker - minimum version warning
// ---------------------------------------------------------------------------

// VersionChecker verifies FFmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	log      *zap.Logger
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor for running FFmpeg.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionLogger sets the logger receiving the outdated-version warning.
func WithVersionLogger(l *zap.Logger) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.log = l }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: NewExecutor(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check verifies that ffmpeg meets minimum version requirements.
// Logs a warning if the version is below minimum but doesn't fail.
// Returns the detected major version and true, or 0 and false if the
// version could not be determined.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) (int, bool) {
	output, err := vc.executor.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && output == "" {
		return 0, false
	}

	major, ok := parseMajorVersion(output)
	if !ok {
		vc.log.Debug("could not parse ffmpeg version", zap.String("path", ffmpegPath))
		return 0, false
	}

	if major < minFFmpegMajorVersion {
		vc.log.Warn("ffmpeg is older than recommended",
			zap.Int("version", major),
			zap.Int("recommended", minFFmpegMajorVersion),
			zap.String("path", ffmpegPath))
	}
	return major, true
}

// parseMajorVersion reads the major version from the first line of
// "ffmpeg -version", e.g. "ffmpeg version 6.1.1 Copyright..." or
// "ffmpeg version n6.1.1...".
func parseMajorVersion(output string) (int, bool) {
	line, _, _ := strings.Cut(output, "\n")
	if line == "" {
		return 0, false
	}

	var major int
	if _, err := fmt.Sscanf(line, "ffmpeg version %d", &major); err == nil {
		return major, true
	}
	if _, err := fmt.Sscanf(line, "ffmpeg version n%d", &major); err == nil {
		return major, true
	}
	return 0, false
}

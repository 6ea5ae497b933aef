package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-audioconv/internal/audio"
	"github.com/alnah/go-audioconv/internal/cli"
	"github.com/alnah/go-audioconv/internal/config"
	"github.com/alnah/go-audioconv/internal/ffmpeg"
	"github.com/alnah/go-audioconv/internal/interrupt"
	"github.com/alnah/go-audioconv/internal/media"
	"github.com/alnah/go-audioconv/internal/timespec"
	"github.com/alnah/go-audioconv/internal/transcode"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitConversion = 5
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels ctx; a second one within 2s exits.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()

	env := cli.DefaultEnv()
	rootCmd := newRootCmd(env)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		handler.Stop()
		os.Exit(exitCode(err))
	}
}

// newRootCmd assembles the command tree around env.
func newRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "audioconv",
		Short:   "Convert audio between formats and cut clips",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cli.BindGlobalFlags(rootCmd.PersistentFlags(), env)

	rootCmd.AddCommand(cli.ConvertCmd(env))
	rootCmd.AddCommand(cli.ServeCmd(env))
	rootCmd.AddCommand(cli.FormatsCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))
	return rootCmd
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, transcode.ErrInvalidBitrate) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, media.ErrUnsupportedFormat) || errors.Is(err, timespec.ErrTimeFormat) ||
		errors.Is(err, audio.ErrInvalidRange) || errors.Is(err, cli.ErrFileNotFound) ||
		errors.Is(err, cli.ErrOutputExists) || errors.Is(err, cli.ErrOutputConflict) ||
		errors.Is(err, cli.ErrNoInput) || errors.Is(err, config.ErrInvalid) || errors.Is(err, config.ErrUnknownKey) {
		return ExitValidation
	}

	// Conversion errors (ExitConversion = 5), including a run timeout.
	if errors.Is(err, transcode.ErrDecode) || errors.Is(err, transcode.ErrEncode) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ExitConversion
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

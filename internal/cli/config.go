package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-audioconv/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/audioconv/config.yaml.
Settings can also be overridden via environment variables.

Supported settings:
  ffmpeg-path     Path to the ffmpeg binary        (env: FFMPEG_PATH)
  bitrate         Bitrate for lossy formats         (env: AUDIOCONV_BITRATE)
  output-format   Default output format             (env: AUDIOCONV_OUTPUT_FORMAT)
  output-dir      Default directory for output      (env: AUDIOCONV_OUTPUT_DIR)
  formats         Accepted formats, comma-separated (env: AUDIOCONV_FORMATS)
  log-level       debug, info, warn or error        (env: AUDIOCONV_LOG_LEVEL)
  log-file        Rotated JSON log file             (env: AUDIOCONV_LOG_FILE)
  listen-addr     Address for "audioconv serve"     (env: AUDIOCONV_LISTEN_ADDR)`,
		Example: `  audioconv config set output-format wav
  audioconv config set formats amr,mp3,wav
  audioconv config get bitrate
  audioconv config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

The value is validated before the file is written. For output-dir, the
directory is created if it doesn't exist.`,
		Example: `  audioconv config set output-dir ~/Music/converted
  audioconv config set bitrate 128k`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  audioconv config get output-format`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable overrides.`,
		Example: `  audioconv config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	switch key {
	case config.KeyOutputDir:
		value = config.ExpandPath(value)
		if err := config.ValidOutputDir(value); err != nil {
			return fmt.Errorf("%w: %s: %w", config.ErrInvalid, key, err)
		}
	case config.KeyFFmpegPath, config.KeyLogFile:
		value = config.ExpandPath(value)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	value, err := config.Get(key)
	if err != nil {
		return err
	}

	if value == "" {
		if name := config.EnvVar(key); name != "" {
			value = env.Getenv(name)
		}
	}

	if value != "" {
		_, _ = fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	for _, key := range config.Keys() {
		if _, ok := data[key]; ok {
			continue
		}
		if name := config.EnvVar(key); name != "" {
			if v := env.Getenv(name); v != "" {
				data[key] = v + " (from env)"
			}
		}
	}

	if len(data) == 0 {
		_, _ = fmt.Fprintln(env.Stdout, "No configuration set.")
		_, _ = fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys() {
			_, _ = fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range config.Keys() {
		if v, ok := data[key]; ok {
			_, _ = fmt.Fprintf(env.Stdout, "%s=%s\n", key, v)
		}
	}
	return nil
}

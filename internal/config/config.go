// Package config loads user settings from a YAML file with environment
// variable fallbacks. Command-line flags override both; that layer lives in
// the cli package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alnah/go-audioconv/internal/media"
)

// Config keys, shared by the YAML file and "audioconv config".
const (
	KeyFFmpegPath   = "ffmpeg-path"
	KeyBitrate      = "bitrate"
	KeyOutputFormat = "output-format"
	KeyOutputDir    = "output-dir"
	KeyFormats      = "formats"
	KeyLogLevel     = "log-level"
	KeyLogFile      = "log-file"
	KeyListenAddr   = "listen-addr"
)

// Environment variable fallbacks. The ffmpeg path falls back to
// FFMPEG_PATH through the ffmpeg resolver instead.
const (
	EnvBitrate      = "AUDIOCONV_BITRATE"
	EnvOutputFormat = "AUDIOCONV_OUTPUT_FORMAT"
	EnvOutputDir    = "AUDIOCONV_OUTPUT_DIR"
	EnvFormats      = "AUDIOCONV_FORMATS"
	EnvLogLevel     = "AUDIOCONV_LOG_LEVEL"
	EnvLogFile      = "AUDIOCONV_LOG_FILE"
	EnvListenAddr   = "AUDIOCONV_LISTEN_ADDR"
)

const (
	appDir   = "audioconv"
	fileName = "config.yaml"
)

var (
	// ErrUnknownKey indicates a key that is not a configuration setting.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalid indicates a setting with an unusable value.
	ErrInvalid = errors.New("invalid config")
)

// Config holds user configuration loaded from
// $XDG_CONFIG_HOME/audioconv/config.yaml. Empty fields mean "use the
// built-in default".
type Config struct {
	FFmpegPath   string   `yaml:"ffmpeg-path,omitempty"`
	Bitrate      string   `yaml:"bitrate,omitempty"`
	OutputFormat string   `yaml:"output-format,omitempty"`
	OutputDir    string   `yaml:"output-dir,omitempty"`
	Formats      []string `yaml:"formats,omitempty"`
	LogLevel     string   `yaml:"log-level,omitempty"`
	LogFile      string   `yaml:"log-file,omitempty"`
	ListenAddr   string   `yaml:"listen-addr,omitempty"`
}

// Keys returns every configuration key in display order.
func Keys() []string {
	return []string{
		KeyFFmpegPath, KeyBitrate, KeyOutputFormat, KeyOutputDir,
		KeyFormats, KeyLogLevel, KeyLogFile, KeyListenAddr,
	}
}

// field returns a pointer to the string setting named key.
// formats is a list and handled separately.
func (c *Config) field(key string) (*string, bool) {
	switch key {
	case KeyFFmpegPath:
		return &c.FFmpegPath, true
	case KeyBitrate:
		return &c.Bitrate, true
	case KeyOutputFormat:
		return &c.OutputFormat, true
	case KeyOutputDir:
		return &c.OutputDir, true
	case KeyLogLevel:
		return &c.LogLevel, true
	case KeyLogFile:
		return &c.LogFile, true
	case KeyListenAddr:
		return &c.ListenAddr, true
	}
	return nil, false
}

// Set assigns value to key. formats takes a comma-separated list.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if key == KeyFormats {
		c.Formats = splitList(value)
		return nil
	}
	f, ok := c.field(key)
	if !ok {
		return fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	*f = value
	return nil
}

// Value returns the setting for key as a string, formats comma-joined.
func (c *Config) Value(key string) (string, error) {
	if key == KeyFormats {
		return strings.Join(c.Formats, ","), nil
	}
	f, ok := c.field(key)
	if !ok {
		return "", fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	return *f, nil
}

// Map returns the non-empty settings keyed by name.
func (c *Config) Map() map[string]string {
	out := make(map[string]string)
	for _, k := range Keys() {
		if v, _ := c.Value(k); v != "" {
			out[k] = v
		}
	}
	return out
}

// FormatSet builds the accepted format set. No formats means all.
func (c *Config) FormatSet() (media.FormatSet, error) {
	return media.NewFormatSet(c.Formats...)
}

// Validate checks the settings that can be checked without side effects.
// The bitrate is checked when the transcoder is built and ffmpeg-path when
// the binary is resolved.
func (c *Config) Validate() error {
	set, err := c.FormatSet()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, KeyFormats, err)
	}
	if c.OutputFormat != "" {
		if _, err := set.Parse(c.OutputFormat); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, KeyOutputFormat, err)
		}
	}
	if c.LogLevel != "" {
		levels := []string{"debug", "info", "warn", "warning", "error"}
		if !slices.Contains(levels, strings.ToLower(c.LogLevel)) {
			return fmt.Errorf("%w: %s must be debug, info, warn or error, got %q", ErrInvalid, KeyLogLevel, c.LogLevel)
		}
	}
	if c.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, KeyListenAddr, err)
		}
	}
	return nil
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/audioconv.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, fileName), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// A missing file is not an error. The result is validated.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}

	cfg, err := ReadFile(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envVars maps keys to their environment fallback.
var envVars = map[string]string{
	KeyBitrate:      EnvBitrate,
	KeyOutputFormat: EnvOutputFormat,
	KeyOutputDir:    EnvOutputDir,
	KeyFormats:      EnvFormats,
	KeyLogLevel:     EnvLogLevel,
	KeyLogFile:      EnvLogFile,
	KeyListenAddr:   EnvListenAddr,
}

// EnvVar returns the environment variable backing key, or "" if it has none.
func EnvVar(key string) string {
	return envVars[key]
}

// applyEnv fills settings left empty by the file.
func applyEnv(cfg *Config) {
	for _, key := range Keys() {
		env, ok := envVars[key]
		if !ok {
			continue
		}
		if v, _ := cfg.Value(key); v == "" {
			if ev := os.Getenv(env); ev != "" {
				_ = cfg.Set(key, ev) // keys come from Keys()
			}
		}
	}
}

// ReadFile parses a YAML config file. Unknown keys are rejected so typos
// surface instead of being ignored.
func ReadFile(p string) (Config, error) {
	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from config dir
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", p, err)
	}
	return cfg, nil
}

// writeFile writes cfg as YAML, creating the directory if needed.
func writeFile(p string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(p, data, 0600); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Save sets a single key in the config file, keeping the other settings.
// The updated file content is validated before it is written.
func Save(key, value string) error {
	p, err := Path()
	if err != nil {
		return err
	}

	cfg, err := ReadFile(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return writeFile(p, cfg)
}

// Get reads a single value from the config file, without env fallbacks.
// Returns an empty string if the key is unset.
func Get(key string) (string, error) {
	cfg, err := readOrEmpty()
	if err != nil {
		return "", err
	}
	return cfg.Value(key)
}

// List returns all values set in the config file.
func List() (map[string]string, error) {
	cfg, err := readOrEmpty()
	if err != nil {
		return nil, err
	}
	return cfg.Map(), nil
}

func readOrEmpty() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	cfg, err := ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// ValidOutputDir checks if a directory path is valid for use as output-dir,
// creating it when missing.
func ValidOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	// Check if writable by attempting to create a temp file.
	f, err := os.CreateTemp(d, ".audioconv-write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name) // best effort
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// splitList parses "mp3, wav,,flac" into its non-empty items.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

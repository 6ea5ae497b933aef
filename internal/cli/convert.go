package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-audioconv/internal/config"
	"github.com/alnah/go-audioconv/internal/convert"
	"github.com/alnah/go-audioconv/internal/format"
	"github.com/alnah/go-audioconv/internal/logger"
	"github.com/alnah/go-audioconv/internal/result"
	"github.com/alnah/go-audioconv/internal/timespec"
	"github.com/alnah/go-audioconv/internal/transcode"
)

// maxParallel caps concurrent conversions; each one runs its own ffmpeg.
const maxParallel = 16

// convertOptions holds the flags of the convert command.
type convertOptions struct {
	format     string
	start      string
	end        string
	bitrate    string
	outputDir  string
	ffmpegPath string
	parallel   int
	timeout    time.Duration
	force      bool
	cutOnly    bool
}

// clampParallel constrains the batch size to [1, maxParallel].
func clampParallel(n int) int {
	return max(1, min(n, maxParallel))
}

// ConvertCmd creates the convert command.
// The env parameter provides injectable dependencies for testing.
func ConvertCmd(env *Env) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <audio-file>...",
		Short: "Convert audio files and optionally cut a clip",
		Long: `Convert audio files to another format using FFmpeg.

Each input is written next to itself (or into --output-dir) as
<name>.converted.<ext>. With --start or --end, the clip between those
offsets is also written as <name>.cut.<ext>.

Offsets accept seconds (90, 12.5), MM:SS (1:30) or HH:MM:SS (0:01:30).
An empty --start means the beginning and an empty --end the end of media.

Supported formats: amr, mp3, wav, flac, ogg, aac, m4a, wma`,
		Example: `  audioconv convert voice.amr
  audioconv convert voice.amr -f wav
  audioconv convert interview.m4a --start 1:30 --end 2:45
  audioconv convert *.wav -f flac -o ~/Music/flac -p 8
  audioconv convert talk.mp3 --end 30 --cut-only -b 128k`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), env, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format (default: config or mp3)")
	cmd.Flags().StringVar(&opts.start, "start", "", "Clip start offset")
	cmd.Flags().StringVar(&opts.end, "end", "", "Clip end offset")
	cmd.Flags().StringVarP(&opts.bitrate, "bitrate", "b", "", "Bitrate for lossy formats (default: config or 192k)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Output directory (default: config or next to input)")
	cmd.Flags().StringVar(&opts.ffmpegPath, "ffmpeg", "", "Path to the ffmpeg binary")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", convert.DefaultParallel, fmt.Sprintf("Max concurrent conversions (1-%d)", maxParallel))
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Abort the whole run after this duration (e.g. 5m)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite existing output files")
	cmd.Flags().BoolVar(&opts.cutOnly, "cut-only", false, "Write only the clip")

	return cmd
}

// runConvert executes the conversion of inputs.
// Validation order: files exist -> config -> formats -> offsets -> output paths -> ffmpeg
func runConvert(ctx context.Context, env *Env, inputs []string, opts convertOptions) error {
	// === VALIDATION (fail-fast) ===

	if len(inputs) == 0 {
		return ErrNoInput
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, in)
			}
			return fmt.Errorf("cannot access input file: %w", err)
		}
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}

	formats, err := cfg.FormatSet()
	if err != nil {
		return err
	}
	for _, in := range inputs {
		if _, err := formats.Validate(in, ""); err != nil {
			return err
		}
	}
	target, err := formats.Parse(firstNonEmpty(opts.format, cfg.OutputFormat, string(convert.DefaultTarget)))
	if err != nil {
		return fmt.Errorf("output format: %w", err)
	}

	for _, flag := range []struct{ name, value string }{{"--start", opts.start}, {"--end", opts.end}} {
		if strings.TrimSpace(flag.value) == "" {
			continue
		}
		if _, err := timespec.Parse(flag.value); err != nil {
			return fmt.Errorf("%s: %w", flag.name, err)
		}
	}
	wantsCut := opts.cutOnly || strings.TrimSpace(opts.start) != "" || strings.TrimSpace(opts.end) != ""

	outDir := config.ExpandPath(firstNonEmpty(opts.outputDir, cfg.OutputDir))
	if outDir != "" {
		if err := config.ValidOutputDir(outDir); err != nil {
			return fmt.Errorf("invalid output-dir: %w", err)
		}
	}
	owners := make(map[string]string) // output path -> input writing it
	for _, in := range inputs {
		for _, kind := range outputKinds(wantsCut, opts.cutOnly) {
			path := outputPath(in, outDir, target, kind)
			key := path
			if abs, err := filepath.Abs(path); err == nil {
				key = abs
			}
			if prev, ok := owners[key]; ok {
				return fmt.Errorf("%w: %s and %s both write %s (rename one or convert them separately)",
					ErrOutputConflict, prev, in, path)
			}
			owners[key] = in
			if !opts.force {
				if err := checkOutputFree(path); err != nil {
					return err
				}
			}
		}
	}

	parallel := clampParallel(opts.parallel)

	// === SETUP ===

	log, err := env.newLogger(cfg, logger.EncodingConsole)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx, config.ExpandPath(firstNonEmpty(opts.ffmpegPath, cfg.FFmpegPath)))
	if err != nil {
		return err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath, log)

	tc, err := env.TranscoderFactory.NewTranscoder(ffmpegPath,
		transcode.WithBitrate(firstNonEmpty(opts.bitrate, cfg.Bitrate)),
		transcode.WithLogger(log))
	if err != nil {
		return err
	}
	log.Debug("transcoder ready", zap.String("ffmpeg", ffmpegPath), zap.String("bitrate", tc.Bitrate()))
	pipeline := convert.New(tc,
		convert.WithFormats(formats),
		convert.WithDefaultTarget(target),
		convert.WithLogger(log))

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	reqs := make([]convert.Request, 0, len(inputs))
	for _, in := range inputs {
		data, err := os.ReadFile(in) // #nosec G304 -- user-specified input file
		if err != nil {
			return fmt.Errorf("cannot read input file: %w", err)
		}
		reqs = append(reqs, convert.Request{
			Filename: filepath.Base(in),
			Data:     data,
			Target:   string(target),
			Start:    opts.start,
			End:      opts.end,
			Cut:      opts.cutOnly,
		})
	}

	// === CONVERSION ===

	_, _ = fmt.Fprintf(env.Stderr, "Converting %d file(s) to %s...\n", len(reqs), target)
	began := env.Now()
	items := pipeline.RunBatch(ctx, reqs, parallel)
	log.Debug("batch converted", zap.Int("items", len(items)), zap.Int("failed", len(convert.Failed(items))))

	// === OUTPUT ===

	var failed []error
	for i, it := range items {
		if err := writeOutcome(env, inputs[i], outDir, it, opts); err != nil {
			_, _ = fmt.Fprintf(env.Stderr, "%s: %v\n", inputs[i], err)
			log.Debug("conversion failed", zap.String("file", inputs[i]), zap.Error(err))
			failed = append(failed, err)
		}
	}

	_, _ = fmt.Fprintf(env.Stderr, "Done in %s: %d converted, %d failed\n",
		format.Duration(env.Now().Sub(began)), len(items)-len(failed), len(failed))

	switch {
	case len(failed) == 0:
		return nil
	case len(items) == 1:
		return failed[0]
	default:
		return fmt.Errorf("%d of %d files failed: %w", len(failed), len(items), failed[0])
	}
}

// writeOutcome writes the downloads of one batch item. A failed clip still
// writes the full conversion before reporting the error.
func writeOutcome(env *Env, input, outDir string, it convert.Item, opts convertOptions) error {
	if it.Outcome == nil {
		return it.Err
	}
	out := it.Outcome

	type write struct {
		kind string
		d    *result.Download
	}
	var writes []write
	if !opts.cutOnly {
		writes = append(writes, write{convert.ConvertedName, out.Converted})
	}
	if out.Cut != nil {
		writes = append(writes, write{convert.CutName, out.Cut})
	}

	for _, w := range writes {
		path := outputPath(input, outDir, out.Target, w.kind)
		if err := writeFileAtomic(path, w.d, opts.force); err != nil {
			return err
		}
		detail := format.Duration(out.Duration)
		if w.kind == convert.CutName {
			detail = out.Range.String()
		}
		_, _ = fmt.Fprintf(env.Stdout, "%s -> %s (%s, %s)\n", input, path, format.Size(w.d.Size()), detail)
	}
	return it.Err
}

// outputKinds lists the files a run will write per input.
func outputKinds(wantsCut, cutOnly bool) []string {
	switch {
	case cutOnly:
		return []string{convert.CutName}
	case wantsCut:
		return []string{convert.ConvertedName, convert.CutName}
	}
	return []string{convert.ConvertedName}
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

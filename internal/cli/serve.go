package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-audioconv/internal/config"
	"github.com/alnah/go-audioconv/internal/convert"
	"github.com/alnah/go-audioconv/internal/logger"
	"github.com/alnah/go-audioconv/internal/metrics"
	"github.com/alnah/go-audioconv/internal/server"
	"github.com/alnah/go-audioconv/internal/transcode"
)

// serveOptions holds the flags of the serve command.
type serveOptions struct {
	addr          string
	ffmpegPath    string
	bitrate       string
	maxUploadMB   int64
	timeout       time.Duration
	enableMetrics bool
}

// ServeCmd creates the serve command.
func ServeCmd(env *Env) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Start an HTTP server that converts uploaded audio.

Endpoints:
  POST /v1/convert   multipart upload: file, format, start, end, output=converted|cut
  GET  /v1/formats   accepted formats
  GET  /healthz      liveness
  GET  /metrics      Prometheus metrics (unless --metrics=false)

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Example: `  audioconv serve
  audioconv serve --addr :8080 --timeout 5m
  curl -F file=@voice.amr -F format=mp3 -F start=0:05 -F end=0:12 \
    -OJ http://127.0.0.1:8080/v1/convert`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", fmt.Sprintf("Listen address (default: config or %s)", server.DefaultAddr))
	cmd.Flags().StringVar(&opts.ffmpegPath, "ffmpeg", "", "Path to the ffmpeg binary")
	cmd.Flags().StringVarP(&opts.bitrate, "bitrate", "b", "", "Bitrate for lossy formats (default: config or 192k)")
	cmd.Flags().Int64Var(&opts.maxUploadMB, "max-upload", 64, "Maximum upload size in MB")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Per-request conversion timeout")
	cmd.Flags().BoolVar(&opts.enableMetrics, "metrics", true, "Expose /metrics")

	return cmd
}

// runServe wires the pipeline into the HTTP server and blocks until ctx
// is canceled.
func runServe(ctx context.Context, env *Env, opts serveOptions) error {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}
	formats, err := cfg.FormatSet()
	if err != nil {
		return err
	}
	target, err := formats.Parse(firstNonEmpty(cfg.OutputFormat, string(convert.DefaultTarget)))
	if err != nil {
		return fmt.Errorf("output format: %w", err)
	}
	addr := firstNonEmpty(opts.addr, cfg.ListenAddr, server.DefaultAddr)

	log, err := env.newLogger(cfg, logger.EncodingJSON)
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

	var m *metrics.Metrics
	if opts.enableMetrics {
		m = metrics.New()
	}

	pipeline := convert.New(tc,
		convert.WithFormats(formats),
		convert.WithDefaultTarget(target),
		convert.WithLogger(log),
		convert.WithMetrics(m))

	srv := server.New(pipeline,
		server.WithLogger(log),
		server.WithMetrics(m),
		server.WithMaxUploadBytes(opts.maxUploadMB<<20),
		server.WithRequestTimeout(opts.timeout),
		server.WithDefaultTarget(target))

	log.Info("starting server",
		zap.String("addr", addr),
		zap.String("ffmpeg", ffmpegPath),
		zap.String("bitrate", tc.Bitrate()),
		zap.Stringer("formats", formats),
		zap.Stringer("default_output", target))
	_, _ = fmt.Fprintf(env.Stderr, "Listening on http://%s\n", addr)

	return srv.ListenAndServe(ctx, addr)
}

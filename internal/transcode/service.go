// Package transcode decodes uploaded audio into PCM and encodes PCM into
// a target format by delegating to an ffmpeg binary.
//
// Every call starts one ffmpeg process and blocks until it exits. Inputs and
// outputs that need a seekable file go through a private temp workspace
// which is removed before the call returns. Failures are never retried.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-audioconv/internal/audio"
	"github.com/alnah/go-audioconv/internal/ffmpeg"
	"github.com/alnah/go-audioconv/internal/media"
)

// DefaultBitrate is applied to lossy targets when none is configured.
const DefaultBitrate = "192k"

// workspacePattern names per-call temp directories.
const workspacePattern = "audioconv-*"

// bitrateRe accepts what ffmpeg's -b:a understands: bits, or k/M suffixed.
var bitrateRe = regexp.MustCompile(`^[1-9]\d*(\.\d+)?[kKM]?$`)

// Result is encoded audio ready for download.
type Result struct {
	Data     []byte
	Format   media.Format
	Filename string // e.g. "converted.mp3"
	MIME     string
}

// Size returns the encoded length in bytes.
func (r Result) Size() int64 {
	return int64(len(r.Data))
}

// Service runs decode and encode operations through ffmpeg.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	ffmpegPath string
	bitrate    string
	tempBase   string
	log        *zap.Logger

	// Injectable dependencies (defaults to OS implementations).
	runner  commandRunner
	tempDir tempDirCreator
	fs      workspaceFS
}

// Option configures a Service.
type Option func(*Service)

// WithBitrate sets the bitrate for lossy targets (e.g. "128k").
func WithBitrate(b string) Option {
	return func(s *Service) {
		if b != "" {
			s.bitrate = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTempBase sets the parent directory for workspaces.
// Empty means the OS temp directory.
func WithTempBase(dir string) Option {
	return func(s *Service) { s.tempBase = dir }
}

// WithCommandRunner sets the ffmpeg runner (for testing).
func WithCommandRunner(r commandRunner) Option {
	return func(s *Service) { s.runner = r }
}

// WithTempDirCreator sets the workspace creator (for testing).
func WithTempDirCreator(t tempDirCreator) Option {
	return func(s *Service) { s.tempDir = t }
}

// WithWorkspaceFS sets the workspace file operations (for testing).
func WithWorkspaceFS(fs workspaceFS) Option {
	return func(s *Service) { s.fs = fs }
}

// NewService creates a Service bound to the ffmpeg binary at ffmpegPath.
func NewService(ffmpegPath string, opts ...Option) (*Service, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	s := &Service{
		ffmpegPath: ffmpegPath,
		bitrate:    DefaultBitrate,
		log:        zap.NewNop(),
		runner:     ffmpeg.NewExecutor(),
		tempDir:    osTempDirCreator{},
		fs:         osWorkspaceFS{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if !bitrateRe.MatchString(s.bitrate) {
		return nil, fmt.Errorf("%w: %q (use e.g. 128k or 192k)", ErrInvalidBitrate, s.bitrate)
	}
	return s, nil
}

// Bitrate returns the bitrate applied to lossy targets.
func (s *Service) Bitrate() string {
	return s.bitrate
}

// Decode turns blob into PCM. The demuxer comes from blob.Format; content
// is never sniffed. Decoding is all-or-nothing.
func (s *Service) Decode(ctx context.Context, blob media.Blob) (*audio.PCM, error) {
	c, err := lookupCodec(blob.Format)
	if err != nil {
		return nil, err
	}
	fail := func(err error, stderr []byte) error {
		return &Error{Op: OpDecode, Format: blob.Format, Err: err, Diagnostics: string(stderr)}
	}
	if blob.Empty() {
		return nil, fail(errors.New("input is empty"), nil)
	}

	ws, err := s.tempDir.MkdirTemp(s.tempBase, workspacePattern)
	if err != nil {
		return nil, fail(fmt.Errorf("create workspace: %w", err), nil)
	}
	defer s.cleanup(ws)

	input := filepath.Join(ws, "input"+blob.Format.Ext())
	if err := s.fs.WriteFile(input, blob.Data, 0o600); err != nil {
		return nil, fail(fmt.Errorf("write input: %w", err), nil)
	}

	stdout, stderr, err := s.run(ctx, OpDecode, decodeArgs(c, input), nil)
	if err != nil {
		return nil, fail(err, stderr)
	}
	if len(stdout) == 0 {
		return nil, fail(errNoOutput, stderr)
	}

	pcm, err := audio.DecodeWAV(stdout)
	if err != nil {
		return nil, fail(err, stderr)
	}
	if pcm.Frames() == 0 {
		return nil, fail(fmt.Errorf("%w: no audio frames", errNoOutput), stderr)
	}
	return pcm, nil
}

// Encode turns pcm into the target format. name is the download stem
// ("converted", "cut"); the extension follows target.
func (s *Service) Encode(ctx context.Context, pcm *audio.PCM, target media.Format, name string) (Result, error) {
	c, err := lookupCodec(target)
	if err != nil {
		return Result{}, err
	}
	fail := func(err error, stderr []byte) error {
		return &Error{Op: OpEncode, Format: target, Err: err, Diagnostics: string(stderr)}
	}
	if name == "" {
		name = "converted"
	}

	wav, err := audio.EncodeWAV(pcm)
	if err != nil {
		return Result{}, fail(err, nil)
	}

	ws, err := s.tempDir.MkdirTemp(s.tempBase, workspacePattern)
	if err != nil {
		return Result{}, fail(fmt.Errorf("create workspace: %w", err), nil)
	}
	defer s.cleanup(ws)

	output := filepath.Join(ws, "output"+target.Ext())
	_, stderr, err := s.run(ctx, OpEncode, encodeArgs(c, s.bitrate, output), bytes.NewReader(wav))
	if err != nil {
		return Result{}, fail(err, stderr)
	}

	data, err := s.fs.ReadFile(output)
	if err != nil {
		return Result{}, fail(fmt.Errorf("%w: %v", errNoOutput, err), stderr)
	}
	if len(data) == 0 {
		return Result{}, fail(errNoOutput, stderr)
	}

	return Result{
		Data:     data,
		Format:   target,
		Filename: name + target.Ext(),
		MIME:     target.MIME(),
	}, nil
}

// run invokes ffmpeg once. A canceled ctx is reported as the cause even if
// the killed process returned something else.
func (s *Service) run(ctx context.Context, op string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	start := time.Now()
	stdout, stderr, err := s.runner.Run(ctx, s.ffmpegPath, args, stdin)
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}

	s.log.Debug("ffmpeg finished",
		zap.String("op", op),
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("stdout_bytes", len(stdout)),
		zap.Error(err))
	return stdout, stderr, err
}

func (s *Service) cleanup(ws string) {
	if err := s.fs.RemoveAll(ws); err != nil {
		s.log.Warn("failed to remove workspace", zap.String("dir", ws), zap.Error(err))
	}
}

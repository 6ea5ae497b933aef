// Package convert runs the conversion flow for one upload: validate the
// format, decode, encode the full file, and optionally cut and encode a clip.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alnah/go-audioconv/internal/audio"
	"github.com/alnah/go-audioconv/internal/media"
	"github.com/alnah/go-audioconv/internal/metrics"
	"github.com/alnah/go-audioconv/internal/result"
	"github.com/alnah/go-audioconv/internal/timespec"
	"github.com/alnah/go-audioconv/internal/transcode"
)

// Download stems.
const (
	ConvertedName = "converted"
	CutName       = "cut"
)

// DefaultTarget is the output format when a request names none.
const DefaultTarget = media.MP3

// Compile-time interface verification.
var _ transcoder = (*transcode.Service)(nil)

// transcoder decodes and encodes through the external converter.
type transcoder interface {
	Decode(ctx context.Context, blob media.Blob) (*audio.PCM, error)
	Encode(ctx context.Context, pcm *audio.PCM, target media.Format, name string) (transcode.Result, error)
}

// Request is one upload to convert.
type Request struct {
	ID       string // correlates logs; generated when empty
	Filename string // the extension selects the input format
	MIME     string // as declared by the client; logged only
	Data     []byte
	Target   string // output format tag; empty means DefaultTarget

	// Start and End bound the clip. Either one, or Cut, requests a clip;
	// an empty Start is the beginning and an empty End the end of media.
	Start string
	End   string
	Cut   bool
}

// WantsCut reports whether a clip is requested.
func (r Request) WantsCut() bool {
	return r.Cut || strings.TrimSpace(r.Start) != "" || strings.TrimSpace(r.End) != ""
}

// Outcome holds the downloads produced for one request. Converted and Cut
// are independent buffers; Cut is nil when no clip was requested or the
// clip failed.
type Outcome struct {
	ID        string
	Source    media.Format
	Target    media.Format
	Duration  time.Duration // decoded length of the input
	Range     audio.Range   // valid when Cut is non-nil
	Converted *result.Download
	Cut       *result.Download
}

// Pipeline converts requests. It keeps no per-request state and is safe
// for concurrent use.
type Pipeline struct {
	tc            transcoder
	formats       media.FormatSet
	defaultTarget media.Format
	log           *zap.Logger
	metrics       *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFormats restricts accepted input and output formats.
func WithFormats(s media.FormatSet) Option {
	return func(p *Pipeline) { p.formats = s }
}

// WithDefaultTarget sets the output format used when a request names none.
func WithDefaultTarget(f media.Format) Option {
	return func(p *Pipeline) {
		if f != "" {
			p.defaultTarget = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline around tc.
func New(tc transcoder, opts ...Option) *Pipeline {
	p := &Pipeline{
		tc:            tc,
		formats:       media.DefaultFormats(),
		defaultTarget: DefaultTarget,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Formats returns the accepted format set.
func (p *Pipeline) Formats() media.FormatSet {
	return p.formats
}

// Run converts req. A failure before the full conversion is available
// returns a nil Outcome. A failure while producing the clip returns the
// Outcome with Converted still valid, together with the error.
func (p *Pipeline) Run(ctx context.Context, req Request) (out *Outcome, err error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	log := p.log.With(zap.String("request_id", id), zap.String("file", req.Filename))

	var target media.Format
	p.metrics.ConversionStarted()
	defer func() {
		label := outcomeLabel(err)
		p.metrics.ConversionFinished(string(target), label)
		if err != nil {
			log.Warn("conversion failed", zap.String("outcome", label), zap.Error(err))
		}
	}()

	source, err := p.formats.Validate(req.Filename, req.MIME)
	if err != nil {
		return nil, err
	}
	targetTag := req.Target
	if strings.TrimSpace(targetTag) == "" {
		targetTag = string(p.defaultTarget)
	}
	if target, err = p.formats.Parse(targetTag); err != nil {
		return nil, fmt.Errorf("output format: %w", err)
	}

	log.Debug("conversion started",
		zap.Stringer("source", source),
		zap.Stringer("target", target),
		zap.String("declared_mime", req.MIME),
		zap.Int("bytes", len(req.Data)))

	began := time.Now()
	pcm, err := p.tc.Decode(ctx, media.Blob{Name: req.Filename, Format: source, Data: req.Data})
	p.metrics.RecordStage("decode", time.Since(began).Seconds())
	if err != nil {
		logDiagnostics(log, err)
		return nil, err
	}
	p.metrics.RecordInput(len(req.Data), pcm.Duration().Seconds())

	out = &Outcome{ID: id, Source: source, Target: target, Duration: pcm.Duration()}
	if out.Converted, err = p.export(ctx, log, pcm, target, ConvertedName); err != nil {
		return nil, err
	}

	if req.WantsCut() {
		if err := p.cut(ctx, log, pcm, req, out); err != nil {
			return out, fmt.Errorf("cut: %w", err)
		}
	}

	log.Info("conversion finished",
		zap.Stringer("source", source),
		zap.Stringer("target", target),
		zap.Duration("duration", out.Duration),
		zap.Int64("converted_bytes", out.Converted.Size()),
		zap.Bool("cut", out.Cut != nil),
		zap.Duration("elapsed", time.Since(began)))
	return out, nil
}

// cut validates the requested range against the decoded length, slices the
// samples and encodes the clip into out.
func (p *Pipeline) cut(ctx context.Context, log *zap.Logger, pcm *audio.PCM, req Request, out *Outcome) error {
	r, err := audio.ParseRange(req.Start, req.End, out.Duration)
	if err != nil {
		return err
	}

	began := time.Now()
	clip, err := audio.Trim(pcm, r)
	p.metrics.RecordStage("trim", time.Since(began).Seconds())
	if err != nil {
		return err
	}

	d, err := p.export(ctx, log, clip, out.Target, CutName)
	if err != nil {
		return err
	}
	out.Range = r
	out.Cut = d
	log.Debug("clip encoded", zap.Stringer("range", r), zap.Int64("bytes", d.Size()))
	return nil
}

func (p *Pipeline) export(ctx context.Context, log *zap.Logger, pcm *audio.PCM, target media.Format, name string) (*result.Download, error) {
	began := time.Now()
	res, err := p.tc.Encode(ctx, pcm, target, name)
	p.metrics.RecordStage("encode", time.Since(began).Seconds())
	if err != nil {
		logDiagnostics(log, err)
		return nil, err
	}

	d, err := result.Materialize(res)
	if err != nil {
		return nil, err
	}
	p.metrics.RecordOutput(name, d.Size())
	return d, nil
}

// logDiagnostics records ffmpeg's stderr at debug level. It stays out of
// error messages shown to users.
func logDiagnostics(log *zap.Logger, err error) {
	var te *transcode.Error
	if errors.As(err, &te) && te.Diagnostics != "" {
		log.Debug("ffmpeg diagnostics", zap.String("op", te.Op), zap.String("stderr", te.Diagnostics))
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case errors.Is(err, transcode.ErrDecode):
		return metrics.OutcomeDecodeFailed
	case errors.Is(err, transcode.ErrEncode):
		return metrics.OutcomeEncodeFailed
	case errors.Is(err, audio.ErrInvalidRange), errors.Is(err, timespec.ErrTimeFormat):
		return metrics.OutcomeTrimFailed
	default:
		return metrics.OutcomeRejected
	}
}

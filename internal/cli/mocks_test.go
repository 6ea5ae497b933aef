package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alnah/go-audioconv/internal/audio"
	"github.com/alnah/go-audioconv/internal/config"
	"github.com/alnah/go-audioconv/internal/logger"
	"github.com/alnah/go-audioconv/internal/media"
	"github.com/alnah/go-audioconv/internal/transcode"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc func(ctx context.Context, configured string) (string, error)

	mu            sync.Mutex
	resolveCalls  int
	configured    string
	versionChecks int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context, configured string) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.configured = configured
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, configured)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, log *zap.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versionChecks++
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

func (m *mockFFmpegResolver) Configured() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock TranscoderFactory + Transcoder
// ---------------------------------------------------------------------------

// mockTranscoderFactory builds a real transcode.Service from the options so
// option validation (bitrate) behaves as in production, then hands out
// mockTranscoder for the actual work.
type mockTranscoderFactory struct {
	Transcoder *mockTranscoder

	mu         sync.Mutex
	calls      int
	ffmpegPath string
	bitrate    string
}

func (m *mockTranscoderFactory) NewTranscoder(ffmpegPath string, opts ...transcode.Option) (Transcoder, error) {
	svc, err := transcode.NewService(ffmpegPath, opts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.ffmpegPath = ffmpegPath
	m.bitrate = svc.Bitrate()

	if m.Transcoder == nil {
		m.Transcoder = &mockTranscoder{}
	}
	m.Transcoder.bitrate = m.bitrate
	return m.Transcoder, nil
}

func (m *mockTranscoderFactory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockTranscoderFactory) Bitrate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bitrate
}

// mockRate is the sample rate of decoded audio: 10s of mono at 1 kHz, so
// encoded output "<format>:<frames>" shows clip lengths in milliseconds.
const mockRate = 1000

type mockTranscoder struct {
	// FailDecode makes Decode fail for uploads whose name contains it.
	FailDecode string

	decodeCalls atomic.Int32
	encodeCalls atomic.Int32
	bitrate     string
}

func (m *mockTranscoder) Bitrate() string {
	return m.bitrate
}

func (m *mockTranscoder) Decode(ctx context.Context, blob media.Blob) (*audio.PCM, error) {
	m.decodeCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailDecode != "" && strings.Contains(blob.Name, m.FailDecode) {
		return nil, &transcode.Error{Op: transcode.OpDecode, Format: blob.Format, Err: errors.New("exit status 1"), Diagnostics: "Invalid data found"}
	}
	return &audio.PCM{Samples: make([]int16, 10*mockRate), SampleRate: mockRate, Channels: 1}, nil
}

func (m *mockTranscoder) Encode(ctx context.Context, pcm *audio.PCM, target media.Format, name string) (transcode.Result, error) {
	m.encodeCalls.Add(1)
	return transcode.Result{
		Data:     fmt.Appendf(nil, "%s:%d", target, pcm.Frames()),
		Format:   target,
		Filename: name + target.Ext(),
		MIME:     target.MIME(),
	}, nil
}

// ---------------------------------------------------------------------------
// Mock LoggerFactory
// ---------------------------------------------------------------------------

type mockLoggerFactory struct {
	mu   sync.Mutex
	cfg  logger.Config
	logs *observer.ObservedLogs
}

func (m *mockLoggerFactory) NewLogger(cfg logger.Config) (*zap.Logger, error) {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return nil, err
	}
	core, logs := observer.New(zapcore.DebugLevel)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	m.logs = logs
	return zap.New(core), nil
}

// Entries returns the log entries with the given message.
func (m *mockLoggerFactory) Entries(msg string) []observer.LoggedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logs == nil {
		return nil
	}
	return m.logs.FilterMessage(msg).All()
}

func (m *mockLoggerFactory) Config() logger.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Compile-time interface verification.
var (
	_ FFmpegResolver    = (*mockFFmpegResolver)(nil)
	_ ConfigLoader      = (*mockConfigLoader)(nil)
	_ TranscoderFactory = (*mockTranscoderFactory)(nil)
	_ Transcoder        = (*mockTranscoder)(nil)
	_ LoggerFactory     = (*mockLoggerFactory)(nil)
)

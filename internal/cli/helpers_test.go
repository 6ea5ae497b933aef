package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configLoader   *mockConfigLoader
	transcoder     *mockTranscoderFactory
	logger         *mockLoggerFactory
	stdout         *syncBuffer
	stderr         *syncBuffer
}

func newTestMocks() *testMocks {
	return &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configLoader:   &mockConfigLoader{},
		transcoder:     &mockTranscoderFactory{Transcoder: &mockTranscoder{}},
		logger:         &mockLoggerFactory{},
		stdout:         &syncBuffer{},
		stderr:         &syncBuffer{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv() (*Env, *testMocks) {
	mocks := newTestMocks()
	env := &Env{
		Stdout:            mocks.stdout,
		Stderr:            mocks.stderr,
		Getenv:            staticEnv(nil),
		Now:               fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		FFmpegResolver:    mocks.ffmpegResolver,
		ConfigLoader:      mocks.configLoader,
		TranscoderFactory: mocks.transcoder,
		LoggerFactory:     mocks.logger,
	}
	return env, mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// writeInput creates a file named name in dir with placeholder content.
func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("audio"), 0600); err != nil {
		t.Fatalf("failed to write input %s: %v", p, err)
	}
	return p
}

// readFile returns the content of p, failing the test if it is missing.
func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p) // #nosec G304 -- test file
	if err != nil {
		t.Fatalf("failed to read %s: %v", p, err)
	}
	return string(data)
}

// assertNotExists fails if p exists.
func assertNotExists(t *testing.T, p string) {
	t.Helper()
	if _, err := os.Stat(p); err == nil {
		t.Errorf("%s exists, want it absent", p)
	}
}

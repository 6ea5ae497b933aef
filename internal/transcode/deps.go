package transcode

import (
	"context"
	"io"
	"os"

	"github.com/alnah/go-audioconv/internal/ffmpeg"
)

// commandRunner runs ffmpeg with piped stdin and separately captured output.
type commandRunner interface {
	Run(ctx context.Context, ffmpegPath string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)
}

// tempDirCreator creates per-call workspaces.
type tempDirCreator interface {
	MkdirTemp(dir, pattern string) (string, error)
}

// workspaceFS reads, writes and removes workspace files.
type workspaceFS interface {
	WriteFile(name string, data []byte, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	RemoveAll(path string) error
}

// --- Default implementations using real OS functions ---

// Compile-time interface verification.
var (
	_ commandRunner  = (*ffmpeg.Executor)(nil)
	_ tempDirCreator = osTempDirCreator{}
	_ workspaceFS    = osWorkspaceFS{}
)

// osTempDirCreator implements tempDirCreator using os.MkdirTemp.
type osTempDirCreator struct{}

func (osTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

// osWorkspaceFS implements workspaceFS with the os package.
type osWorkspaceFS struct{}

func (osWorkspaceFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (osWorkspaceFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (osWorkspaceFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

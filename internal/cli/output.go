package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-audioconv/internal/media"
)

// outputPath derives the file written for one download of input.
// Example: ("rec/voice.amr", "", mp3, "converted") -> "rec/voice.converted.mp3"
// A non-empty dir replaces the input's directory.
func outputPath(input, dir string, target media.Format, kind string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+"."+kind+target.Ext())
}

// checkOutputFree fails with ErrOutputExists if path is taken.
func checkOutputFree(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w (use --force to overwrite)", path, ErrOutputExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot access output file: %w", err)
	}
	return nil
}

// writeFileAtomic writes src to path.
// Without force it fails if the file already exists (O_EXCL), preventing
// accidental overwrites. With force it writes a sibling temp file and
// renames it over path. On write failure, the partial file is removed.
func writeFileAtomic(path string, src io.WriterTo, force bool) error {
	if force {
		return replaceFile(path, src)
	}

	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	if err := writeAndClose(f, src); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func replaceFile(path string, src io.WriterTo) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".audioconv-*")
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}
	tmp := f.Name()

	if err := writeAndClose(f, src); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil { // #nosec G302 -- regular output file
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot set output permissions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot replace output file: %w", err)
	}
	return nil
}

func writeAndClose(f *os.File, src io.WriterTo) error {
	_, werr := src.WriteTo(f)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("failed to write output: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("failed to write output: %w", cerr)
	}
	return nil
}

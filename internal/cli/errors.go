package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrOutputConflict indicates two inputs of one run would write the
	// same output file.
	ErrOutputConflict = errors.New("inputs share an output file")

	// ErrNoInput indicates convert was called without readable inputs.
	ErrNoInput = errors.New("no input files")
)

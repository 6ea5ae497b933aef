package media

// Blob is an uploaded payload together with its format tag.
// It is owned by a single conversion request and must not be modified
// after construction.
type Blob struct {
	Name   string // Original filename, for logs and derived output names.
	Format Format
	Data   []byte
}

// Size returns the payload length in bytes.
func (b Blob) Size() int {
	return len(b.Data)
}

// Empty reports whether the payload has no bytes.
func (b Blob) Empty() bool {
	return len(b.Data) == 0
}

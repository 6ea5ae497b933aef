package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// wavHeader is the canonical 44-byte header of a PCM WAV file.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

const (
	wavHeaderSize    = 44
	bitsPerSample    = 16
	bytesPerSample   = bitsPerSample / 8
	formatPCM        = 1
	formatExtensible = 0xFFFE

	// unknownSize is written by encoders that cannot seek back to patch sizes,
	// e.g. FFmpeg writing to a pipe.
	unknownSize = 0xFFFFFFFF
)

// WriteWAV writes p to w as a 16-bit PCM WAV stream.
func WriteWAV(w io.Writer, p *PCM) error {
	if err := p.validate(); err != nil {
		return err
	}

	dataSize := uint64(len(p.Samples)) * bytesPerSample
	if dataSize > unknownSize-36 {
		return fmt.Errorf("%w: %d bytes of samples exceed the WAV size limit", ErrInvalidAudio, dataSize)
	}

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + uint32(dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   uint16(p.Channels),
		SampleRate:    uint32(p.SampleRate),
		ByteRate:      uint32(p.SampleRate) * uint32(p.Channels) * bytesPerSample,
		BlockAlign:    uint16(p.Channels) * bytesPerSample,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, p.Samples); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return nil
}

// EncodeWAV returns p as a 16-bit PCM WAV file.
func EncodeWAV(p *PCM) ([]byte, error) {
	var buf bytes.Buffer
	if p != nil {
		buf.Grow(wavHeaderSize + len(p.Samples)*bytesPerSample)
	}
	if err := WriteWAV(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWAV parses a 16-bit PCM WAV file.
//
// Unlike a fixed 44-byte header read, it walks the RIFF chunk list so that
// LIST/fact chunks before "data" are skipped, and it accepts placeholder
// sizes (0 or 0xFFFFFFFF) left by encoders writing to a non-seekable
// stream: the data chunk then extends to the end of the input. A trailing
// partial frame is dropped.
func DecodeWAV(data []byte) (*PCM, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: need at least 12 bytes, got %d", ErrInvalidWAV, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("%w: missing RIFF header", ErrInvalidWAV)
	}
	if string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing WAVE format", ErrInvalidWAV)
	}

	var (
		channels, bits uint16
		sampleRate     uint32
		haveFmt        bool
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return nil, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			if audioFormat != formatPCM && audioFormat != formatExtensible {
				return nil, fmt.Errorf("%w: unsupported audio format %d (only PCM is supported)", ErrInvalidWAV, audioFormat)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			end := len(data)
			if size != 0 && size != unknownSize && uint64(body)+uint64(size) <= uint64(len(data)) {
				end = body + int(size)
			}
			return buildPCM(data[body:end], channels, sampleRate, bits)
		}

		if size == unknownSize {
			break
		}
		next := uint64(body) + uint64(size) + uint64(size&1) // chunks are word aligned
		if next > uint64(len(data)) {
			break
		}
		off = int(next)
	}

	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrInvalidWAV)
	}
	return nil, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
}

// buildPCM converts raw little-endian sample bytes into a PCM value.
func buildPCM(raw []byte, channels uint16, sampleRate uint32, bits uint16) (*PCM, error) {
	if bits != bitsPerSample {
		return nil, fmt.Errorf("%w: unsupported bit depth %d (only 16-bit is supported)", ErrInvalidWAV, bits)
	}
	if channels == 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrInvalidWAV)
	}
	if sampleRate == 0 {
		return nil, fmt.Errorf("%w: invalid sample rate 0", ErrInvalidWAV)
	}

	frameSize := int(channels) * bytesPerSample
	n := len(raw) / frameSize * int(channels)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*bytesPerSample:]))
	}

	return &PCM{
		Samples:    samples,
		SampleRate: int(sampleRate),
		Channels:   int(channels),
	}, nil
}

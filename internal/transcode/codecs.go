package transcode

import (
	"fmt"

	"github.com/alnah/go-audioconv/internal/media"
)

// amrBitrate is the highest AMR-NB mode. The encoder rejects anything else
// we could reasonably pass through, so AMR ignores the configured bitrate.
const amrBitrate = "12.2k"

// codec describes how ffmpeg reads and writes one format tag.
type codec struct {
	demuxer string   // -f value when reading
	muxer   string   // -f value when writing
	encoder string   // -c:a value when writing
	lossy   bool     // takes -b:a
	extra   []string // encoder constraints placed before -b:a
}

// codecs maps every known tag to ffmpeg names. Demuxers are always named
// explicitly: AMR and raw AAC cannot be probed reliably from their bytes.
var codecs = map[media.Format]codec{
	media.AMR: {
		demuxer: "amr", muxer: "amr", encoder: "libopencore_amrnb", lossy: true,
		extra: []string{"-ar", "8000", "-ac", "1"},
	},
	media.MP3:  {demuxer: "mp3", muxer: "mp3", encoder: "libmp3lame", lossy: true},
	media.WAV:  {demuxer: "wav", muxer: "wav", encoder: "pcm_s16le"},
	media.FLAC: {demuxer: "flac", muxer: "flac", encoder: "flac"},
	media.OGG:  {demuxer: "ogg", muxer: "ogg", encoder: "libvorbis", lossy: true},
	media.AAC:  {demuxer: "aac", muxer: "adts", encoder: "aac", lossy: true},
	media.M4A:  {demuxer: "mov", muxer: "ipod", encoder: "aac", lossy: true},
	media.WMA:  {demuxer: "asf", muxer: "asf", encoder: "wmav2", lossy: true},
}

// Lossy reports whether encoding to f applies a bitrate.
func Lossy(f media.Format) bool {
	return codecs[f].lossy
}

func lookupCodec(f media.Format) (codec, error) {
	c, ok := codecs[f]
	if !ok {
		return codec{}, fmt.Errorf("%w: no ffmpeg codec for %q", media.ErrUnsupportedFormat, f)
	}
	return c, nil
}

// decodeArgs reads input with the demuxer named by the tag and writes
// 16-bit PCM WAV to stdout.
func decodeArgs(c codec, input string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-f", c.demuxer,
		"-i", input,
		"-vn",
		"-map_metadata", "-1",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"pipe:1",
	}
}

// encodeArgs reads WAV from stdin and writes the target container to output.
func encodeArgs(c codec, bitrate, output string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "wav",
		"-i", "pipe:0",
		"-vn",
	}
	args = append(args, c.extra...)
	args = append(args, "-c:a", c.encoder)
	if c.lossy {
		if c.muxer == "amr" {
			bitrate = amrBitrate
		}
		args = append(args, "-b:a", bitrate)
	}
	return append(args, "-f", c.muxer, "-y", output)
}

package transcode

// Notes:
// - White-box tests for the argument tables; ffmpeg is never run here
// - Flag order matters to ffmpeg: -f before -i names the input format

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/alnah/go-audioconv/internal/media"
)

func TestCodecs_CoverEveryKnownFormat(t *testing.T) {
	t.Parallel()

	for _, f := range media.DefaultFormats().List() {
		if _, err := lookupCodec(f); err != nil {
			t.Errorf("lookupCodec(%q) error = %v, want codec", f, err)
		}
	}
}

func TestLookupCodec_Unknown(t *testing.T) {
	t.Parallel()

	_, err := lookupCodec(media.Format("xyz"))
	if !errors.Is(err, media.ErrUnsupportedFormat) {
		t.Errorf("lookupCodec(xyz) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDecodeArgs_NamesDemuxerBeforeInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  media.Format
		demuxer string
	}{
		{media.AMR, "amr"},
		{media.MP3, "mp3"},
		{media.WAV, "wav"},
		{media.FLAC, "flac"},
		{media.OGG, "ogg"},
		{media.AAC, "aac"},
		{media.M4A, "mov"},
		{media.WMA, "asf"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			args := decodeArgs(codecs[tt.format], "/tmp/in"+tt.format.Ext())
			in := slices.Index(args, "-i")
			if in < 2 || args[in-2] != "-f" || args[in-1] != tt.demuxer {
				t.Errorf("decodeArgs(%s) = %v, want -f %s immediately before -i", tt.format, args, tt.demuxer)
			}
			if args[in+1] != "/tmp/in"+tt.format.Ext() {
				t.Errorf("decodeArgs(%s) input = %q", tt.format, args[in+1])
			}
			tail := strings.Join(args[len(args)-5:], " ")
			if tail != "-c:a pcm_s16le -f wav pipe:1" {
				t.Errorf("decodeArgs(%s) output = %q, want 16-bit WAV on stdout", tt.format, tail)
			}
		})
	}
}

func TestEncodeArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format      media.Format
		bitrate     string
		wantEncoder string
		wantMuxer   string
		wantBitrate string // empty means no -b:a
	}{
		{media.MP3, "192k", "libmp3lame", "mp3", "192k"},
		{media.MP3, "128k", "libmp3lame", "mp3", "128k"},
		{media.WAV, "192k", "pcm_s16le", "wav", ""},
		{media.FLAC, "192k", "flac", "flac", ""},
		{media.OGG, "192k", "libvorbis", "ogg", "192k"},
		{media.AAC, "192k", "aac", "adts", "192k"},
		{media.M4A, "256k", "aac", "ipod", "256k"},
		{media.WMA, "192k", "wmav2", "asf", "192k"},
		{media.AMR, "320k", "libopencore_amrnb", "amr", "12.2k"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format)+"_"+tt.bitrate, func(t *testing.T) {
			t.Parallel()

			args := encodeArgs(codecs[tt.format], tt.bitrate, "/tmp/out"+tt.format.Ext())

			if got := valueAfter(args, "-c:a"); got != tt.wantEncoder {
				t.Errorf("encoder = %q, want %q (args %v)", got, tt.wantEncoder, args)
			}
			if got := valueAfter(args, "-b:a"); got != tt.wantBitrate {
				t.Errorf("bitrate = %q, want %q (args %v)", got, tt.wantBitrate, args)
			}
			if got := strings.Join(args[:7], " "); got != "-hide_banner -loglevel error -f wav -i pipe:0" {
				t.Errorf("input args = %q, want WAV from stdin", got)
			}
			n := len(args)
			if args[n-4] != "-f" || args[n-3] != tt.wantMuxer || args[n-2] != "-y" || args[n-1] != "/tmp/out"+tt.format.Ext() {
				t.Errorf("output args = %v, want -f %s -y <output>", args[n-4:], tt.wantMuxer)
			}
		})
	}
}

func TestEncodeArgs_AMRIsNarrowbandMono(t *testing.T) {
	t.Parallel()

	args := encodeArgs(codecs[media.AMR], "192k", "/tmp/out.amr")
	if valueAfter(args, "-ar") != "8000" || valueAfter(args, "-ac") != "1" {
		t.Errorf("encodeArgs(amr) = %v, want -ar 8000 -ac 1", args)
	}
}

func TestLossy(t *testing.T) {
	t.Parallel()

	lossless := map[media.Format]bool{media.WAV: true, media.FLAC: true}
	for _, f := range media.DefaultFormats().List() {
		if got, want := Lossy(f), !lossless[f]; got != want {
			t.Errorf("Lossy(%q) = %v, want %v", f, got, want)
		}
	}
	if Lossy(media.Format("xyz")) {
		t.Error("Lossy(xyz) = true, want false")
	}
}

// valueAfter returns the argument following the first occurrence of flag.
func valueAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

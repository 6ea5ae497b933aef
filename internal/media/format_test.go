package media

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// FormatSet.Validate - filename extension is the source of truth
// ---------------------------------------------------------------------------

func TestFormatSet_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		mime     string
		want     Format
		wantErr  bool
	}{
		{name: "amr with octet-stream mime", filename: "song.amr", mime: "application/octet-stream", want: AMR},
		{name: "mp3", filename: "song.mp3", mime: "audio/mpeg", want: MP3},
		{name: "upper-case extension", filename: "VOICE.WAV", mime: "", want: WAV},
		{name: "mixed case", filename: "track.FlAc", mime: "audio/flac", want: FLAC},
		{name: "path with dirs", filename: "/tmp/uploads/clip.m4a", mime: "", want: M4A},
		{name: "multiple dots", filename: "my.song.v2.ogg", mime: "", want: OGG},
		{name: "mime disagrees with extension", filename: "memo.wma", mime: "audio/mpeg", want: WMA},
		{name: "unknown extension", filename: "song.xyz", mime: "audio/mpeg", wantErr: true},
		{name: "no extension", filename: "song", mime: "audio/mpeg", wantErr: true},
		{name: "empty filename", filename: "", mime: "", wantErr: true},
		{name: "trailing dot", filename: "song.", mime: "", wantErr: true},
	}

	set := DefaultFormats()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := set.Validate(tt.filename, tt.mime)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("Validate(%q, %q) error = %v, want ErrUnsupportedFormat", tt.filename, tt.mime, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%q, %q) unexpected error: %v", tt.filename, tt.mime, err)
			}
			if got != tt.want {
				t.Errorf("Validate(%q, %q) = %q, want %q", tt.filename, tt.mime, got, tt.want)
			}
		})
	}
}

func TestFormatSet_Validate_ErrorNamesSupportedFormats(t *testing.T) {
	t.Parallel()

	_, err := DefaultFormats().Validate("song.xyz", "application/octet-stream")
	if err == nil {
		t.Fatal("Validate(song.xyz) error = nil, want error")
	}
	for _, want := range []string{`"xyz"`, "amr", "wma"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate(song.xyz) error = %q, want containing %q", err.Error(), want)
		}
	}
}

func TestFormatSet_Validate_RestrictedSet(t *testing.T) {
	t.Parallel()

	set, err := NewFormatSet("mp3", "wav")
	if err != nil {
		t.Fatalf("NewFormatSet() unexpected error: %v", err)
	}

	if _, err := set.Validate("song.amr", ""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Validate(song.amr) error = %v, want ErrUnsupportedFormat", err)
	}
	if got, err := set.Validate("song.wav", ""); err != nil || got != WAV {
		t.Errorf("Validate(song.wav) = %q, %v, want %q, nil", got, err, WAV)
	}
}

// ---------------------------------------------------------------------------
// NewFormatSet / Parse
// ---------------------------------------------------------------------------

func TestNewFormatSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tags    []string
		want    string
		wantErr bool
	}{
		{name: "empty yields default", tags: nil, want: "amr, mp3, wav, flac, ogg, aac, m4a, wma"},
		{name: "normalizes case and dots", tags: []string{".MP3", "Wav"}, want: "mp3, wav"},
		{name: "drops duplicates", tags: []string{"mp3", "MP3", ".mp3"}, want: "mp3"},
		{name: "rejects unknown", tags: []string{"mp3", "opus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			set, err := NewFormatSet(tt.tags...)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("NewFormatSet(%v) error = %v, want ErrUnsupportedFormat", tt.tags, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFormatSet(%v) unexpected error: %v", tt.tags, err)
			}
			if got := set.String(); got != tt.want {
				t.Errorf("NewFormatSet(%v) = %q, want %q", tt.tags, got, tt.want)
			}
		})
	}
}

func TestFormatSet_Parse(t *testing.T) {
	t.Parallel()

	set := DefaultFormats()

	if got, err := set.Parse(" MP3 "); err != nil || got != MP3 {
		t.Errorf("Parse(%q) = %q, %v, want %q, nil", " MP3 ", got, err, MP3)
	}
	if _, err := set.Parse(""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Parse(%q) error = %v, want ErrUnsupportedFormat", "", err)
	}
	if _, err := set.Parse("opus"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Parse(%q) error = %v, want ErrUnsupportedFormat", "opus", err)
	}
}

func TestFormatSet_ListIsCopy(t *testing.T) {
	t.Parallel()

	set := DefaultFormats()
	list := set.List()
	list[0] = "opus"

	if !set.Contains(AMR) {
		t.Error("mutating List() result changed the set")
	}
}

// ---------------------------------------------------------------------------
// Format helpers
// ---------------------------------------------------------------------------

func TestFormat_MIME(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		want   string
	}{
		{MP3, "audio/mpeg"},
		{AMR, "audio/amr"},
		{M4A, "audio/mp4"},
		{WAV, "audio/wav"},
		{Format("opus"), "audio/opus"},
	}

	for _, tt := range tests {
		if got := tt.format.MIME(); got != tt.want {
			t.Errorf("Format(%q).MIME() = %q, want %q", tt.format, got, tt.want)
		}
		if !strings.HasPrefix(tt.format.MIME(), "audio/") {
			t.Errorf("Format(%q).MIME() = %q, want audio/ prefix", tt.format, tt.format.MIME())
		}
	}
}

func TestFormat_Ext(t *testing.T) {
	t.Parallel()

	if got := OGG.Ext(); got != ".ogg" {
		t.Errorf("OGG.Ext() = %q, want %q", got, ".ogg")
	}
}

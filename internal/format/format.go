// Package format renders durations and sizes for humans.
package format

import (
	"fmt"
	"time"
)

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Timestamp formats an offset as HH:MM:SS.mmm, the same shape users type
// for start and end times. Negative offsets keep their sign.
func Timestamp(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	ms := d.Round(time.Millisecond).Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, h, m, s, ms%1000)
}

// Size formats a size in bytes for human display, with one truncated
// decimal above a kilobyte: "512 bytes", "1.5 KB", "3 MB".
func Size(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case bytes >= mb:
		return scaled(bytes, mb, "MB")
	case bytes >= kb:
		return scaled(bytes, kb, "KB")
	case bytes == 1:
		return "1 byte"
	}
	return fmt.Sprintf("%d bytes", bytes)
}

func scaled(n, unit int64, suffix string) string {
	tenths := n/unit*10 + n%unit*10/unit
	if tenths%10 == 0 {
		return fmt.Sprintf("%d %s", tenths/10, suffix)
	}
	return fmt.Sprintf("%d.%d %s", tenths/10, tenths%10, suffix)
}

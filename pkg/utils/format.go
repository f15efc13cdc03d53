package utils

import (
	"fmt"
	"time"
)

const (
	kib = 1024
	mib = kib * 1024
	gib = mib * 1024
)

// FormatSize renders a byte count with a binary unit and two decimals, e.g. "1.50 KB".
// Counts under 1 KiB are printed as whole bytes.
func FormatSize(bytes int64) string {
	switch {
	case bytes < kib:
		return fmt.Sprintf("%d B", bytes)
	case bytes < mib:
		return fmt.Sprintf("%.2f KB", float64(bytes)/kib)
	case bytes < gib:
		return fmt.Sprintf("%.2f MB", float64(bytes)/mib)
	default:
		return fmt.Sprintf("%.2f GB", float64(bytes)/gib)
	}
}

// FormatDuration prints short durations in milliseconds and longer ones in seconds.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 800 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%gs", float64(ms)/1000)
}

// Package util holds small helpers shared by every layer.
package util

import (
	"fmt"
	"time"
)

// FormatBytes formats bytes into human readable format.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	const units = "KMGTPEZY"
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < len(units)-1; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), units[exp])
}

var relativeUnits = []struct {
	size   time.Duration
	suffix string
}{
	{size: 7 * 24 * time.Hour, suffix: "w"},
	{size: 24 * time.Hour, suffix: "d"},
	{size: time.Hour, suffix: "h"},
	{size: time.Minute, suffix: "m"},
}

// RelativeTime renders how long ago t was, in the single largest whole unit
// (e.g. "45s", "3m", "2h", "4d", "1w"). Times after now render as "0s".
func RelativeTime(t, now time.Time) string {
	elapsed := now.Sub(t)
	if elapsed < 0 {
		elapsed = 0
	}

	for _, u := range relativeUnits {
		if elapsed >= u.size {
			return fmt.Sprintf("%d%s", elapsed/u.size, u.suffix)
		}
	}

	return fmt.Sprintf("%ds", elapsed/time.Second)
}

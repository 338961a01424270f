package utils

import (
	"fmt"
	"time"
)

// FormatAge renders how long ago t was, e.g. "12s ago" or "3h ago"
func FormatAge(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	elapsed := now.Sub(t)
	switch {
	case elapsed < 0:
		return "just now"
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds ago", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours()/24))
	}
}

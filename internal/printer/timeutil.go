package printer

import (
	"fmt"
	"time"
)

var timeAgoUnits = []struct {
	size time.Duration
	name string
}{
	{size: 24 * time.Hour, name: "day"},
	{size: time.Hour, name: "hour"},
	{size: time.Minute, name: "minute"},
	{size: time.Second, name: "second"},
}

// TimeAgo returns a human-readable relative time string in UTC.
// Examples: "5 seconds ago (UTC)", "2 minutes ago (UTC)", "3 hours ago (UTC)".
func TimeAgo(t time.Time) string {
	diff := time.Now().UTC().Sub(t.UTC())
	if diff < 0 {
		return "in the future (UTC)"
	}

	for _, u := range timeAgoUnits {
		if diff < u.size && u.size != time.Second {
			continue
		}
		n := int(diff / u.size)
		if n == 1 {
			return fmt.Sprintf("1 %s ago (UTC)", u.name)
		}
		return fmt.Sprintf("%d %ss ago (UTC)", n, u.name)
	}

	return "just now (UTC)"
}

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatDurationMS returns a rounded human-readable duration from milliseconds.
// Examples: "850ms", "1.5s", "2m3s".
func FormatDurationMS(ms float64) string {
	d := time.Duration(ms * float64(time.Millisecond))
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

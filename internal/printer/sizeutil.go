package printer

import "fmt"

var byteUnits = []struct {
	size int64
	name string
}{
	{size: 1 << 40, name: "TB"},
	{size: 1 << 30, name: "GB"},
	{size: 1 << 20, name: "MB"},
	{size: 1 << 10, name: "KB"},
}

// FormatBytes returns a human-readable byte size string.
// Examples: "0 B", "512 B", "1.5 KB", "700.0 MB", "10.0 GB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}

	for _, u := range byteUnits {
		if bytes >= u.size {
			return fmt.Sprintf("%.1f %s", float64(bytes)/float64(u.size), u.name)
		}
	}

	return fmt.Sprintf("%d B", bytes)
}

// FormatUsageGB returns a used/total gigabytes string with the usage percentage.
// Example: "7.5/16.0 GB (46.9%)".
func FormatUsageGB(used, total, percent float64) string {
	return fmt.Sprintf("%.1f/%.1f GB (%.1f%%)", used, total, percent)
}

package printer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const progressBarWidth = 30

// ProgressBar renders a fixed width text progress bar, the percent is clamped to 0-100.
// Example: "[#########---------------------]  30%".
func ProgressBar(percent int) string {
	percent = min(max(percent, 0), 100)
	filled := progressBarWidth * percent / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat("-", progressBarWidth-filled), percent)
}

// Truncate collapses whitespace and shortens a text to max runes, ending with "..." when cut.
func Truncate(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxRunes <= 3 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes-3]) + "..."
}

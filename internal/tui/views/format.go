package views

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ltavares/courier/internal/gateway"
)

// formatWhen renders a message timestamp for display. The optimistic
// sentinel renders as-is; anything unparseable falls back to the raw value.
func formatWhen(sentDate string) string {
	if sentDate == "" {
		return ""
	}
	if sentDate == gateway.SentNow {
		return "now"
	}
	t, err := time.Parse(time.RFC3339, sentDate)
	if err != nil {
		return sentDate
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Local().Format("15:04")
	}
	return t.Local().Format("01/02")
}

// sanitizeForTerminal strips codepoints that break cell-width accounting
// in tcell: skin tone modifiers, zero width joiners, variation selectors.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

package htmlutil

import (
	"strings"

	"github.com/k3a/html2text"
)

// ToText converts HTML to plain text, decoding entities and dropping tags.
func ToText(s string) string {
	return html2text.HTML2Text(s)
}

// ErrorSummary turns an upstream error page into a single line of at most
// max runes, suitable for wrapping in an error message.
func ErrorSummary(body []byte, max int) string {
	text := strings.Join(strings.Fields(ToText(string(body))), " ")
	if r := []rune(text); max > 0 && len(r) > max {
		return string(r[:max]) + "..."
	}
	return text
}

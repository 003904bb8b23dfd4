package notifier

import (
	"strings"

	"notifyrelay/internal/parser"
)

// Render builds the plain-text chat message for r.
func Render(title string, r parser.Record) string {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	var b strings.Builder
	b.Grow(len(title) + len(r.Sender) + len(r.Subject) + 20)
	b.WriteString(title)
	b.WriteString("\n\nFrom: ")
	b.WriteString(r.Sender)
	b.WriteString("\nSubject: ")
	b.WriteString(r.Subject)
	return b.String()
}

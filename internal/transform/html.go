package transform

import (
	"fmt"
	"html"
)

// wrap escapes text and wraps it in a paragraph.
func wrap(text string) string {
	return "<p>" + html.EscapeString(text) + "</p>"
}

// paragraph renders a labelled paragraph.
func paragraph(label, text string) string {
	return fmt.Sprintf("<p><strong>%s:</strong> %s</p>", label, html.EscapeString(text))
}

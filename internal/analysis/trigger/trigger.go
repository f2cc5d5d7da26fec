// Package trigger parses the structured side-effect markers the language
// model embeds in its output. Parsing is deliberately separate from state
// mutation so the marker convention can be tested on its own.
package trigger

import "strings"

// Marker prefix the model emits when a response fulfilled a motivation,
// e.g. "<applied to motivation: a warm meal> Well now, that smells good."
const motivationPrefix = "<applied to motivation:"

// Marker is a parsed side-effect tag.
type Marker struct {
	Motivation string
}

// Parse scans raw for a leading motivation marker. It returns the text with
// the marker stripped and the marker itself when one was found. Malformed
// tags (no closing bracket, empty label) are treated as plain text: ok is
// false and cleaned equals raw.
func Parse(raw string) (cleaned string, m Marker, ok bool) {
	trimmed := strings.TrimLeft(raw, " \t\r\n")
	if !strings.HasPrefix(trimmed, motivationPrefix) {
		return raw, Marker{}, false
	}

	rest := trimmed[len(motivationPrefix):]
	end := strings.Index(rest, ">")
	if end < 0 {
		return raw, Marker{}, false
	}

	label := strings.TrimSpace(rest[:end])
	if label == "" {
		return raw, Marker{}, false
	}

	cleaned = strings.TrimLeft(rest[end+1:], " \t\r\n")
	return cleaned, Marker{Motivation: label}, true
}

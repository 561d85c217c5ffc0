package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FormatSSE renders an event as a server-sent-events frame: an `event:`
// line, a `data:` line carrying the JSON envelope, and a blank terminator.
// Suitable for a browser EventSource or any line-oriented reader.
func FormatSSE(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SSE data: %w", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", e.Type)
	fmt.Fprintf(&buf, "data: %s\n\n", data)
	return buf.Bytes(), nil
}

// FormatSSEComment renders a non-data keepalive comment frame.
func FormatSSEComment(text string) []byte {
	// Comments must stay single-line to keep the framing valid.
	text = strings.ReplaceAll(text, "\n", " ")
	return []byte(": " + text + "\n\n")
}

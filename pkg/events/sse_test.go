package events

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSSE(t *testing.T) {
	evt := Event{
		Seq:       3,
		Type:      TypeStepUpdate,
		Timestamp: "2026-01-02T03:04:05Z",
		SessionID: "s1",
		MessageID: "m1",
		Payload:   json.RawMessage(`{"step":2,"status":"running"}`),
	}

	frame, err := FormatSSE(evt)
	require.NoError(t, err)

	lines := strings.Split(string(frame), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "event: step_update", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "data: "), "second line must be the data line")
	assert.Empty(t, lines[2])
	assert.Empty(t, lines[3])

	// The data line must round-trip to the same envelope.
	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &decoded))
	assert.Equal(t, evt.Seq, decoded.Seq)
	assert.Equal(t, evt.MessageID, decoded.MessageID)
	assert.JSONEq(t, string(evt.Payload), string(decoded.Payload))
}

func TestFormatSSEComment(t *testing.T) {
	assert.Equal(t, ": ping\n\n", string(FormatSSEComment("ping")))
	// Newlines in the comment must not break the framing.
	assert.Equal(t, ": a b\n\n", string(FormatSSEComment("a\nb")))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(TypeAnalysisComplete))
	assert.True(t, IsTerminal(TypeError))
	assert.False(t, IsTerminal(TypeHeartbeat))
	assert.False(t, IsTerminal(TypeReportChunk))
}

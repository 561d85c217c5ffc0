package intent

import "strings"

const fenceMarker = "```"

// fenceSplitter separates the narration phase of a classifier stream from
// the fenced JSON tail. Narration is forwarded through the callback as it
// arrives; once the opening fence is seen, everything accumulates into the
// JSON buffer and the callback goes silent. Deltas may split the fence
// marker at any point, so a short tail is held back from forwarding until
// it can be ruled out as a fence prefix.
type fenceSplitter struct {
	onNarration func(string)

	narration strings.Builder
	jsonBuf   strings.Builder
	pending   string
	inJSON    bool
	closed    bool
}

func newFenceSplitter(onNarration func(string)) *fenceSplitter {
	return &fenceSplitter{onNarration: onNarration}
}

// feed consumes one stream delta.
func (f *fenceSplitter) feed(delta string) {
	if f.closed {
		return
	}
	if f.inJSON {
		f.appendJSON(delta)
		return
	}

	f.pending += delta
	if idx := strings.Index(f.pending, fenceMarker); idx >= 0 {
		f.emitNarration(f.pending[:idx])
		rest := f.pending[idx+len(fenceMarker):]
		f.pending = ""
		f.inJSON = true
		// The opening fence may carry a language tag.
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "\n")
		f.appendJSON(rest)
		return
	}

	// Hold back any suffix that could be the start of a split fence.
	hold := fencePrefixLen(f.pending)
	cut := len(f.pending) - hold
	f.emitNarration(f.pending[:cut])
	f.pending = f.pending[cut:]
}

// appendJSON accumulates payload text, stopping at the closing fence.
func (f *fenceSplitter) appendJSON(s string) {
	f.jsonBuf.WriteString(s)
	if idx := strings.Index(f.jsonBuf.String(), fenceMarker); idx >= 0 {
		trimmed := f.jsonBuf.String()[:idx]
		f.jsonBuf.Reset()
		f.jsonBuf.WriteString(trimmed)
		f.closed = true
	}
}

// finish flushes held-back narration and returns both halves.
func (f *fenceSplitter) finish() (narration, jsonText string) {
	if !f.inJSON && f.pending != "" {
		f.emitNarration(f.pending)
		f.pending = ""
	}
	return f.narration.String(), strings.TrimSpace(f.jsonBuf.String())
}

func (f *fenceSplitter) emitNarration(s string) {
	if s == "" {
		return
	}
	f.narration.WriteString(s)
	if f.onNarration != nil {
		f.onNarration(s)
	}
}

// fencePrefixLen returns the length of the longest suffix of s that is a
// proper prefix of the fence marker.
func fencePrefixLen(s string) int {
	for n := len(fenceMarker) - 1; n > 0; n-- {
		if strings.HasSuffix(s, fenceMarker[:n]) {
			return n
		}
	}
	return 0
}

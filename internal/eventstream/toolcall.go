package eventstream

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/kiro-gateway/gateway/internal/converter"
)

const bracketCallPrefix = "[Called "

// toolCallRecovery recovers tool calls that the model emitted inline as
// plain content text in the bracket form "[Called <name> with args:
// {...}]", rather than as structured {"name":...}/{"input":...} fragments
// (§4.5). Across Feed calls it buffers a tail that could be the start of the
// marker, so the marker isn't missed when split across chunk boundaries, and,
// once the marker is seen, everything from it on until the call is complete.
type toolCallRecovery struct {
	pending string
}

// Feed appends text and returns the plain content text safe to emit now,
// plus any tool calls fully recovered from bracket form.
func (r *toolCallRecovery) Feed(text string) (string, []converter.CanonicalToolCall) {
	r.pending += text

	var emitted strings.Builder
	var calls []converter.CanonicalToolCall

	for {
		idx := strings.Index(r.pending, bracketCallPrefix)
		if idx < 0 {
			safeLen := safeFlushLength(r.pending, bracketCallPrefix)
			emitted.WriteString(r.pending[:safeLen])
			r.pending = r.pending[safeLen:]
			break
		}

		emitted.WriteString(r.pending[:idx])
		rest := r.pending[idx:]

		end, name, args, ok := parseBracketCall(rest)
		if !ok {
			r.pending = rest
			break
		}

		calls = append(calls, converter.CanonicalToolCall{Name: name, Arguments: args})
		r.pending = rest[end:]
	}

	return emitted.String(), calls
}

// safeFlushLength returns how many leading bytes of buf are guaranteed not
// to be the start of marker, so they're safe to emit as plain content now.
// Only the tail (at most len(marker)-1 bytes) is ever held back.
func safeFlushLength(buf, marker string) int {
	maxTail := len(marker) - 1
	if maxTail > len(buf) {
		maxTail = len(buf)
	}
	for tailLen := maxTail; tailLen > 0; tailLen-- {
		tail := buf[len(buf)-tailLen:]
		if strings.HasPrefix(marker, tail) {
			return len(buf) - tailLen
		}
	}
	return len(buf)
}

// parseBracketCall parses "[Called <name> with args: {...}]..." starting at
// s[0]. ok is false if the braces haven't balanced yet (wait for more data).
func parseBracketCall(s string) (end int, name string, args string, ok bool) {
	const sep = " with args: "
	rest := s[len(bracketCallPrefix):]

	sepIdx := strings.Index(rest, sep)
	if sepIdx < 0 {
		return 0, "", "", false
	}
	name = rest[:sepIdx]
	afterSep := rest[sepIdx+len(sep):]
	if afterSep == "" || afterSep[0] != '{' {
		return 0, "", "", false
	}

	braceEnd, complete := matchBraces(afterSep)
	if !complete {
		return 0, "", "", false
	}
	if braceEnd >= len(afterSep) || afterSep[braceEnd] != ']' {
		return 0, "", "", false
	}

	args = afterSep[:braceEnd]
	totalConsumed := len(bracketCallPrefix) + sepIdx + len(sep) + braceEnd + 1
	return totalConsumed, name, args, true
}

func jsonMarshalArgs(m map[string]interface{}) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := sonic.ConfigStd.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DedupeToolCalls applies the two-stage deduplication of §4.5: first, calls
// sharing an id collapse to the one with the longer Arguments string; then
// calls sharing (name, arguments) exactly collapse to one.
func DedupeToolCalls(calls []converter.CanonicalToolCall) []converter.CanonicalToolCall {
	byID := make(map[string]converter.CanonicalToolCall, len(calls))
	order := make([]string, 0, len(calls))
	for _, c := range calls {
		key := c.ID
		if key == "" {
			key = "unindexed:" + c.Name + ":" + c.Arguments
		}
		if existing, ok := byID[key]; ok {
			if len(c.Arguments) > len(existing.Arguments) {
				byID[key] = c
			}
			continue
		}
		byID[key] = c
		order = append(order, key)
	}

	seen := make(map[string]bool, len(order))
	out := make([]converter.CanonicalToolCall, 0, len(order))
	for _, key := range order {
		c := byID[key]
		dedupeKey := c.Name + "\x00" + c.Arguments
		if seen[dedupeKey] {
			continue
		}
		seen[dedupeKey] = true
		out = append(out, c)
	}
	return out
}

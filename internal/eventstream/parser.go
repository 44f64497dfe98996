package eventstream

import (
	"strings"

	"github.com/google/uuid"
	"github.com/kiro-gateway/gateway/internal/converter"
	"github.com/kiro-gateway/gateway/internal/jsonrepair"
	"github.com/kiro-gateway/gateway/internal/logging"
)

// Parser is the Event Stream Parser (ESP, §4.5). Feed raw upstream bytes as
// they arrive; each call returns the neutral events that became available.
// Feed/Close are not safe for concurrent use — callers own one Parser per
// in-flight request.
type Parser struct {
	scanner  Scanner
	recovery toolCallRecovery

	pendingID   string
	pendingName string
	pendingText strings.Builder        // raw string "input" fragments, concatenated
	pendingObj  map[string]interface{} // object-shaped "input" fragments, deep-merged
	hasPending  bool

	errorCount int
}

// NewParser creates an ESP instance for one request.
func NewParser() *Parser {
	return &Parser{}
}

// Feed scans newly-arrived bytes and returns the events they complete.
func (p *Parser) Feed(data []byte) []Event {
	var events []Event
	for _, tok := range p.scanner.Feed(data) {
		events = append(events, p.handleToken(tok)...)
	}
	return events
}

// Close flushes any trailing buffered text and finalizes an in-progress tool
// call that never saw an explicit {"stop":true}.
func (p *Parser) Close() []Event {
	var events []Event
	for _, tok := range p.scanner.Close() {
		events = append(events, p.handleToken(tok)...)
	}
	if tail := p.recovery.pending; tail != "" {
		p.recovery.pending = ""
		events = append(events, Event{Kind: EventContent, Text: tail})
	}
	if p.hasPending {
		events = append(events, p.finalizePending())
	}
	return events
}

func (p *Parser) handleToken(tok Token) []Event {
	if tok.Kind == TokenText {
		return p.handleText(tok.Text)
	}
	return p.handleJSON(tok.Text)
}

func (p *Parser) handleText(text string) []Event {
	plain, calls := p.recovery.Feed(text)
	var events []Event
	if plain != "" {
		events = append(events, Event{Kind: EventContent, Text: plain})
	}
	for _, c := range calls {
		events = append(events, Event{Kind: EventToolCall, ToolCall: c})
	}
	return events
}

func (p *Parser) handleJSON(raw string) []Event {
	obj, err := jsonrepair.ParseToMap(raw)
	if err != nil {
		p.errorCount++
		logging.Warnf("ESP", "dropping unparseable fragment: %v", err)
		return nil
	}

	var events []Event

	if content, ok := obj["content"]; ok {
		events = append(events, p.handleText(stringOf(content))...)
	}

	if name, ok := obj["name"]; ok {
		if p.hasPending {
			events = append(events, p.finalizePending())
		}
		p.hasPending = true
		p.pendingName = stringOf(name)
		if id, ok := obj["toolUseId"]; ok {
			p.pendingID = stringOf(id)
		} else {
			p.pendingID = "toolu_" + uuid.NewString()
		}
		p.pendingText.Reset()
		p.pendingObj = nil
		if input, ok := obj["input"]; ok {
			p.feedInput(input)
		}
	} else if input, ok := obj["input"]; ok {
		if !p.hasPending {
			p.hasPending = true
			p.pendingID = "toolu_" + uuid.NewString()
			p.pendingText.Reset()
			p.pendingObj = nil
		}
		p.feedInput(input)
	}

	if stop, ok := obj["stop"]; ok && boolOf(stop) && p.hasPending {
		events = append(events, p.finalizePending())
	}

	if followup, ok := obj["followupPrompt"]; ok {
		events = append(events, Event{Kind: EventFollowup, Text: stringOf(followup)})
	}

	if usage, ok := obj["usage"]; ok {
		credits := floatOf(usage)
		events = append(events, Event{Kind: EventUsage, Usage: converter.CanonicalUsage{CreditsUsed: &credits}})
	}

	if pct, ok := obj["contextUsagePercentage"]; ok {
		events = append(events, Event{Kind: EventContextUsage, ContextUsagePercentage: floatOf(pct)})
	}

	return events
}

func (p *Parser) finalizePending() Event {
	args := p.finalizeArguments()
	event := Event{Kind: EventToolCall, ToolCall: converter.CanonicalToolCall{
		ID:        p.pendingID,
		Name:      p.pendingName,
		Arguments: args,
	}}
	p.hasPending = false
	p.pendingID = ""
	p.pendingName = ""
	p.pendingText.Reset()
	p.pendingObj = nil
	return event
}

// feedInput records one streamed "input" fragment. A string fragment is raw
// partial JSON text — individual fragments are not valid JSON on their own
// (a fragment can split a value mid-token, e.g. `{"a":` then `1,"b":` then
// `2}`), so fragments are concatenated into a buffer and only tolerant-
// parsed once, at finalize (§4.5 "streaming JSON aggregation"). An
// object-shaped fragment arrives already parsed and deep-merges directly.
func (p *Parser) feedInput(fragment interface{}) {
	switch v := fragment.(type) {
	case string:
		p.pendingText.WriteString(v)
	case map[string]interface{}:
		if p.pendingObj == nil {
			p.pendingObj = map[string]interface{}{}
		}
		deepMerge(p.pendingObj, v)
	}
}

// finalizeArguments tolerant-parses the accumulated string buffer (if any)
// once, then deep-merges any object-shaped fragments on top, and marshals
// the result back to a JSON string for CanonicalToolCall.Arguments.
func (p *Parser) finalizeArguments() string {
	result := map[string]interface{}{}

	if text := strings.TrimSpace(p.pendingText.String()); text != "" {
		var parsed map[string]interface{}
		if err := jsonrepair.Parse(text, &parsed); err == nil {
			result = parsed
		}
	}
	if p.pendingObj != nil {
		deepMerge(result, p.pendingObj)
	}

	args, err := jsonMarshalArgs(result)
	if err != nil || args == "" {
		return "{}"
	}
	return args
}

func deepMerge(dst, src map[string]interface{}) {
	for k, v := range src {
		if existing, ok := dst[k]; ok {
			if existingMap, ok := existing.(map[string]interface{}); ok {
				if srcMap, ok := v.(map[string]interface{}); ok {
					deepMerge(existingMap, srcMap)
					continue
				}
			}
		}
		dst[k] = v
	}
}

func stringOf(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func boolOf(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func floatOf(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

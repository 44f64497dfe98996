package converter

import "strings"

// CanonicalizeMessages applies the message canonicalization rules of §4.3:
// (a) system messages are separated out and concatenated; (b) tool-role
// messages are promoted into synthesized user messages carrying tool_result
// blocks, with consecutive tool messages grouped into one; (c) adjacent
// messages sharing a role are merged. The result satisfies the invariant
// that no two adjacent messages share a role and no message has RoleTool.
func CanonicalizeMessages(messages []CanonicalMessage) (out []CanonicalMessage, systemText string) {
	nonSystem, systemText := separateSystem(messages)
	promoted := promoteToolMessages(nonSystem)
	out = mergeAdjacent(promoted)
	return out, systemText
}

func separateSystem(messages []CanonicalMessage) ([]CanonicalMessage, string) {
	var texts []string
	out := make([]CanonicalMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			texts = append(texts, messageText(m))
			continue
		}
		out = append(out, m)
	}
	return out, strings.Join(texts, "\n")
}

func messageText(m CanonicalMessage) string {
	if !m.HasBlocks() {
		return m.Text
	}
	var sb strings.Builder
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// promoteToolMessages turns every run of consecutive RoleTool messages into
// one RoleUser message whose blocks are the tool_result blocks those
// messages carried (or synthesized from their plain-text content).
func promoteToolMessages(messages []CanonicalMessage) []CanonicalMessage {
	out := make([]CanonicalMessage, 0, len(messages))
	i := 0
	for i < len(messages) {
		if messages[i].Role != RoleTool {
			out = append(out, messages[i])
			i++
			continue
		}
		var blocks []ContentBlock
		for i < len(messages) && messages[i].Role == RoleTool {
			blocks = append(blocks, toolResultBlocksOf(messages[i])...)
			i++
		}
		out = append(out, CanonicalMessage{Role: RoleUser, Blocks: blocks})
	}
	return out
}

func toolResultBlocksOf(m CanonicalMessage) []ContentBlock {
	if m.HasBlocks() {
		var results []ContentBlock
		for _, b := range m.Blocks {
			if b.Type == BlockToolResult {
				results = append(results, b)
			}
		}
		if len(results) > 0 {
			return results
		}
	}
	return []ContentBlock{{Type: BlockToolResult, ToolResultContent: m.Text}}
}

// mergeAdjacent merges consecutive messages sharing a role: string+string
// joins with a newline, array+array concatenates (this covers assistant
// tool_calls arrays, since a tool_use block lives in Blocks), and a
// string/array mix promotes both sides to block form.
func mergeAdjacent(messages []CanonicalMessage) []CanonicalMessage {
	if len(messages) == 0 {
		return messages
	}
	out := make([]CanonicalMessage, 0, len(messages))
	out = append(out, messages[0])

	for _, m := range messages[1:] {
		last := &out[len(out)-1]
		if last.Role != m.Role {
			out = append(out, m)
			continue
		}
		*last = mergeTwo(*last, m)
	}
	return out
}

func mergeTwo(a, b CanonicalMessage) CanonicalMessage {
	if !a.HasBlocks() && !b.HasBlocks() {
		return CanonicalMessage{Role: a.Role, Text: a.Text + "\n" + b.Text}
	}
	aBlocks := a.Blocks
	if aBlocks == nil {
		aBlocks = []ContentBlock{{Type: BlockText, Text: a.Text}}
	}
	bBlocks := b.Blocks
	if bBlocks == nil {
		bBlocks = []ContentBlock{{Type: BlockText, Text: b.Text}}
	}
	return CanonicalMessage{Role: a.Role, Blocks: append(append([]ContentBlock{}, aBlocks...), bBlocks...)}
}

package converter

// Canonical types (§3 "Canonical request"). Every dialect converts into and
// out of this shape; the upstream payload builder (upstream.BuildPayload)
// consumes only these types, never a dialect-specific one.

// BlockType enumerates the typed content block variants a canonical message
// may carry.
type BlockType string

const (
	BlockText      BlockType = "text"
	BlockImage     BlockType = "image"
	BlockToolUse   BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking  BlockType = "thinking"
)

// Role is the canonical message role. After canonicalization no message has
// RoleTool — tool-role messages are promoted into RoleUser messages
// carrying tool_result blocks (§4.3).
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlock is one element of a canonical message's content sequence.
type ContentBlock struct {
	Type BlockType

	Text string // BlockText, BlockThinking

	ImageMediaType string // BlockImage, e.g. "image/png"
	ImageData      string // BlockImage, base64

	ToolUseID   string      // BlockToolUse (id), BlockToolResult (tool_use_id)
	ToolName    string      // BlockToolUse
	ToolInput   interface{} // BlockToolUse, arbitrary JSON object

	ToolResultContent string // BlockToolResult
	ToolResultIsError bool   // BlockToolResult
}

// CanonicalMessage is one canonicalized chat turn. Content is either a plain
// string (Text != "" && Blocks == nil) or an ordered sequence of blocks.
type CanonicalMessage struct {
	Role   Role
	Text   string
	Blocks []ContentBlock
}

// HasBlocks reports whether this message uses the block form.
func (m CanonicalMessage) HasBlocks() bool { return m.Blocks != nil }

// CanonicalTool is the uniform tool shape all seven inbound variants
// normalize to (§4.3).
type CanonicalTool struct {
	Name        string
	Description string
	InputSchema interface{}
}

// CanonicalRequest is the tuple described in §3: model, ordered non-empty
// messages, optional tools/toolChoice, and the usual generation flags.
type CanonicalRequest struct {
	Model         string
	Messages      []CanonicalMessage
	System        string
	Tools         []CanonicalTool
	ToolChoice    interface{}
	Stream        bool
	MaxTokens     int
	Temperature   *float64
	TopP          *float64
	StopSequences []string
}

// CanonicalToolCall is a finalized tool invocation as produced by the event
// stream parser and consumed by the translation pipeline and PC's response
// shaping.
type CanonicalToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object string, or the literal "{}"
}

// CanonicalUsage carries the token/credit accounting attached to a finalized
// response (§4.6 "Token accounting").
type CanonicalUsage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
	CreditsUsed      *float64 // preserved verbatim from upstream "usage" event, §9 open question
}

// StopReason is the canonical finish reason, translated per-dialect by the
// translation pipeline.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

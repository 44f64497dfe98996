package converter

import (
	"github.com/bytedance/sonic"
)

// FromOpenAI is the OpenAI-dialect request-normalization entry point (§4.3).
func FromOpenAI(body []byte) (*CanonicalRequest, error) {
	var req OpenAIRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	messages := make([]CanonicalMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch Role(msg.Role) {
		case RoleTool:
			messages = append(messages, CanonicalMessage{
				Role: RoleTool,
				Blocks: []ContentBlock{{
					Type:        BlockToolResult,
					ToolUseID:   msg.ToolCallID,
					ToolResultContent: contentAsText(msg.Content),
				}},
			})
		default:
			messages = append(messages, openAIMessageToCanonical(msg))
		}
	}

	tools := normalizeOpenAITools(req.Tools)
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = req.MaxCompletionTokens
	}
	return buildCanonical(req.Model, messages, tools, req.Stream, maxTokens, req.Temperature, req.TopP, stopSequencesOf(req.Stop))
}

func openAIMessageToCanonical(msg OpenAIMessage) CanonicalMessage {
	role := Role(msg.Role)
	var blocks []ContentBlock

	switch content := msg.Content.(type) {
	case string:
		if len(msg.ToolCalls) == 0 {
			return CanonicalMessage{Role: role, Text: content}
		}
		if content != "" {
			blocks = append(blocks, ContentBlock{Type: BlockText, Text: content})
		}
	case []interface{}:
		for _, part := range content {
			if m, ok := part.(map[string]interface{}); ok {
				blocks = append(blocks, openAIContentPartToBlock(m)...)
			}
		}
	}

	for _, tc := range msg.ToolCalls {
		var input interface{}
		_ = sonic.UnmarshalString(tc.Function.Arguments, &input)
		blocks = append(blocks, ContentBlock{
			Type:      BlockToolUse,
			ToolUseID: tc.ID,
			ToolName:  tc.Function.Name,
			ToolInput: input,
		})
	}

	if blocks == nil {
		return CanonicalMessage{Role: role}
	}
	return CanonicalMessage{Role: role, Blocks: blocks}
}

func openAIContentPartToBlock(m map[string]interface{}) []ContentBlock {
	switch str(m["type"]) {
	case "text":
		return []ContentBlock{{Type: BlockText, Text: str(m["text"])}}
	case "image_url":
		if imgURL, ok := m["image_url"].(map[string]interface{}); ok {
			if img, ok := ParseOpenAIImageURL(str(imgURL["url"])); ok {
				return []ContentBlock{{Type: BlockImage, ImageMediaType: "image/" + img.Format, ImageData: img.Bytes}}
			}
		}
	}
	return nil
}

func normalizeOpenAITools(tools []OpenAITool) []CanonicalTool {
	var out []CanonicalTool
	for _, t := range tools {
		raw := map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Function.Name,
				"description": t.Function.Description,
				"parameters":  t.Function.Parameters,
			},
		}
		if ct, ok := NormalizeTool(raw); ok {
			out = append(out, ct)
		}
	}
	return out
}

// FromClaude is the Anthropic-dialect request-normalization entry point.
func FromClaude(body []byte) (*CanonicalRequest, error) {
	var req ClaudeRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	var messages []CanonicalMessage
	if sysText := claudeSystemText(req.System); sysText != "" {
		messages = append(messages, CanonicalMessage{Role: RoleSystem, Text: sysText})
	}

	for _, msg := range req.Messages {
		messages = append(messages, claudeMessageToCanonical(msg))
	}

	tools := normalizeClaudeTools(req.Tools)
	return buildCanonical(req.Model, messages, tools, req.Stream, req.MaxTokens, req.Temperature, req.TopP, req.StopSequences)
}

func claudeSystemText(system interface{}) string {
	switch s := system.(type) {
	case string:
		return s
	case []interface{}:
		var text string
		for _, block := range s {
			if m, ok := block.(map[string]interface{}); ok {
				text += str(m["text"])
			}
		}
		return text
	}
	return ""
}

func claudeMessageToCanonical(msg ClaudeMessage) CanonicalMessage {
	role := Role(msg.Role)
	switch content := msg.Content.(type) {
	case string:
		return CanonicalMessage{Role: role, Text: content}
	case []interface{}:
		var blocks []ContentBlock
		for _, b := range content {
			m, ok := b.(map[string]interface{})
			if !ok {
				continue
			}
			blocks = append(blocks, claudeBlockToCanonical(m)...)
		}
		return CanonicalMessage{Role: role, Blocks: blocks}
	}
	return CanonicalMessage{Role: role}
}

func claudeBlockToCanonical(m map[string]interface{}) []ContentBlock {
	switch str(m["type"]) {
	case "text":
		return []ContentBlock{{Type: BlockText, Text: str(m["text"])}}
	case "thinking":
		return []ContentBlock{{Type: BlockThinking, Text: str(m["thinking"])}}
	case "tool_use":
		return []ContentBlock{{Type: BlockToolUse, ToolUseID: str(m["id"]), ToolName: str(m["name"]), ToolInput: m["input"]}}
	case "tool_result":
		return []ContentBlock{{Type: BlockToolResult, ToolUseID: str(m["tool_use_id"]), ToolResultContent: toolResultTextOf(m["content"]), ToolResultIsError: boolOf(m["is_error"])}}
	case "image":
		if source, ok := m["source"].(map[string]interface{}); ok {
			if img, ok := ParseAnthropicImageBlock(source); ok {
				return []ContentBlock{{Type: BlockImage, ImageMediaType: "image/" + img.Format, ImageData: img.Bytes}}
			}
		}
	}
	return nil
}

func toolResultTextOf(content interface{}) string {
	switch c := content.(type) {
	case string:
		return c
	case []interface{}:
		var text string
		for _, b := range c {
			if m, ok := b.(map[string]interface{}); ok && str(m["type"]) == "text" {
				text += str(m["text"])
			}
		}
		return text
	}
	return ""
}

func boolOf(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func normalizeClaudeTools(tools []ClaudeTool) []CanonicalTool {
	var out []CanonicalTool
	for _, t := range tools {
		raw := map[string]interface{}{
			"name":        t.Name,
			"description": t.Description,
			"input_schema": t.InputSchema,
		}
		if ct, ok := NormalizeTool(raw); ok {
			out = append(out, ct)
		}
	}
	return out
}

// FromGemini is the Gemini-dialect request-normalization entry point.
func FromGemini(body []byte) (*CanonicalRequest, error) {
	var req GeminiRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	var messages []CanonicalMessage
	if req.SystemInstruction != nil {
		messages = append(messages, CanonicalMessage{Role: RoleSystem, Text: geminiPartsText(req.SystemInstruction.Parts)})
	}

	for _, c := range req.Contents {
		messages = append(messages, geminiContentToCanonical(c))
	}

	tools := normalizeGeminiTools(req.Tools)

	var maxTokens int
	var temperature, topP *float64
	var stop []string
	if req.GenerationConfig != nil {
		maxTokens = req.GenerationConfig.MaxOutputTokens
		temperature = req.GenerationConfig.Temperature
		topP = req.GenerationConfig.TopP
		stop = req.GenerationConfig.StopSequences
	}

	return buildCanonical("", messages, tools, true, maxTokens, temperature, topP, stop)
}

func geminiPartsText(parts []GeminiPart) string {
	var text string
	for _, p := range parts {
		text += p.Text
	}
	return text
}

func geminiContentToCanonical(c GeminiContent) CanonicalMessage {
	role := RoleUser
	if c.Role == "model" {
		role = RoleAssistant
	}

	var blocks []ContentBlock
	for _, p := range c.Parts {
		switch {
		case p.Text != "":
			blocks = append(blocks, ContentBlock{Type: BlockText, Text: p.Text})
		case p.InlineData != nil:
			blocks = append(blocks, ContentBlock{Type: BlockImage, ImageMediaType: p.InlineData.MimeType, ImageData: p.InlineData.Data})
		case p.FunctionCall != nil:
			blocks = append(blocks, ContentBlock{Type: BlockToolUse, ToolName: p.FunctionCall.Name, ToolInput: p.FunctionCall.Args})
		case p.FunctionResponse != nil:
			respJSON, _ := sonic.MarshalString(p.FunctionResponse.Response)
			blocks = append(blocks, ContentBlock{Type: BlockToolResult, ToolUseID: p.FunctionResponse.Name, ToolResultContent: respJSON})
		}
	}

	if len(blocks) == 1 && blocks[0].Type == BlockText {
		return CanonicalMessage{Role: role, Text: blocks[0].Text}
	}
	return CanonicalMessage{Role: role, Blocks: blocks}
}

func normalizeGeminiTools(tools []GeminiTool) []CanonicalTool {
	var out []CanonicalTool
	for _, t := range tools {
		for _, decl := range t.FunctionDeclarations {
			raw := map[string]interface{}{
				"name":        decl.Name,
				"description": decl.Description,
				"parameters":  decl.Parameters,
			}
			if ct, ok := NormalizeTool(raw); ok {
				out = append(out, ct)
			}
		}
	}
	return out
}

// buildCanonical runs the shared canonicalization + long-description
// extraction tail shared by all three dialects.
func buildCanonical(model string, messages []CanonicalMessage, tools []CanonicalTool, stream bool, maxTokens int, temperature, topP *float64, stop []string) (*CanonicalRequest, error) {
	canonicalMessages, systemText := CanonicalizeMessages(messages)
	tools, appendix := ExtractLongDescriptions(tools, MaxToolDescriptionLength)
	if appendix != "" {
		systemText += appendix
	}

	return &CanonicalRequest{
		Model:         model,
		Messages:      canonicalMessages,
		System:        systemText,
		Tools:         tools,
		Stream:        stream,
		MaxTokens:     maxTokens,
		Temperature:   temperature,
		TopP:          topP,
		StopSequences: stop,
	}, nil
}

func contentAsText(content interface{}) string {
	switch c := content.(type) {
	case string:
		return c
	case []interface{}:
		var text string
		for _, part := range c {
			if m, ok := part.(map[string]interface{}); ok && str(m["type"]) == "text" {
				text += str(m["text"])
			}
		}
		return text
	}
	return ""
}

func stopSequencesOf(stop interface{}) []string {
	switch s := stop.(type) {
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, v := range s {
			if str, ok := v.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return s
	}
	return nil
}

// Package upstream builds the Kiro-shaped conversationState payload (UB) and
// drives the streaming HTTP attempt against it (UC), per §4.3-4.4.
package upstream

import (
	"github.com/google/uuid"
	"github.com/kiro-gateway/gateway/internal/converter"
)

const (
	chatTriggerTypeManual = "MANUAL"
	messageOrigin         = "AI_EDITOR"
	continueContent       = "Continue"
)

// Image is the wire shape of an inline image inside a userInputMessage.
type Image struct {
	Format string `json:"format"`
	Source struct {
		Bytes string `json:"bytes"`
	} `json:"source"`
}

// ToolSpec is the wire shape of one tool inside userInputMessageContext.
type ToolSpec struct {
	ToolSpecification struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		InputSchema struct {
			JSON interface{} `json:"json"`
		} `json:"inputSchema"`
	} `json:"toolSpecification"`
}

// ToolResult is the wire shape of one tool result inside
// userInputMessageContext.
type ToolResult struct {
	ToolUseID string                   `json:"toolUseId"`
	Content   []map[string]interface{} `json:"content"`
	Status    string                   `json:"status"`
}

// UserInputMessageContext carries the tool catalog and any tool results
// attached to one userInputMessage.
type UserInputMessageContext struct {
	Tools       []ToolSpec   `json:"tools,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// UserInputMessage is the wire shape of a user turn, in both history[] and
// currentMessage.
type UserInputMessage struct {
	Content string                  `json:"content"`
	ModelID string                  `json:"modelId,omitempty"`
	Origin  string                  `json:"origin"`
	Images  []Image                 `json:"images,omitempty"`
	Context UserInputMessageContext `json:"userInputMessageContext"`
}

// ToolUse is one tool invocation recorded on an assistant history turn.
type ToolUse struct {
	ToolUseID string      `json:"toolUseId"`
	Name      string      `json:"name"`
	Input     interface{} `json:"input"`
}

// AssistantResponseMessage is the wire shape of an assistant turn in
// history[].
type AssistantResponseMessage struct {
	Content  string    `json:"content"`
	ToolUses []ToolUse `json:"toolUses,omitempty"`
}

// HistoryEntry is one alternating history[] element: exactly one of
// UserInputMessage / AssistantResponseMessage is set.
type HistoryEntry struct {
	UserInputMessage         *UserInputMessage         `json:"userInputMessage,omitempty"`
	AssistantResponseMessage *AssistantResponseMessage `json:"assistantResponseMessage,omitempty"`
}

// CurrentMessage wraps the current turn's userInputMessage.
type CurrentMessage struct {
	UserInputMessage UserInputMessage `json:"userInputMessage"`
}

// ConversationState is the body of the conversationState field (§3 "Upstream
// payload").
type ConversationState struct {
	ChatTriggerType string         `json:"chatTriggerType"`
	ConversationID  string         `json:"conversationId"`
	CurrentMessage  CurrentMessage `json:"currentMessage"`
	History         []HistoryEntry `json:"history,omitempty"`
}

// Payload is the full request body sent to the CodeWhisperer endpoint.
type Payload struct {
	ConversationState ConversationState `json:"conversationState"`
	ProfileArn        string            `json:"profileArn,omitempty"`
}

// BuildPayload implements "Upstream payload construction" (§4.3): compute the
// internal model id, build history from all canonical messages but the last,
// splice the system prompt into the right place, and apply the
// last-assistant-message / empty-current-content "Continue" rules.
func BuildPayload(req converter.CanonicalRequest, profileArn, conversationID string) Payload {
	modelID := MapModelID(req.Model)

	messages := req.Messages
	if len(messages) == 0 {
		messages = []converter.CanonicalMessage{{Role: converter.RoleUser, Text: continueContent}}
	}

	historyMessages := messages[:len(messages)-1]
	last := messages[len(messages)-1]

	history := make([]HistoryEntry, 0, len(historyMessages))
	for _, m := range historyMessages {
		history = append(history, toHistoryEntry(m, modelID))
	}

	var current UserInputMessage
	if last.Role == converter.RoleAssistant {
		history = append(history, toHistoryEntry(last, modelID))
		current = UserInputMessage{Content: continueContent, ModelID: modelID, Origin: messageOrigin}
	} else {
		current = messageToUserInput(last, modelID)
	}

	if current.Content == "" {
		current.Content = continueContent
	}

	if req.System != "" {
		if len(history) > 0 {
			prependSystemToFirstUser(history, req.System)
		} else {
			current.Content = req.System + "\n\n" + current.Content
		}
	}

	if len(req.Tools) > 0 {
		current.Context.Tools = toolSpecsOf(req.Tools)
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	return Payload{
		ConversationState: ConversationState{
			ChatTriggerType: chatTriggerTypeManual,
			ConversationID:  conversationID,
			CurrentMessage:  CurrentMessage{UserInputMessage: current},
			History:         history,
		},
		ProfileArn: profileArn,
	}
}

func prependSystemToFirstUser(history []HistoryEntry, system string) {
	for i := range history {
		if history[i].UserInputMessage != nil {
			history[i].UserInputMessage.Content = system + "\n\n" + history[i].UserInputMessage.Content
			return
		}
	}
}

func messageToUserInput(m converter.CanonicalMessage, modelID string) UserInputMessage {
	out := UserInputMessage{ModelID: modelID, Origin: messageOrigin}
	if !m.HasBlocks() {
		out.Content = m.Text
		return out
	}

	var text string
	var results []ToolResult
	for _, b := range m.Blocks {
		switch b.Type {
		case converter.BlockText, converter.BlockThinking:
			text += b.Text
		case converter.BlockImage:
			out.Images = append(out.Images, Image{Format: subtypeOfMediaType(b.ImageMediaType), Source: struct {
				Bytes string `json:"bytes"`
			}{Bytes: b.ImageData}})
		case converter.BlockToolResult:
			status := "success"
			if b.ToolResultIsError {
				status = "error"
			}
			results = append(results, ToolResult{
				ToolUseID: b.ToolUseID,
				Content:   []map[string]interface{}{{"text": b.ToolResultContent}},
				Status:    status,
			})
		}
	}
	out.Content = text
	out.Context.ToolResults = results
	return out
}

func toHistoryEntry(m converter.CanonicalMessage, modelID string) HistoryEntry {
	if m.Role == converter.RoleAssistant {
		var text string
		var toolUses []ToolUse
		if !m.HasBlocks() {
			text = m.Text
		} else {
			for _, b := range m.Blocks {
				switch b.Type {
				case converter.BlockText, converter.BlockThinking:
					text += b.Text
				case converter.BlockToolUse:
					toolUses = append(toolUses, ToolUse{ToolUseID: b.ToolUseID, Name: b.ToolName, Input: b.ToolInput})
				}
			}
		}
		return HistoryEntry{AssistantResponseMessage: &AssistantResponseMessage{Content: text, ToolUses: toolUses}}
	}

	ui := messageToUserInput(m, modelID)
	return HistoryEntry{UserInputMessage: &ui}
}

func toolSpecsOf(tools []converter.CanonicalTool) []ToolSpec {
	out := make([]ToolSpec, len(tools))
	for i, t := range tools {
		out[i].ToolSpecification.Name = t.Name
		out[i].ToolSpecification.Description = t.Description
		out[i].ToolSpecification.InputSchema.JSON = t.InputSchema
	}
	return out
}

func subtypeOfMediaType(mediaType string) string {
	for i := len(mediaType) - 1; i >= 0; i-- {
		if mediaType[i] == '/' {
			return mediaType[i+1:]
		}
	}
	return mediaType
}

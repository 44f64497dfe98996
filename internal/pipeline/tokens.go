package pipeline

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/kiro-gateway/gateway/internal/converter"
	"github.com/kiro-gateway/gateway/internal/logging"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// correctionFactor compensates for cl100k_base undercounting against the
// upstream's own tokenizer (§4.6 "Token accounting").
const correctionFactor = 1.15

const fallbackCharsPerToken = 4

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func getEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logging.Warnf("tokens", "cl100k_base load failed, falling back to char estimate: %v", err)
			return
		}
		encoding = enc
	})
	return encoding
}

// CountTokens estimates the token count of a text span via cl100k_base with
// the upstream correction factor, falling back to a fixed chars-per-token
// ratio if the encoder failed to load.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	enc := getEncoding()
	if enc == nil {
		return (len(text) + fallbackCharsPerToken - 1) / fallbackCharsPerToken
	}
	return int(math.Ceil(float64(len(enc.Encode(text, nil, nil))) * correctionFactor))
}

// TokensFromContextUsage derives the total-token count from the upstream's
// contextUsagePercentage event when available: floor(pct/100 * maxInputTokens)
// (§4.6, test case 1).
func TokensFromContextUsage(pct float64, maxInputTokens int) int {
	return int(math.Floor(pct / 100 * float64(maxInputTokens)))
}

// EstimateInputTokens is the fallback input-token estimate used when no
// contextUsagePercentage event arrives: system prompt + every message's text
// content + each tool's name/description/schema, all run through CountTokens.
func EstimateInputTokens(req converter.CanonicalRequest) int {
	total := CountTokens(req.System)
	for _, m := range req.Messages {
		total += CountTokens(messagePlainText(m))
	}
	for _, t := range req.Tools {
		total += CountTokens(t.Name) + CountTokens(t.Description)
		if t.InputSchema != nil {
			if schema, err := json.Marshal(t.InputSchema); err == nil {
				total += CountTokens(string(schema))
			}
		}
	}
	return total
}

func messagePlainText(m converter.CanonicalMessage) string {
	if !m.HasBlocks() {
		return m.Text
	}
	var text string
	for _, b := range m.Blocks {
		switch b.Type {
		case converter.BlockText, converter.BlockThinking:
			text += b.Text
		case converter.BlockToolResult:
			text += b.ToolResultContent
		}
	}
	return text
}

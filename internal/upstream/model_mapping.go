package upstream

import "strings"

// mappingRule is one entry of the fixed model-id mapping table (§6 "Model
// catalog"). Rules are matched in order, first match wins; unmatched names
// pass through unchanged.
type mappingRule struct {
	pattern string
	target  string
}

var modelMappingRules = []mappingRule{
	{"claude-opus-4-5*", "claude-opus-4.5"},
	{"claude-sonnet-4-5*", "CLAUDE_SONNET_4_5_20250929_V1_0"},
	{"claude-sonnet-4*", "CLAUDE_SONNET_4_20250514_V1_0"},
	{"claude-haiku-4-5*", "claude-haiku-4.5"},
	{"claude-3-7-sonnet-20250219", "CLAUDE_3_7_SONNET_20250219_V1_0"},
	{"auto", "claude-sonnet-4.5"},
}

// MapModelID maps an external model id to the internal upstream id, falling
// back to passthrough when nothing matches (§4.3 "Upstream payload
// construction").
func MapModelID(external string) string {
	clean := strings.ToLower(strings.TrimSpace(external))
	for _, rule := range modelMappingRules {
		if matchPattern(clean, rule.pattern) {
			return rule.target
		}
	}
	return external
}

func matchPattern(input, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return input == pattern
	}
	prefix, suffix, _ := strings.Cut(pattern, "*")
	return strings.HasPrefix(input, prefix) && strings.HasSuffix(input, suffix)
}

// slowModels is the fixed SLOW set (§4.4 "Adaptive timeout") whose base
// timeout gets multiplied.
var slowModels = []string{"claude-opus-4-5", "claude-3-opus"}

// IsSlowModel reports whether a model name contains any of the SLOW set,
// matching on the external name (the multiplier is decided before mapping).
func IsSlowModel(externalModel string) bool {
	lower := strings.ToLower(externalModel)
	for _, s := range slowModels {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

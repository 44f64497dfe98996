package converter

import (
	"encoding/json"

	"github.com/kiro-gateway/gateway/internal/domain"
)

// errorCode maps an ErrorKind to the short machine-readable code carried in
// the OpenAI and Anthropic error bodies (Gemini bodies carry a status instead).
func errorCode(kind domain.ErrorKind) string {
	switch kind {
	case domain.KindAuthentication, domain.KindTokenRefresh:
		return "authentication_error"
	case domain.KindPermission:
		return "permission_error"
	case domain.KindValidation:
		return "invalid_request_error"
	case domain.KindRateLimit:
		return "rate_limit_error"
	case domain.KindTimeout:
		return "timeout_error"
	case domain.KindUpstream:
		return "upstream_error"
	default:
		return "internal_error"
	}
}

// geminiStatus maps an HTTP status to Gemini's google.rpc.Code string (§7).
func geminiStatus(httpStatus int) string {
	switch httpStatus {
	case 400:
		return "INVALID_ARGUMENT"
	case 401:
		return "UNAUTHENTICATED"
	case 403:
		return "PERMISSION_DENIED"
	case 404:
		return "NOT_FOUND"
	case 429:
		return "RESOURCE_EXHAUSTED"
	default:
		if httpStatus >= 500 {
			return "INTERNAL"
		}
		return "UNKNOWN"
	}
}

// ToDialect renders the client-visible error body for kind in dialect's wire
// shape (§7 "Client-visible format"). The caller is responsible for setting
// the HTTP status from kind.HTTPStatus().
func ToDialect(kind domain.ErrorKind, dialect domain.ClientType, message string) []byte {
	code := errorCode(kind)

	var body interface{}
	switch dialect {
	case domain.ClientTypeOpenAI:
		body = map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"type":    code,
				"code":    code,
			},
		}
	case domain.ClientTypeGemini:
		body = map[string]interface{}{
			"error": map[string]interface{}{
				"code":    kind.HTTPStatus(),
				"message": message,
				"status":  geminiStatus(kind.HTTPStatus()),
			},
		}
	default: // domain.ClientTypeAnthropic and anything else
		body = map[string]interface{}{
			"type": "error",
			"error": map[string]interface{}{
				"type":    code,
				"message": message,
			},
		}
	}

	data, _ := json.Marshal(body)
	return data
}

// ToDialectStreamFrame renders the final SSE error frame for a mid-flight
// stream failure (§7 "Streaming mid-flight errors"). No [DONE]/terminator
// follows an error frame.
func ToDialectStreamFrame(kind domain.ErrorKind, dialect domain.ClientType, message string) []byte {
	body := ToDialect(kind, dialect, message)

	switch dialect {
	case domain.ClientTypeAnthropic:
		var payload interface{}
		_ = json.Unmarshal(body, &payload)
		return FormatSSE("error", payload)
	default: // OpenAI and Gemini both emit a bare "data: {error:...}" frame
		var payload interface{}
		_ = json.Unmarshal(body, &payload)
		return FormatSSE("", payload)
	}
}

package pipeline

import "github.com/kiro-gateway/gateway/internal/jsonrepair"

func unmarshalArgs(raw string, out interface{}) error {
	if raw == "" {
		return nil
	}
	return jsonrepair.Parse(raw, out)
}

// Package reqctx carries per-request values through the handler/pipeline
// call chain explicitly, replacing the source's global singletons (§9).
package reqctx

import (
	"context"

	"github.com/kiro-gateway/gateway/internal/domain"
)

type contextKey string

const (
	keyClientType    contextKey = "client_type"
	keyRequestID     contextKey = "request_id"
	keyCredentialKey contextKey = "credential_key"
	keyRequestModel  contextKey = "request_model"
	keyMappedModel   contextKey = "mapped_model"
	keyIsStream      contextKey = "is_stream"
)

func WithClientType(ctx context.Context, ct domain.ClientType) context.Context {
	return context.WithValue(ctx, keyClientType, ct)
}

func ClientType(ctx context.Context) domain.ClientType {
	v, _ := ctx.Value(keyClientType).(domain.ClientType)
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

func WithCredentialKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, keyCredentialKey, key)
}

func CredentialKey(ctx context.Context) string {
	v, _ := ctx.Value(keyCredentialKey).(string)
	return v
}

func WithRequestModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, keyRequestModel, model)
}

func RequestModel(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestModel).(string)
	return v
}

func WithMappedModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, keyMappedModel, model)
}

func MappedModel(ctx context.Context) string {
	v, _ := ctx.Value(keyMappedModel).(string)
	return v
}

func WithIsStream(ctx context.Context, stream bool) context.Context {
	return context.WithValue(ctx, keyIsStream, stream)
}

func IsStream(ctx context.Context) bool {
	v, _ := ctx.Value(keyIsStream).(bool)
	return v
}

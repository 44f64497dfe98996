package upstream

import (
	"crypto/md5"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ConversationIDTracker derives a conversationId stable across a client's
// requests within a time window, so a client that doesn't send its own id
// still gets a coherent upstream conversation thread. Grounded on the
// upstream's own per-hour client-signature hashing scheme.
type ConversationIDTracker struct {
	mu    sync.Mutex
	cache map[string]string
}

// NewConversationIDTracker creates an empty tracker.
func NewConversationIDTracker() *ConversationIDTracker {
	return &ConversationIDTracker{cache: make(map[string]string)}
}

// ConversationIDFor returns a stable conversationId for the given request. A
// client-supplied X-Conversation-ID header always wins.
func (t *ConversationIDTracker) ConversationIDFor(req *http.Request) string {
	if custom := req.Header.Get("X-Conversation-ID"); custom != "" {
		return custom
	}

	signature := fmt.Sprintf("%s|%s|%s", clientIP(req), req.Header.Get("User-Agent"), time.Now().Format("2006010215"))

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.cache[signature]; ok {
		return id
	}
	hash := md5.Sum([]byte(signature))
	id := fmt.Sprintf("conv-%x", hash[:8])
	t.cache[signature] = id
	return id
}

func clientIP(req *http.Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := req.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return req.RemoteAddr
}

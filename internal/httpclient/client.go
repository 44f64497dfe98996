// Package httpclient builds the shared *http.Client used for both token
// refresh (credential.Manager) and upstream generation calls
// (upstream.Client). The transport is tuned to match what the upstream's
// edge actually negotiates with, grounded on the teacher's kiro adapter.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// New returns an *http.Client with a fixed timeout and a transport tuned for
// the upstream's TLS/HTTP requirements. timeout of zero means "no client
// level timeout" — callers that need per-call deadlines should pass a
// context with a deadline instead, since that's the only way to distinguish
// a first-byte timeout from a read timeout (§4.4).
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   15 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 15 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				MaxVersion: tls.VersionTLS13,
				CipherSuites: []uint16{
					tls.TLS_AES_256_GCM_SHA384,
					tls.TLS_CHACHA20_POLY1305_SHA256,
					tls.TLS_AES_128_GCM_SHA256,
				},
			},
			ForceAttemptHTTP2:  false,
			DisableCompression: false,
			IdleConnTimeout:    90 * time.Second,
		},
	}
}

// UserAgent builds the AWS-SDK-like user-agent string carrying the gateway's
// machine fingerprint suffix, as required by §4.4.
func UserAgent(fingerprint string) string {
	return "aws-sdk-js/2.1692.0 ua/2.1 os/other lang/js md/nodejs#20 api/codewhispererstreaming#1.0 m/E kiro-gateway-" + fingerprint
}

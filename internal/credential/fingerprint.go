package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// machineFingerprint derives a deterministic, opaque suffix used only in
// outbound user-agent headers. Falls back to a fixed constant on any OS
// error so the gateway never fails to start because hostname/user lookup
// failed in a sandboxed environment.
func machineFingerprint() string {
	hostname, err := os.Hostname()
	if err != nil {
		return fallbackFingerprint()
	}
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	if username == "" {
		return fallbackFingerprint()
	}
	sum := sha256.Sum256([]byte(hostname + "-" + username + "-kiro-gateway"))
	return hex.EncodeToString(sum[:])[:16]
}

func fallbackFingerprint() string {
	sum := sha256.Sum256([]byte("kiro-gateway-fallback-fingerprint"))
	return hex.EncodeToString(sum[:])[:16]
}

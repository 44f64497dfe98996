// Package logging provides the gateway's structured-by-convention logging:
// standard library log.Printf with a bracketed component tag, matching the
// teacher's "[Component] message" idiom. No JSON/structured logging library
// is introduced — see SPEC_FULL.md §10.
package logging

import "log"

func Infof(component, format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{component}, args...)...)
}

func Warnf(component, format string, args ...any) {
	log.Printf("[%s] WARN "+format, append([]any{component}, args...)...)
}

func Debugf(component, format string, args ...any) {
	log.Printf("[%s] DEBUG "+format, append([]any{component}, args...)...)
}

func Errorf(component, format string, args ...any) {
	log.Printf("[%s] ERROR "+format, append([]any{component}, args...)...)
}

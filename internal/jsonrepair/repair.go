// Package jsonrepair implements the tolerant-JSON repair sequence of §4.5:
// every parse attempt inside ESP and PC runs through this sequence, and the
// first successful parse wins. The primary repair pass is delegated to
// kaptinlin/jsonrepair (grounded on leofalp-aigo's use of the same library);
// the ordered fallback rules below run only on inputs that library doesn't
// fix, since the spec's repair sequence is more specific than a
// general-purpose repairer.
package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"

	kaptinlin "github.com/kaptinlin/jsonrepair"
)

// Parse attempts a strict parse, then the library repair, then the manual
// fallback rules below in order, returning the first successful result.
func Parse(raw string, out interface{}) error {
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}

	if repaired, err := kaptinlin.JSONRepair(raw); err == nil {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	candidate := raw
	for _, fn := range []func(string) string{
		stripTrailingCommas,
		quoteUnquotedIdentifiers,
		truncateDanglingEscapes,
		escapeControlChars,
	} {
		candidate = fn(candidate)
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return nil
		}
	}

	return json.Unmarshal([]byte(candidate), out) // surfaces the final error
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

func stripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// unquotedKeyRe matches a bareword immediately before a colon, not already
// inside quotes: {foo: 1} -> {"foo": 1}.
var unquotedKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)

// unquotedValueRe matches a bareword value that isn't true/false/null.
var unquotedValueRe = regexp.MustCompile(`(:\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*[,}])`)

func quoteUnquotedIdentifiers(s string) string {
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = unquotedValueRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := unquotedValueRe.FindStringSubmatch(m)
		word := sub[2]
		if word == "true" || word == "false" || word == "null" {
			return m
		}
		return sub[1] + `"` + word + `"` + sub[3]
	})
	return s
}

// truncateDanglingEscapes removes a trailing backslash, or a trailing
// incomplete \uXXXX escape, that would otherwise make the tail of a string
// literal unparseable (arguments fragments can be cut mid-escape).
func truncateDanglingEscapes(s string) string {
	for strings.HasSuffix(s, `\`) && !strings.HasSuffix(s, `\\`) {
		s = s[:len(s)-1]
	}
	if idx := strings.LastIndex(s, `\u`); idx >= 0 && idx >= len(s)-6 {
		tail := s[idx+2:]
		if len(tail) < 4 {
			s = s[:idx]
		}
	}
	return s
}

var controlCharRe = regexp.MustCompile(`[\x00-\x1f]`)

func escapeControlChars(s string) string {
	return controlCharRe.ReplaceAllStringFunc(s, func(c string) string {
		r := []rune(c)[0]
		switch r {
		case '\n':
			return `\n`
		case '\r':
			return `\r`
		case '\t':
			return `\t`
		default:
			return ""
		}
	})
}

// ParseToMap is a convenience wrapper returning map[string]interface{}.
func ParseToMap(raw string) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := Parse(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

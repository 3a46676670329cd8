package attributes

import (
	"regexp"
	"strconv"
	"strings"
)

// Placeholder names recognised by template expansion.
const (
	placeholderDeviceIndex = "device_index"
	placeholderRandom      = "random"
	placeholderTimestamp   = "timestamp"
	placeholderDate        = "date"
)

// Random token kinds and sizes.
const (
	randomKindString = "string"
	randomKindNumber = "number"

	defaultStringLength  = 8
	defaultNumberLength  = 4
	fallbackNumberLength = 6

	maxStringLength = 64
	maxNumberLength = 18
)

// Time layouts for template providers.
const (
	timestampLayout = "2006-01-02T15:04:05.000000"
	dateLayout      = "2006-01-02"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// placeholderPattern matches {name} and {name:args}.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?::([^{}]*))?\}`)

// expandTemplate replaces the recognised placeholders in text.
//
//	{device_index}      decimal device index
//	{timestamp}         local time, ISO-8601 without zone
//	{date}              local date, YYYY-MM-DD
//	{random}            6 digits (legacy mode: sniffed from the whole template)
//	{random:string[:N]} N uppercase alphanumerics (default 8)
//	{random:number[:N]} N digits, no leading zero (default 4)
//
// Every occurrence of the same placeholder receives the same value within one
// expansion. Anything else, including unknown names or arguments, is left as-is.
func expandTemplate(text string, r *resolver) string {
	memo := make(map[string]string)

	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		if v, ok := memo[token]; ok {
			return v
		}

		m := placeholderPattern.FindStringSubmatch(token)
		name, args := m[1], m[2]
		hasArgs := strings.Contains(token, ":")

		var (
			value string
			ok    bool
		)
		switch {
		case name == placeholderDeviceIndex && !hasArgs:
			value, ok = strconv.Itoa(r.deviceIndex), true
		case name == placeholderTimestamp && !hasArgs:
			value, ok = r.now.Format(timestampLayout), true
		case name == placeholderDate && !hasArgs:
			value, ok = r.now.Format(dateLayout), true
		case name == placeholderRandom && !hasArgs:
			value, ok = bareRandom(text, r), true
		case name == placeholderRandom:
			value, ok = typedRandom(args, r)
		}
		if !ok {
			return token
		}

		memo[token] = value
		return value
	})
}

// bareRandom produces the token for a plain {random}.
//
// In legacy mode the whole template is searched: "string" selects an
// 8-character token, "number" a 4-digit one, anything else 6 digits.
func bareRandom(text string, r *resolver) string {
	if r.legacyRandom {
		switch {
		case strings.Contains(text, randomKindString):
			return randomString(r, defaultStringLength)
		case strings.Contains(text, randomKindNumber):
			return randomNumber(r, defaultNumberLength)
		}
	}
	return randomNumber(r, fallbackNumberLength)
}

// typedRandom handles {random:kind[:length]}.
func typedRandom(args string, r *resolver) (string, bool) {
	kind, lengthArg, hasLength := strings.Cut(args, ":")

	switch kind {
	case randomKindString:
		n, ok := parseLength(lengthArg, hasLength, defaultStringLength, maxStringLength)
		if !ok {
			return "", false
		}
		return randomString(r, n), true
	case randomKindNumber:
		n, ok := parseLength(lengthArg, hasLength, defaultNumberLength, maxNumberLength)
		if !ok {
			return "", false
		}
		return randomNumber(r, n), true
	default:
		return "", false
	}
}

func parseLength(arg string, present bool, def, limit int) (int, bool) {
	if !present {
		return def, true
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > limit {
		return 0, false
	}
	return n, true
}

// randomString returns n uppercase alphanumerics.
func randomString(r *resolver, n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(alphanumeric[r.rng.IntN(len(alphanumeric))])
	}
	return b.String()
}

// randomNumber returns an n-digit decimal with no leading zero.
func randomNumber(r *resolver, n int) string {
	lo := int64(1)
	for range n - 1 {
		lo *= 10
	}
	hi := lo*10 - 1
	if n == 1 {
		lo = 0
	}
	return strconv.FormatInt(lo+r.rng.Int64N(hi-lo+1), 10)
}

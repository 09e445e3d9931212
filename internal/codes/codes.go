package codes

import "strings"

// FallbackKey is the reserved canonical key substituted when an input can not
// be normalized. The flag bundle must always contain a resource for it.
const FallbackKey = "xx"

const KEY_LENGTH = 2

// Normalize reduces arbitrary free-form input to a canonical two-letter key.
// It returns the empty string when the input can not be reduced to exactly
// two ASCII letters.
//
// The reduction is deterministic and locale-independent: trim surrounding
// whitespace, ASCII-lowercase, drop a trailing ".png", keep the last
// underscore-delimited segment (or, failing that, the last dash-delimited
// segment), then discard every character outside 'a'-'z'.
func Normalize(raw string) string {
	key := strings.Trim(raw, " \t\r\n")
	key = asciiLower(key)
	key = strings.TrimSuffix(key, ".png")

	// Locale tags like "zh-hant-hk" or "en_us" carry the region last.
	// Underscore takes priority when both separators are present.
	if strings.Contains(key, "_") {
		segments := strings.Split(key, "_")
		key = segments[len(segments)-1]
	} else if strings.Contains(key, "-") {
		segments := strings.Split(key, "-")
		key = segments[len(segments)-1]
	}

	var letters strings.Builder
	letters.Grow(KEY_LENGTH)
	for _, char := range key {
		if char >= 'a' && char <= 'z' {
			letters.WriteRune(char)
		}
	}

	if letters.Len() != KEY_LENGTH {
		return ""
	}
	return letters.String()
}

// Resolve maps arbitrary input to a loadable canonical key, substituting
// FallbackKey when normalization fails. The result is always two letters.
func Resolve(raw string) string {
	if key := Normalize(raw); key != "" {
		return key
	}
	return FallbackKey
}

func asciiLower(s string) string {
	var lowered strings.Builder
	lowered.Grow(len(s))
	for i := 0; i < len(s); i++ {
		char := s[i]
		if char >= 'A' && char <= 'Z' {
			char += 'a' - 'A'
		}
		lowered.WriteByte(char)
	}
	return lowered.String()
}

package chat

import (
	"strings"
	"time"
)

// NormalizeTimestamp coerces a raw backend timestamp into a strict ISO-8601
// instant. Space-separated date/time is rewritten to the T-separated form and
// a Z suffix is appended when the value carries no UTC offset. Inputs that
// already carry an offset are returned unchanged. Normalization never fails;
// unparseable values pass through so downstream sorting can degrade
// gracefully.
func NormalizeTimestamp(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i] + "T" + s[i+1:]
	}
	if !hasOffset(s) {
		s += "Z"
	}
	return s
}

// hasOffset reports whether the time portion of s ends in Z or an explicit
// +hh:mm / -hh:mm offset. Only characters after the date separator are
// considered so negative years or dashed dates do not confuse the check.
func hasOffset(s string) bool {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return true
	}
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return false
	}
	return strings.ContainsAny(s[i+1:], "+-")
}

// timestampLayouts are tried in order when parsing normalized values. The
// gateway mixes second and sub-second precision across endpoints.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05-0700",
}

// ParseTimestamp parses raw (normalizing it first) into a time.Time. The zero
// time is returned for unparseable input; callers sort such entries first
// rather than erroring.
func ParseTimestamp(raw string) time.Time {
	s := NormalizeTimestamp(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

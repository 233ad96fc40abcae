package printapi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxNameRunes caps the printed display name.
const maxNameRunes = 24

// PrintRequest is the coerced body of POST /api/print.
type PrintRequest struct {
	Name           string
	WatchSeconds   int
	WatchedPercent float64
}

// ParsePrintRequest reads the body leniently. Each field is coerced on its
// own: numbers and numeric strings are accepted, anything else becomes zero
// (or empty for the name). A body that is not a JSON object yields all zeros.
//
// watchSeconds must fit in an int32; a string must be a plain integer, while a
// JSON number is truncated toward zero. watchedPercent outside [0, 100] is 0.
func ParsePrintRequest(body []byte) PrintRequest {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return PrintRequest{}
	}

	return PrintRequest{
		Name:           toName(raw["name"]),
		WatchSeconds:   toInt(raw["watchSeconds"]),
		WatchedPercent: toPercent(raw["watchedPercent"]),
	}
}

func toPercent(v any) float64 {
	f := toFloat(v)
	if f < 0 || f > 100 {
		return 0
	}
	return f
}

func toFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toInt(v any) int {
	var n int64
	switch t := v.(type) {
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	case float64:
		f := toFloat(t)
		if f > math.MaxInt32 || f < math.MinInt32 {
			return 0
		}
		n = int64(f)
	default:
		return 0
	}

	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0
	}
	return int(n)
}

func toName(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}

	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxNameRunes {
		s = string([]rune(s)[:maxNameRunes])
	}
	return s
}

package collection

import (
	"strings"
	"unicode"
)

// tokenize lower-cases s and splits it on runs of non-alphanumeric
// characters, the same token boundary the query side uses so indexed
// tokens and searched tokens always agree.
func tokenize(s string) []string {
	var toks []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			toks = append(toks, buf.String())
			buf.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			buf.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return toks
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toFloat32Slice(v any) []float32 {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(arr))
	for _, e := range arr {
		f, ok := toFloat64(e)
		if !ok {
			return nil
		}
		out = append(out, float32(f))
	}
	return out
}

// toGeopoint coerces a [lat, lng] pair stored as []any (the shape JSON
// unmarshaling produces) into two floats.
func toGeopoint(v any) (lat, lng float64, ok bool) {
	arr, isArr := v.([]any)
	if !isArr || len(arr) != 2 {
		return 0, 0, false
	}
	lat, ok1 := toFloat64(arr[0])
	lng, ok2 := toFloat64(arr[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return lat, lng, true
}

package kat

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================
// Literal Coercion
// ============================================================
//
// Converts a --set literal to a typed scalar matching the stream's
// primitive family. Rules, in order:
//
//	'..' or ".."      string, quotes stripped
//	true / false      bool (case-insensitive)
//	null              null (case-insensitive)
//	0 + digit         string (protects zero-padded ids)
//	contains . or e   float64
//	integer           narrowest of int32, int64, decimal
//	anything else     string
//
// The zero-padding rule needs a digit after the leading zero, so "042"
// stays the string "042" while "0.5" and "0e5" fall through to the
// float rule.

// Coerce converts a literal token to a typed scalar value.
func Coerce(token string) *Value {
	if len(token) >= 2 {
		if (token[0] == '"' && token[len(token)-1] == '"') ||
			(token[0] == '\'' && token[len(token)-1] == '\'') {
			return Str(token[1 : len(token)-1])
		}
	}

	switch strings.ToLower(token) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	case "null":
		return Null()
	}

	if len(token) > 1 && token[0] == '0' && isDigit(token[1]) {
		return Str(token)
	}

	lower := strings.ToLower(token)
	if strings.Contains(token, ".") || strings.Contains(lower, "e") {
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return Float64(f)
		}
		return Str(token)
	}

	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return Int32(int32(n))
		}
		return Int64(n)
	}
	if d, err := decimal.NewFromString(token); err == nil {
		// Integers beyond int64 range land here.
		return Dec(d)
	}
	return Str(token)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

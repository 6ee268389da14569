// Package normalize converts loosely typed event values into the canonical
// forms the partner schema accepts. None of the functions here fail: malformed
// input degrades to an absent value.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ISOMillis is the timestamp layout the partner expects: UTC, millisecond
// precision, Z suffix.
const ISOMillis = "2006-01-02T15:04:05.000Z"

// maxEpochMillis bounds the representable instant range (±100,000,000 days).
const maxEpochMillis = 8.64e15

// looseLayouts are tried after cast's list. They cover the slash, long-month
// and Date.toString forms that browsers and SDKs emit. Zone-less layouts are UTC.
var looseLayouts = []string{
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006/1/2",
	"2006/1/2 15:04",
	"2006/1/2 15:04:05",
	"Jan 2, 2006",
	"Jan 2, 2006 15:04:05",
	"January 2, 2006",
	"January 2, 2006 15:04:05",
	"2 Jan 2006",
	"Mon Jan 02 2006",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 2 2006 15:04:05 GMT-0700",
	"Mon, 02 Jan 2006 15:04:05 GMT",
}

var (
	trueWords  = map[string]struct{}{"true": {}, "y": {}, "yes": {}, "1": {}}
	falseWords = map[string]struct{}{"false": {}, "n": {}, "no": {}, "0": {}}
)

// Boolean maps a flag-like value onto true/false. Strings are matched
// case-insensitively, numbers must be exactly 1 or 0. Anything else yields nil.
func Boolean(v interface{}) (out *bool) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()

	switch val := v.(type) {
	case bool:
		return boolPtr(val)
	case string:
		lower := strings.ToLower(val)
		if _, ok := trueWords[lower]; ok {
			return boolPtr(true)
		}
		if _, ok := falseWords[lower]; ok {
			return boolPtr(false)
		}
		return nil
	}

	d, ok := numeric(v)
	if !ok {
		return nil
	}
	switch {
	case d.Equal(decimal.NewFromInt(1)):
		return boolPtr(true)
	case d.IsZero():
		return boolPtr(false)
	}
	return nil
}

// Date parses v as an instant and renders it with ISOMillis. Strings go through
// cast's layout list, then looseLayouts; numbers are Unix epoch milliseconds. An unparsable or
// out-of-range value yields "".
func Date(v interface{}) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()

	var t time.Time
	switch val := v.(type) {
	case nil, bool:
		return ""
	case time.Time:
		t = val
	case string:
		if strings.TrimSpace(val) == "" {
			return ""
		}
		parsed, ok := parseDateString(strings.TrimSpace(val))
		if !ok {
			return ""
		}
		t = parsed
	default:
		d, ok := numeric(v)
		if !ok {
			return ""
		}
		if d.Abs().GreaterThan(decimal.NewFromFloat(maxEpochMillis)) {
			return ""
		}
		t = time.UnixMilli(d.Truncate(0).IntPart())
	}

	if t.IsZero() {
		return ""
	}
	t = t.UTC()
	if t.Year() < 0 || t.Year() > 9999 {
		return ""
	}
	return t.Format(ISOMillis)
}

// String coerces v like a JavaScript String() call for scalars: numbers in
// their shortest decimal form. Objects and arrays become JSON rather than
// "[object Object]" so nested values survive.
func String(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return val.String()
		}
		return d.String()
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}

	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

func parseDateString(s string) (time.Time, bool) {
	if t, err := cast.ToTimeE(s); err == nil {
		return t, true
	}
	// Date.toString appends the zone name in parentheses.
	if i := strings.LastIndex(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}
	for _, layout := range looseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Truthy reports JavaScript truthiness: nil, false, "", 0 and NaN are falsy.
func Truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0 && !math.IsNaN(val)
	case float32:
		return val != 0 && !math.IsNaN(float64(val))
	}
	if d, ok := numeric(v); ok {
		return !d.IsZero()
	}
	return true
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return decimal.NewFromFloat(f).String()
}

// numeric extracts a decimal from any JSON or Go numeric type.
func numeric(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(val), true
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int8:
		return decimal.NewFromInt(int64(val)), true
	case int16:
		return decimal.NewFromInt(int64(val)), true
	case int32:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(val)), 0), true
	case uint32:
		return decimal.NewFromInt(int64(val)), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(val), 0), true
	}
	return decimal.Zero, false
}

func boolPtr(b bool) *bool { return &b }

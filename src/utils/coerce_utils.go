package utils

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts accepted from upstream providers, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
}

// CoerceDate parses a raw value into a date. Accepts strings in any of the
// supported layouts. Returns an error for everything else; the zero time is
// never returned silently.
func CoerceDate(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected date string, got %T", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// CoerceDecimal parses a raw value into a decimal. Accepts JSON numbers and
// strings; currency symbols, commas, and surrounding whitespace are stripped
// from strings before parsing.
func CoerceDecimal(v any) (decimal.Decimal, error) {
	switch value := v.(type) {
	case float64:
		return decimal.NewFromFloat(value), nil
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	case json.Number:
		return decimal.NewFromString(value.String())
	case string:
		cleaned := strings.TrimSpace(value)
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.TrimPrefix(cleaned, "$")
		if cleaned == "" {
			return decimal.Decimal{}, fmt.Errorf("empty amount")
		}
		return decimal.NewFromString(cleaned)
	default:
		return decimal.Decimal{}, fmt.Errorf("expected numeric value, got %T", v)
	}
}

// CoerceString renders a raw value as a trimmed string.
func CoerceString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return decimal.NewFromFloat(value).String()
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", value))
	}
}

package ranking

import (
	"math"
	"strconv"
	"strings"
)

// Normalize maps a raw row from any upstream variant onto the canonical shape.
// For every canonical field the first alias holding a usable value wins. A missing week
// score stays nil, a missing total becomes 0. Malformed values are treated as absent.
func Normalize(raw RawRow) Row {
	row := Row{
		Identity:    lookupString(raw, FieldAliases[FieldIdentity]),
		DisplayName: lookupString(raw, FieldAliases[FieldDisplayName]),
		Context: Context{
			Competition: lookupString(raw, FieldAliases[FieldCompetition]),
			Group:       lookupString(raw, FieldAliases[FieldGroup]),
			Club:        lookupString(raw, FieldAliases[FieldClub]),
		},
	}

	if week, ok := lookupNumber(raw, FieldAliases[FieldWeekScore]); ok {
		row.WeekScore = &week
	}
	if total, ok := lookupNumber(raw, FieldAliases[FieldTotalScore]); ok {
		row.TotalScore = total
	}

	return row
}

func NormalizeAll(raws []RawRow) []Row {
	out := make([]Row, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		out = append(out, Normalize(raw))
	}
	return out
}

// NormalizeTop normalizes the single top-of-window entity, which may be absent.
func NormalizeTop(raw RawRow) *Row {
	if len(raw) == 0 {
		return nil
	}
	row := Normalize(raw)
	return &row
}

func lookupNumber(raw RawRow, keys []string) (float64, bool) {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		if number, ok := toFloat64(value); ok {
			return number, true
		}
	}
	return 0, false
}

func lookupString(raw RawRow, keys []string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		if text := toText(value); text != "" {
			return text
		}
	}
	return ""
}

func toFloat64(value any) (float64, bool) {
	var out float64
	switch typed := value.(type) {
	case float64:
		out = typed
	case float32:
		out = float64(typed)
	case int:
		out = float64(typed)
	case int8:
		out = float64(typed)
	case int16:
		out = float64(typed)
	case int32:
		out = float64(typed)
	case int64:
		out = float64(typed)
	case uint:
		out = float64(typed)
	case uint8:
		out = float64(typed)
	case uint16:
		out = float64(typed)
	case uint32:
		out = float64(typed)
	case uint64:
		out = float64(typed)
	case interface{ Float64() (float64, error) }:
		v, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		out = v
	case string:
		v, ok := parseNumericString(typed)
		if !ok {
			return 0, false
		}
		out = v
	default:
		return 0, false
	}

	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}

// parseNumericString accepts plain and decimal-comma notations ("12", "3.5", "3,5").
func parseNumericString(raw string) (float64, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}
	if strings.Count(value, ",") == 1 && !strings.Contains(value, ".") {
		value = strings.Replace(value, ",", ".", 1)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func toText(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case bool:
		return ""
	case map[string]any, []any:
		return ""
	}
	if number, ok := toFloat64(value); ok {
		return formatNumber(number)
	}
	return ""
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

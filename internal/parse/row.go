package parse

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the backend's calendar date format.
const DateLayout = "2006-01-02"

// Cell renders one positional tuple cell as text. JSON null becomes "".
func Cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// Row returns the first n cells of a tuple as text.
// Extra trailing cells are ignored; a short row is an error.
func Row(row []any, n int) ([]string, error) {
	if len(row) < n {
		return nil, fmt.Errorf("tuple has %d fields, want at least %d", len(row), n)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = strings.TrimSpace(Cell(row[i]))
	}
	return out, nil
}

// Number reads a numeric cell that may arrive as a JSON number or a string.
func Number(v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return val, nil
	case json.Number:
		return val.Float64()
	case string:
		if strings.TrimSpace(val) == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric cell %T", v)
	}
}

// Date parses a YYYY-MM-DD calendar date.
func Date(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

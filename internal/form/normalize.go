package form

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// String coerces any submitted value into a single string.
// nil becomes "", a list becomes its first element (or "" when that element
// is empty or falsy), and anything else its string form.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []string:
		if len(val) == 0 {
			return ""
		}
		return val[0]
	case []any:
		if len(val) == 0 || isFalsy(val[0]) {
			return ""
		}
		return scalar(val[0])
	default:
		return scalar(val)
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = scalar(item)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case float64:
		return val == 0
	case int:
		return val == 0
	}
	return false
}

// Checked reports whether a submitted checked-state means true.
// Only a boolean true or the string "true" qualify.
func Checked(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true"
	case []string:
		return len(val) > 0 && val[0] == "true"
	case []any:
		return len(val) > 0 && Checked(val[0])
	}
	return false
}

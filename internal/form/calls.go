package form

import (
	"encoding/json"
	"fmt"
	"strings"

	"prospect-tracker-api/internal/model"
)

// CallSlots is the number of outreach touchpoints per prospect.
const CallSlots = 3

// CallInput is what a submission says about one call slot.
type CallInput struct {
	// Structured is set when callN carried a {checked, notes} object,
	// either directly or JSON-encoded in a string.
	Structured *model.CallRecord
	Checked    bool
	Notes      Field
}

// Call reads slot n (1-based) from callN, or from callN_checked/callN_notes.
func (v Values) Call(n int) CallInput {
	key := fmt.Sprintf("call%d", n)

	if raw, ok := v.Raw(key); ok {
		if rec, ok := parseCallRecord(raw); ok {
			return CallInput{Structured: &rec}
		}
	}

	checked, _ := v.Raw(key + "_checked")
	return CallInput{
		Checked: Checked(checked),
		Notes:   v.Field(key + "_notes"),
	}
}

// Resolve produces the stored call record. Notes fall back to fallbackNotes
// only when no notes field was submitted; checked never falls back.
func (c CallInput) Resolve(fallbackNotes string) model.CallRecord {
	if c.Structured != nil {
		return *c.Structured
	}
	notes := fallbackNotes
	if c.Notes.Present {
		notes = c.Notes.Value
	}
	return model.CallRecord{Checked: c.Checked, Notes: notes}
}

func parseCallRecord(raw any) (model.CallRecord, bool) {
	switch val := raw.(type) {
	case map[string]any:
		return callFromMap(val), true
	case string:
		return decodeCallRecord(val)
	case []string:
		if len(val) == 0 {
			return model.CallRecord{}, false
		}
		return decodeCallRecord(val[0])
	case []any:
		if len(val) == 0 {
			return model.CallRecord{}, false
		}
		return parseCallRecord(val[0])
	}
	return model.CallRecord{}, false
}

func decodeCallRecord(text string) (model.CallRecord, bool) {
	if strings.TrimSpace(text) == "" {
		return model.CallRecord{}, false
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return model.CallRecord{}, false
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return model.CallRecord{}, false
	}
	return callFromMap(m), true
}

func callFromMap(m map[string]any) model.CallRecord {
	return model.CallRecord{
		Checked: structuredChecked(m["checked"]),
		Notes:   String(m["notes"]),
	}
}

// structuredChecked reads checked inside a {checked, notes} object, where
// 1, "1" and "yes" also mean true.
func structuredChecked(v any) bool {
	switch val := v.(type) {
	case string:
		return val == "true" || val == "1" || val == "yes"
	case json.Number:
		return val.String() == "1"
	case float64:
		return val == 1
	case int:
		return val == 1
	}
	return Checked(v)
}

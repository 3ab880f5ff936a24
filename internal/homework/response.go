package homework

import "fmt"

// Record is one homework entry exactly as the API returned it.
// Field-level checks are deferred to ParseStatus so a single malformed entry
// doesn't invalidate the whole batch.
type Record map[string]any

// Records validates the envelope of a decoded API payload and returns its
// homework entries.
//
// Only the envelope is checked here: top-level shape, presence and type of
// the homeworks list. Entries pass through unchanged.
func Records(raw any) ([]Record, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &MalformedResponseError{
			Reason: fmt.Sprintf("ожидался объект, получен %T", raw),
		}
	}

	v, ok := m["homeworks"]
	if !ok {
		return nil, &MissingFieldError{Field: "homeworks"}
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &MalformedResponseError{
			Reason: fmt.Sprintf("значение ключа \"homeworks\" должно быть списком, получен %T", v),
		}
	}

	recs := make([]Record, 0, len(list))
	for _, it := range list {
		if rm, ok := it.(map[string]any); ok {
			recs = append(recs, Record(rm))
		} else {
			// Keep the slot so ParseStatus can report the missing fields.
			recs = append(recs, Record{})
		}
	}
	return recs, nil
}

// CurrentDate extracts the server-reported clock from the payload, when
// present and numeric. The poll cursor only ever advances to this value,
// never to local wall-clock time.
func CurrentDate(raw any) (int64, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return 0, false
	}
	return asInt64(m["current_date"])
}

// asInt64 accepts the numeric encodings encoding/json may produce.
func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	default:
		return 0, false
	}
}

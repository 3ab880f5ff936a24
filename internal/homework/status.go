package homework

import (
	"fmt"
	"sort"
)

// Status is a fully interpreted homework record.
type Status struct {
	Name        string
	Verdict     Verdict
	DateUpdated int64
}

// ParseStatus interprets a single record.
//
// Both the name and the status code must be present, and the code must be a
// recognized verdict. An unrecognized code is a hard error: it likely means
// the API contract changed, and the operator has to see that.
func ParseStatus(rec Record) (Status, error) {
	name, ok := rec["homework_name"].(string)
	if !ok {
		return Status{}, &MissingFieldError{Field: "homework_name"}
	}
	code, ok := rec["status"].(string)
	if !ok {
		return Status{}, &MissingFieldError{Field: "status"}
	}

	v := Verdict(code)
	if !v.Known() {
		return Status{}, &UnknownVerdictError{Code: code}
	}

	updated, _ := asInt64(rec["date_updated"])
	return Status{Name: name, Verdict: v, DateUpdated: updated}, nil
}

// Message renders the fixed notification template for the status.
func (s Status) Message() string {
	text, _ := s.Verdict.Text()
	return fmt.Sprintf("Изменился статус проверки работы %q. %s", s.Name, text)
}

// Latest returns the most recently updated record of a batch.
//
// Order is date_updated descending; a record without the field sorts as 0
// (oldest possible). The sort is stable, so equal timestamps resolve to the
// earliest record in the original response order.
func Latest(recs []Record) (Record, bool) {
	if len(recs) == 0 {
		return nil, false
	}
	sorted := append([]Record(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ui, _ := asInt64(sorted[i]["date_updated"])
		uj, _ := asInt64(sorted[j]["date_updated"])
		return ui > uj
	})
	return sorted[0], true
}

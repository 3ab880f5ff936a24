package homework

import (
	"encoding/json"
	"errors"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", s, err)
	}
	return v
}

func TestRecordsEnvelope(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     any
		count   int
		wantErr any // pointer to typed error, or nil
	}{
		{name: "valid", raw: decode(t, `{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":50}`), count: 1},
		{name: "empty list", raw: decode(t, `{"homeworks":[],"current_date":50}`), count: 0},
		{name: "top level not object", raw: decode(t, `["homeworks"]`), wantErr: &MalformedResponseError{}},
		{name: "top level scalar", raw: "nope", wantErr: &MalformedResponseError{}},
		{name: "missing homeworks", raw: decode(t, `{"current_date":50}`), wantErr: &MissingFieldError{}},
		{name: "homeworks not a list", raw: decode(t, `{"homeworks":"not-a-list"}`), wantErr: &MalformedResponseError{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			recs, err := Records(tt.raw)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Records error: %v", err)
				}
				if len(recs) != tt.count {
					t.Fatalf("len(recs) = %d, want %d", len(recs), tt.count)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error, got %d records", len(recs))
			}
			switch want := tt.wantErr.(type) {
			case *MalformedResponseError:
				var e *MalformedResponseError
				if !errors.As(err, &e) {
					t.Fatalf("error = %v, want MalformedResponseError", err)
				}
			case *MissingFieldError:
				var e *MissingFieldError
				if !errors.As(err, &e) {
					t.Fatalf("error = %v, want MissingFieldError", err)
				}
				if e.Field != "homeworks" {
					t.Fatalf("Field = %q, want %q", e.Field, "homeworks")
				}
			default:
				t.Fatalf("unhandled want type %T", want)
			}
		})
	}
}

func TestCurrentDate(t *testing.T) {
	t.Parallel()

	if d, ok := CurrentDate(decode(t, `{"homeworks":[],"current_date":1700000000}`)); !ok || d != 1700000000 {
		t.Fatalf("CurrentDate = (%d, %v), want (1700000000, true)", d, ok)
	}
	if _, ok := CurrentDate(decode(t, `{"homeworks":[]}`)); ok {
		t.Fatal("expected absent current_date")
	}
	if _, ok := CurrentDate(decode(t, `{"current_date":"soon"}`)); ok {
		t.Fatal("non-numeric current_date must not be used")
	}
	if _, ok := CurrentDate("nope"); ok {
		t.Fatal("non-object payload must not yield a date")
	}
}

package booking

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		fields []string
	}{
		{name: "valid", mutate: func(*Draft) {}},
		{name: "email optional", mutate: func(d *Draft) { d.Email = "" }},
		{name: "bad email", mutate: func(d *Draft) { d.Email = "jane-at-example" }, fields: []string{"email"}},
		{name: "blank name", mutate: func(d *Draft) { d.GuestName = "   " }, fields: []string{"guestName"}},
		{name: "short phone", mutate: func(d *Draft) { d.PhoneNumber = "55" }, fields: []string{"phoneNumber"}},
		{name: "zero start", mutate: func(d *Draft) { d.StartTime = time.Time{} }, fields: []string{"startTime"}},
		{name: "zero duration", mutate: func(d *Draft) { d.DurationMinutes = 0 }, fields: []string{"durationMinutes"}},
		{
			name: "several",
			mutate: func(d *Draft) {
				d.GuestName = ""
				d.Service = ""
				d.DurationMinutes = 481
			},
			fields: []string{"guestName", "service", "durationMinutes"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)
			err := d.Validate()
			if len(tc.fields) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if got := verr.FieldNames(); !reflect.DeepEqual(got, tc.fields) {
				t.Fatalf("FieldNames() = %v, want %v", got, tc.fields)
			}
		})
	}
}

func TestParseDraft(t *testing.T) {
	draft, err := ParseDraft([]byte(`{
		"guestName": " Jane ",
		"phoneNumber": "555-1234",
		"email": "jane@example.com",
		"service": "massage",
		"startTime": "2026-10-20T15:30:00.000Z",
		"durationMinutes": 60
	}`))
	if err != nil {
		t.Fatalf("ParseDraft() error = %v", err)
	}
	if draft.GuestName != "Jane" {
		t.Fatalf("GuestName = %q, want Jane", draft.GuestName)
	}
	want := time.Date(2026, 10, 20, 15, 30, 0, 0, time.UTC)
	if !draft.StartTime.Equal(want) {
		t.Fatalf("StartTime = %v, want %v", draft.StartTime, want)
	}
}

func TestParseDraftRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "malformed instant",
			body:  `{"guestName":"Jane","phoneNumber":"555","service":"x","startTime":"tomorrow","durationMinutes":30}`,
			field: "startTime",
		},
		{
			name:  "duration wrong type",
			body:  `{"guestName":"Jane","phoneNumber":"555","service":"x","startTime":"2026-10-20T10:00:00Z","durationMinutes":"thirty"}`,
			field: "durationMinutes",
		},
		{
			name:  "missing duration",
			body:  `{"guestName":"Jane","phoneNumber":"555","service":"x","startTime":"2026-10-20T10:00:00Z"}`,
			field: "durationMinutes",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDraft([]byte(tc.body))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ParseDraft() error = %v, want ValidationError", err)
			}
			if !verr.Has(tc.field) {
				t.Fatalf("fields = %+v, want %s", verr.Fields, tc.field)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus(" Confirmed ")
	if err != nil || got != StatusConfirmed {
		t.Fatalf("ParseStatus() = %q, %v", got, err)
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Fatalf("ParseStatus(done) expected error")
	}
}

func TestUpcoming(t *testing.T) {
	now := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	bookings := []Booking{
		{ID: "old", StartTime: now.Add(-4 * time.Hour)},
		{ID: "recent", StartTime: now.Add(-2 * time.Hour)},
		{ID: "edge", StartTime: now.Add(-3 * time.Hour)},
		{ID: "future", StartTime: now.Add(24 * time.Hour)},
	}
	got := Upcoming(bookings, now)
	var ids []string
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	if want := []string{"recent", "edge", "future"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("Upcoming() ids = %v, want %v", ids, want)
	}
}

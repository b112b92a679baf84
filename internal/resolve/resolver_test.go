package resolve

import (
	"reflect"
	"testing"
	"time"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/extract"
)

var now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func fixture(id, name, phone, service string, start time.Time, status booking.Status) booking.Booking {
	return booking.Booking{
		ID:              id,
		GuestName:       name,
		PhoneNumber:     phone,
		Service:         service,
		StartTime:       start,
		DurationMinutes: 30,
		Status:          status,
	}
}

func TestResolveScheduleCreatesWithCatalogDuration(t *testing.T) {
	r := New(Options{})
	start := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	ex := extract.Extraction{
		Intent: extract.IntentSchedule,
		Fields: extract.Fields{GuestName: "Jane", PhoneNumber: "555-1234", Service: "Haircut", StartTime: &start},
	}

	d := r.Resolve(ex, nil, now)
	if d.Action.Type != ActionCreate || d.Reason != ReasonCreated {
		t.Fatalf("decision = %s/%s, want create/created", d.Action.Type, d.Reason)
	}
	got := *d.Action.Draft
	if got.Service != "haircut" {
		t.Fatalf("Service = %q, want haircut", got.Service)
	}
	if got.DurationMinutes != 30 {
		t.Fatalf("DurationMinutes = %d, want 30", got.DurationMinutes)
	}
	if !got.StartTime.Equal(start) {
		t.Fatalf("StartTime = %v, want %v", got.StartTime, start)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("draft.Validate() error = %v", err)
	}
}

func TestResolveDurationPolicy(t *testing.T) {
	start := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		service string
		stated  int
		want    int
	}{
		{"stated wins", "massage", 90, 90},
		{"catalog default", "massage", 0, 60},
		{"configured fallback", "yoga class", 0, 50},
	}
	r := New(Options{DefaultDurationMinutes: 50})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ex := extract.Extraction{
				Intent: extract.IntentSchedule,
				Fields: extract.Fields{GuestName: "Jane", PhoneNumber: "555-1234", Service: tc.service, StartTime: &start, DurationMinutes: tc.stated},
			}
			d := r.Resolve(ex, nil, now)
			if d.Action.Type != ActionCreate {
				t.Fatalf("Action.Type = %s, want create (reason %s)", d.Action.Type, d.Reason)
			}
			if d.Action.Draft.DurationMinutes != tc.want {
				t.Fatalf("DurationMinutes = %d, want %d", d.Action.Draft.DurationMinutes, tc.want)
			}
		})
	}
}

func TestResolveScheduleListsMissingInOrder(t *testing.T) {
	r := New(Options{})
	ex := extract.Extraction{Intent: extract.IntentSchedule, Fields: extract.Fields{Service: "massage"}}

	d := r.Resolve(ex, nil, now)
	if d.Action.Type != ActionNone || d.Reason != ReasonMissingFields {
		t.Fatalf("decision = %s/%s, want none/missing_fields", d.Action.Type, d.Reason)
	}
	want := []string{"guestName", "phoneNumber", "startTime"}
	if !reflect.DeepEqual(d.Missing, want) {
		t.Fatalf("Missing = %v, want %v", d.Missing, want)
	}
	if d.Draft.Service != "massage" {
		t.Fatalf("Draft.Service = %q, want massage", d.Draft.Service)
	}
}

func TestResolveScheduleUnresolvedTimeIsMissing(t *testing.T) {
	r := New(Options{})
	ex := extract.Extraction{
		Intent:     extract.IntentSchedule,
		Fields:     extract.Fields{GuestName: "Jane", PhoneNumber: "555-1234", Service: "haircut", TimeExpression: "tomorrow afternoon"},
		Unresolved: []string{"startTime"},
	}
	d := r.Resolve(ex, nil, now)
	if !reflect.DeepEqual(d.Missing, []string{"startTime"}) {
		t.Fatalf("Missing = %v, want [startTime]", d.Missing)
	}
	if d.TimeExpression != "tomorrow afternoon" {
		t.Fatalf("TimeExpression = %q, want tomorrow afternoon", d.TimeExpression)
	}
}

func TestResolveScheduleInvalidFields(t *testing.T) {
	r := New(Options{})
	past := now.Add(-2 * time.Hour)
	ex := extract.Extraction{
		Intent: extract.IntentSchedule,
		Fields: extract.Fields{
			GuestName:       "Jane",
			PhoneNumber:     "555-1234",
			Email:           "jane-at-example",
			Service:         "haircut",
			StartTime:       &past,
			DurationMinutes: 600,
		},
	}
	d := r.Resolve(ex, nil, now)
	if d.Action.Type != ActionNone || d.Reason != ReasonInvalidFields {
		t.Fatalf("decision = %s/%s, want none/invalid_fields", d.Action.Type, d.Reason)
	}
	fields := map[string]string{}
	for _, fe := range d.Invalid {
		fields[fe.Field] = fe.Rule
	}
	want := map[string]string{"email": "email", "durationMinutes": "max", "startTime": "future"}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("Invalid = %v, want %v", fields, want)
	}
}

func TestResolveScheduleMissingAndInvalidTogether(t *testing.T) {
	r := New(Options{})
	ex := extract.Extraction{
		Intent: extract.IntentSchedule,
		Fields: extract.Fields{GuestName: "Jane", Email: "nope", Service: "facial"},
	}
	d := r.Resolve(ex, nil, now)
	if d.Reason != ReasonMissingFields {
		t.Fatalf("Reason = %s, want missing_fields", d.Reason)
	}
	if len(d.Invalid) != 1 || d.Invalid[0].Field != "email" {
		t.Fatalf("Invalid = %v, want email", d.Invalid)
	}
}

func TestResolveScheduleDuplicateGuard(t *testing.T) {
	r := New(Options{})
	start := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	existing := fixture("b1", "Jane", "(555) 123-4", "haircut", start, booking.StatusPending)
	ex := extract.Extraction{
		Intent: extract.IntentSchedule,
		Fields: extract.Fields{GuestName: "Jane", PhoneNumber: "555-1234", Service: "haircut", StartTime: &start},
	}

	d := r.Resolve(ex, []booking.Booking{existing}, now)
	if d.Action.Type != ActionNone || d.Reason != ReasonDuplicate {
		t.Fatalf("decision = %s/%s, want none/duplicate", d.Action.Type, d.Reason)
	}
	if d.Target == nil || d.Target.ID != "b1" {
		t.Fatalf("Target = %v, want b1", d.Target)
	}

	existing.Status = booking.StatusCancelled
	d = r.Resolve(ex, []booking.Booking{existing}, now)
	if d.Action.Type != ActionCreate {
		t.Fatalf("Action.Type = %s, want create when the twin is cancelled", d.Action.Type)
	}
}

func TestResolveCancelUniqueByPhone(t *testing.T) {
	r := New(Options{})
	bookings := []booking.Booking{
		fixture("b1", "Jane", "555-1234", "haircut", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), booking.StatusPending),
		fixture("b2", "Bob", "555-9876", "massage", time.Date(2026, 10, 21, 15, 0, 0, 0, time.UTC), booking.StatusPending),
	}
	ex := extract.Extraction{Intent: extract.IntentCancel, Fields: extract.Fields{GuestName: "Jane", PhoneNumber: "555-1234"}}

	d := r.Resolve(ex, bookings, now)
	want := UpdateAction("b1", booking.StatusCancelled)
	if !reflect.DeepEqual(d.Action, want) {
		t.Fatalf("Action = %+v, want %+v", d.Action, want)
	}
	if d.Reason != ReasonUpdated {
		t.Fatalf("Reason = %s, want updated", d.Reason)
	}
}

func TestResolveCancelAmbiguousByName(t *testing.T) {
	r := New(Options{})
	bookings := []booking.Booking{
		fixture("b1", "Jane", "555-1234", "haircut", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), booking.StatusPending),
		fixture("b2", "jane", "555-1234", "massage", time.Date(2026, 10, 23, 15, 0, 0, 0, time.UTC), booking.StatusConfirmed),
	}
	ex := extract.Extraction{Intent: extract.IntentCancel, Fields: extract.Fields{GuestName: "Jane"}}

	d := r.Resolve(ex, bookings, now)
	if d.Action.Type != ActionNone || d.Reason != ReasonAmbiguousTarget {
		t.Fatalf("decision = %s/%s, want none/ambiguous_target", d.Action.Type, d.Reason)
	}
	if len(d.Candidates) != 2 {
		t.Fatalf("len(Candidates) = %d, want 2", len(d.Candidates))
	}
}

func TestResolveConfirmAlreadyConfirmed(t *testing.T) {
	r := New(Options{})
	bookings := []booking.Booking{
		fixture("b1", "Jane", "555-1234", "haircut", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), booking.StatusConfirmed),
	}
	ex := extract.Extraction{Intent: extract.IntentConfirm, Fields: extract.Fields{PhoneNumber: "555 1234"}}

	d := r.Resolve(ex, bookings, now)
	if d.Action.Type != ActionNone || d.Reason != ReasonAlreadyInStatus {
		t.Fatalf("decision = %s/%s, want none/already_in_status", d.Action.Type, d.Reason)
	}
	if d.Target == nil || d.Target.ID != "b1" {
		t.Fatalf("Target = %v, want b1", d.Target)
	}
}

func TestResolveCancelWithoutIdentity(t *testing.T) {
	r := New(Options{})
	bookings := []booking.Booking{
		fixture("b1", "Jane", "555-1234", "haircut", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), booking.StatusPending),
	}
	d := r.Resolve(extract.Extraction{Intent: extract.IntentCancel}, bookings, now)
	if d.Action.Type != ActionNone || d.Reason != ReasonNoTarget {
		t.Fatalf("decision = %s/%s, want none/no_target", d.Action.Type, d.Reason)
	}
}

func TestResolveUnclear(t *testing.T) {
	d := New(Options{}).Resolve(extract.Extraction{Intent: extract.IntentUnclear}, nil, now)
	if d.Action.Type != ActionNone || d.Reason != ReasonUnclear {
		t.Fatalf("decision = %s/%s, want none/unclear", d.Action.Type, d.Reason)
	}
}

func TestExtractionFailedDecision(t *testing.T) {
	d := ExtractionFailed()
	if d.Action.Type != ActionNone || d.Reason != ReasonExtractionFailed {
		t.Fatalf("decision = %s/%s, want none/extraction_failed", d.Action.Type, d.Reason)
	}
}

func TestResolveConfirmSkipsCancelled(t *testing.T) {
	r := New(Options{})
	bookings := []booking.Booking{
		fixture("b1", "Jane", "555-1234", "haircut", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), booking.StatusCancelled),
	}
	ex := extract.Extraction{Intent: extract.IntentConfirm, Fields: extract.Fields{PhoneNumber: "555-1234"}}

	d := r.Resolve(ex, bookings, now)
	if d.Action.Type != ActionNone || d.Reason != ReasonNoTarget {
		t.Fatalf("decision = %s/%s, want none/no_target", d.Action.Type, d.Reason)
	}

	ex.Fields.BookingID = "b1"
	d = r.Resolve(ex, bookings, now)
	want := UpdateAction("b1", booking.StatusConfirmed)
	if !reflect.DeepEqual(d.Action, want) {
		t.Fatalf("Action = %+v, want %+v by explicit id", d.Action, want)
	}
}

package extract

import (
	"context"
	"errors"
	"time"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/conversation"
)

// Intent is what the caller is trying to do, read from the transcript.
type Intent string

const (
	IntentSchedule Intent = "schedule"
	IntentConfirm  Intent = "confirm"
	IntentCancel   Intent = "cancel"
	IntentUnclear  Intent = "unclear"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentSchedule, IntentConfirm, IntentCancel, IntentUnclear:
		return true
	default:
		return false
	}
}

// ErrExtraction wraps failures of the interpretation step itself: the
// backing model was unreachable or answered with something unparseable.
var ErrExtraction = errors.New("extraction failed")

// Fields is the accumulated slot set. Zero values mean "not stated".
type Fields struct {
	GuestName   string `json:"guestName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
	Service     string `json:"service,omitempty"`
	Notes       string `json:"notes,omitempty"`

	// StartTime is nil until a concrete instant is known.
	StartTime *time.Time `json:"startTime,omitempty"`
	// TimeExpression keeps the caller's wording when it could not be
	// pinned to an instant ("tomorrow afternoon").
	TimeExpression string `json:"timeExpression,omitempty"`
	// ClockOnly is set when the instant came from a time of day with no
	// date, resolved to its next occurrence.
	ClockOnly bool `json:"clockOnly,omitempty"`
	// Day is the mentioned calendar day at midnight, when one was given.
	Day *time.Time `json:"day,omitempty"`

	DurationMinutes int    `json:"durationMinutes,omitempty"`
	BookingID       string `json:"bookingId,omitempty"`
}

type Extraction struct {
	Intent Intent `json:"intent"`
	Fields Fields `json:"fields"`
	// Unresolved names fields the caller mentioned that could not be
	// turned into a usable value.
	Unresolved []string `json:"unresolved,omitempty"`
}

func (e Extraction) IsUnresolved(field string) bool {
	for _, f := range e.Unresolved {
		if f == field {
			return true
		}
	}
	return false
}

type Request struct {
	History  []conversation.Turn
	Bookings []booking.Booking
	Now      time.Time
}

// Extractor turns a transcript into intent and slots. Implementations keep
// no state between calls; everything is derived from the request.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Extraction, error)
}

// Named is implemented by extractors that report a stable name for logs and
// metrics.
type Named interface {
	Name() string
}

func NameOf(e Extractor) string {
	if n, ok := e.(Named); ok {
		return n.Name()
	}
	return "custom"
}

func finalize(ex Extraction) Extraction {
	if !ex.Intent.Valid() {
		ex.Intent = IntentUnclear
	}
	ex.Unresolved = nil
	if ex.Fields.StartTime == nil && (ex.Fields.TimeExpression != "" || ex.Fields.Day != nil) {
		ex.Unresolved = append(ex.Unresolved, "startTime")
	}
	return ex
}

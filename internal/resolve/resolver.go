package resolve

import (
	"errors"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/catalog"
	"github.com/ent0n29/receptionist/internal/extract"
)

const DefaultDurationMinutes = 45

// requiredOrder is the order missing fields are reported in.
var requiredOrder = []string{"guestName", "phoneNumber", "service", "startTime"}

// Decision is the resolver's verdict for one turn along with the context the
// reply needs to explain it.
//
// A unique cancel or confirm target that already has the requested status
// yields no action with ReasonAlreadyInStatus instead of a no-op update.
// Cancelled bookings are never candidates for either intent, so confirming
// cannot revive one; only an explicit booking id or a manual status change
// reaches them.
type Decision struct {
	Action Action
	Reason Reason
	Intent extract.Intent

	Missing []string
	Invalid []booking.FieldError

	Target     *booking.Booking
	Candidates []booking.Booking

	// Draft holds whatever was assembled for a schedule request, complete or not.
	Draft booking.Draft
	// TimeExpression is the caller's wording for a start that could not be pinned down.
	TimeExpression string
}

type Options struct {
	Catalog                *catalog.Catalog
	DefaultDurationMinutes int
}

// Resolver maps an extraction and a booking snapshot to at most one action.
type Resolver struct {
	catalog         *catalog.Catalog
	defaultDuration int
}

func New(opts Options) *Resolver {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.DefaultDurationMinutes <= 0 {
		opts.DefaultDurationMinutes = DefaultDurationMinutes
	}
	return &Resolver{catalog: opts.Catalog, defaultDuration: opts.DefaultDurationMinutes}
}

// Resolve applies the decision table. It never touches a store.
func (r *Resolver) Resolve(ex extract.Extraction, bookings []booking.Booking, now time.Time) Decision {
	switch ex.Intent {
	case extract.IntentCancel:
		return r.resolveStatus(ex, bookings, booking.StatusCancelled)
	case extract.IntentConfirm:
		return r.resolveStatus(ex, bookings, booking.StatusConfirmed)
	case extract.IntentSchedule:
		return r.resolveSchedule(ex, bookings, now)
	default:
		return Decision{Action: NoAction(), Reason: ReasonUnclear, Intent: extract.IntentUnclear}
	}
}

// ExtractionFailed is the decision for a turn whose transcript could not be read.
func ExtractionFailed() Decision {
	return Decision{Action: NoAction(), Reason: ReasonExtractionFailed, Intent: extract.IntentUnclear}
}

func (r *Resolver) resolveStatus(ex extract.Extraction, bookings []booking.Booking, status booking.Status) Decision {
	d := Decision{Action: NoAction(), Intent: ex.Intent}
	match := Disambiguate(ReferenceFrom(ex.Fields), bookings, ex.Intent)
	d.Candidates = match.Candidates

	switch match.Kind {
	case MatchUnique:
		target := match.Booking
		d.Target = &target
		if target.Status == status {
			d.Reason = ReasonAlreadyInStatus
			return d
		}
		d.Action = UpdateAction(target.ID, status)
		d.Reason = ReasonUpdated
	case MatchAmbiguous:
		d.Reason = ReasonAmbiguousTarget
	default:
		d.Reason = ReasonNoTarget
	}
	return d
}

func (r *Resolver) resolveSchedule(ex extract.Extraction, bookings []booking.Booking, now time.Time) Decision {
	f := ex.Fields
	draft := booking.Draft{
		GuestName:   f.GuestName,
		PhoneNumber: f.PhoneNumber,
		Email:       f.Email,
		Service:     f.Service,
		Notes:       f.Notes,
	}.Normalize()
	if s, ok := r.catalog.Lookup(draft.Service); ok {
		draft.Service = s.Name
	}
	if f.StartTime != nil {
		draft.StartTime = *f.StartTime
	}
	draft.DurationMinutes = r.durationFor(f.DurationMinutes, draft.Service)

	d := Decision{Action: NoAction(), Intent: ex.Intent, Draft: draft, TimeExpression: f.TimeExpression}

	present := map[string]bool{
		"guestName":   draft.GuestName != "",
		"phoneNumber": draft.PhoneNumber != "",
		"service":     draft.Service != "",
		"startTime":   f.StartTime != nil,
	}
	d.Missing = pie.Filter(requiredOrder, func(field string) bool { return !present[field] })

	var verr *booking.ValidationError
	if err := draft.Validate(); errors.As(err, &verr) {
		d.Invalid = pie.Filter(verr.Fields, func(fe booking.FieldError) bool { return fe.Rule != "required" })
	}
	if f.StartTime != nil && f.StartTime.Before(now) {
		d.Invalid = append(d.Invalid, booking.FieldError{Field: "startTime", Rule: "future"})
	}

	switch {
	case len(d.Missing) > 0:
		d.Reason = ReasonMissingFields
		return d
	case len(d.Invalid) > 0:
		d.Reason = ReasonInvalidFields
		return d
	}

	if dup, ok := findDuplicate(draft, bookings); ok {
		d.Target = &dup
		d.Reason = ReasonDuplicate
		return d
	}
	d.Action = CreateAction(draft)
	d.Reason = ReasonCreated
	return d
}

// durationFor prefers a stated length, then the service default, then the
// configured fallback.
func (r *Resolver) durationFor(stated int, service string) int {
	if stated != 0 {
		return stated
	}
	if minutes, ok := r.catalog.DurationFor(service); ok && minutes > 0 {
		return minutes
	}
	return r.defaultDuration
}

// findDuplicate reports a live booking with the same phone, service and
// start, so a replayed transcript does not book twice.
func findDuplicate(draft booking.Draft, bookings []booking.Booking) (booking.Booking, bool) {
	phone := digits(draft.PhoneNumber)
	for _, b := range bookings {
		if b.Status == booking.StatusCancelled {
			continue
		}
		if digits(b.PhoneNumber) == phone && strings.EqualFold(b.Service, draft.Service) && b.StartTime.Equal(draft.StartTime) {
			return b, true
		}
	}
	return booking.Booking{}, false
}

package resolve

import (
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/extract"
)

type MatchKind string

const (
	MatchUnique    MatchKind = "unique"
	MatchAmbiguous MatchKind = "ambiguous"
	MatchNone      MatchKind = "none"
)

// Match is the outcome of looking up "my appointment". Booking is set only
// for MatchUnique. Candidates lists every booking still in play; for
// MatchNone it holds the set a narrowing step emptied, if any.
type Match struct {
	Kind       MatchKind
	Booking    booking.Booking
	Candidates []booking.Booking
}

// Reference is what the caller said about the booking they mean.
type Reference struct {
	BookingID   string
	GuestName   string
	PhoneNumber string
	Service     string
	StartTime   *time.Time
	// ClockOnly compares only the time of day of StartTime.
	ClockOnly bool
	// Day narrows to a calendar day when no StartTime is known.
	Day *time.Time
}

func ReferenceFrom(f extract.Fields) Reference {
	return Reference{
		BookingID:   f.BookingID,
		GuestName:   f.GuestName,
		PhoneNumber: f.PhoneNumber,
		Service:     f.Service,
		StartTime:   f.StartTime,
		ClockOnly:   f.ClockOnly,
		Day:         f.Day,
	}
}

const phoneSuffixDigits = 7

// Disambiguate finds the booking a cancel or confirm request refers to.
//
// An explicit id matches by id alone, whatever the status. Otherwise the
// caller's phone, then name, select status-eligible bookings, and any stated
// time or service narrows them further.
func Disambiguate(ref Reference, bookings []booking.Booking, intent extract.Intent) Match {
	if id := strings.TrimSpace(ref.BookingID); id != "" {
		for _, b := range bookings {
			if b.ID == id {
				return Match{Kind: MatchUnique, Booking: b, Candidates: []booking.Booking{b}}
			}
		}
		return Match{Kind: MatchNone}
	}

	phone := digits(ref.PhoneNumber)
	name := strings.ToLower(strings.TrimSpace(ref.GuestName))
	if phone == "" && name == "" {
		return Match{Kind: MatchNone}
	}

	candidates := pie.Filter(bookings, func(b booking.Booking) bool {
		return eligible(b.Status, intent)
	})
	if phone != "" {
		candidates = pie.Filter(candidates, func(b booking.Booking) bool {
			return samePhone(digits(b.PhoneNumber), phone)
		})
		if name != "" {
			if byName := pie.Filter(candidates, func(b booking.Booking) bool { return sameName(b.GuestName, name) }); len(byName) > 0 {
				candidates = byName
			}
		}
	} else {
		candidates = pie.Filter(candidates, func(b booking.Booking) bool { return sameName(b.GuestName, name) })
	}
	if len(candidates) == 0 {
		return Match{Kind: MatchNone}
	}

	narrowers := []func(booking.Booking) bool{}
	if ref.StartTime != nil {
		start := *ref.StartTime
		if ref.ClockOnly {
			narrowers = append(narrowers, func(b booking.Booking) bool {
				at := b.StartTime.In(start.Location())
				return at.Hour() == start.Hour() && at.Minute() == start.Minute()
			})
		} else {
			narrowers = append(narrowers, func(b booking.Booking) bool { return b.StartTime.Equal(start) })
		}
	} else if ref.Day != nil {
		day := *ref.Day
		narrowers = append(narrowers, func(b booking.Booking) bool {
			y1, m1, d1 := b.StartTime.In(day.Location()).Date()
			y2, m2, d2 := day.Date()
			return y1 == y2 && m1 == m2 && d1 == d2
		})
	}
	if service := strings.TrimSpace(ref.Service); service != "" {
		narrowers = append(narrowers, func(b booking.Booking) bool { return strings.EqualFold(b.Service, service) })
	}
	for _, keep := range narrowers {
		narrowed := pie.Filter(candidates, keep)
		if len(narrowed) == 0 {
			return Match{Kind: MatchNone, Candidates: candidates}
		}
		candidates = narrowed
	}

	if len(candidates) == 1 {
		return Match{Kind: MatchUnique, Booking: candidates[0], Candidates: candidates}
	}
	return Match{Kind: MatchAmbiguous, Candidates: candidates}
}

// eligible reports whether a booking in status s can be the target of intent.
func eligible(s booking.Status, intent extract.Intent) bool {
	switch intent {
	case extract.IntentCancel, extract.IntentConfirm:
		return s == booking.StatusPending || s == booking.StatusConfirmed
	default:
		return s != booking.StatusCancelled
	}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// samePhone compares normalized digits. Numbers of seven digits or more also
// match on a suffix, so "555-1234" finds "+1 (212) 555-1234".
func samePhone(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	return len(short) >= phoneSuffixDigits && strings.HasSuffix(long, short)
}

func sameName(stored, lowered string) bool {
	return strings.ToLower(strings.TrimSpace(stored)) == lowered
}

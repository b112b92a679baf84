package reply

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/extract"
	"github.com/ent0n29/receptionist/internal/resolve"
)

// TimeLayout renders appointment times, e.g. "Mon, Oct 20 at 10:00 AM".
const TimeLayout = "Mon, Jan 2 at 3:04 PM"

// Outcome is what the store reported after an action was applied.
type Outcome struct {
	Booking  *booking.Booking
	NotFound bool
	Err      error
}

// Composer turns decisions into guest-facing text. It is deterministic and
// never looks at stored state.
type Composer struct {
	loc *time.Location
}

func NewComposer(loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{loc: loc}
}

func (c *Composer) Compose(d resolve.Decision, out *Outcome) string {
	if out != nil {
		if text, ok := c.composeOutcome(d, *out); ok {
			return text
		}
	}

	switch d.Reason {
	case resolve.ReasonCreated:
		draft := d.Draft
		if d.Action.Draft != nil {
			draft = *d.Action.Draft
		}
		return fmt.Sprintf("Great, I'm booking %s for %s on %s for %d minutes.",
			withArticle(draft.Service), draft.GuestName, c.when(draft.StartTime), draft.DurationMinutes)
	case resolve.ReasonUpdated:
		if d.Target == nil {
			return fmt.Sprintf("Your appointment is now %s.", d.Action.Status)
		}
		return fmt.Sprintf("Your %s on %s is now %s.", d.Target.Service, c.when(d.Target.StartTime), d.Action.Status)
	case resolve.ReasonMissingFields:
		return c.missing(d)
	case resolve.ReasonInvalidFields:
		return "I can't book that yet: " + joinList(invalidProblems(d.Invalid)) + ". Could you correct that?"
	case resolve.ReasonAmbiguousTarget:
		return c.ambiguous(d)
	case resolve.ReasonNoTarget:
		return "I couldn't find a matching appointment. What name or phone number was it booked under?"
	case resolve.ReasonAlreadyInStatus:
		if d.Target == nil {
			return "That appointment is already up to date."
		}
		return fmt.Sprintf("Your %s on %s is already %s.", d.Target.Service, c.when(d.Target.StartTime), d.Target.Status)
	case resolve.ReasonDuplicate:
		if d.Target == nil {
			return "You already have that appointment booked."
		}
		return fmt.Sprintf("You already have %s booked for %s, so there's nothing more to do.",
			withArticle(d.Target.Service), c.when(d.Target.StartTime))
	case resolve.ReasonExtractionFailed:
		return "Sorry, I had trouble understanding that just now. Could you say it again?"
	default:
		return "I can help you book, confirm or cancel an appointment. What would you like to do?"
	}
}

func (c *Composer) composeOutcome(d resolve.Decision, out Outcome) (string, bool) {
	switch {
	case out.NotFound:
		return "I couldn't find that appointment anymore. Could you tell me the name or phone number it was booked under?", true
	case out.Err != nil:
		var verr *booking.ValidationError
		if errors.As(out.Err, &verr) {
			return "I couldn't save that booking. Please check " + joinList(pie.Map(verr.FieldNames(), fieldLabel)) + ".", true
		}
		return "Sorry, something went wrong while saving your booking. Please try again.", true
	case out.Booking == nil:
		return "", false
	}

	b := *out.Booking
	switch d.Action.Type {
	case resolve.ActionCreate:
		return fmt.Sprintf("You're booked, %s: %s on %s for %d minutes. It's pending until we confirm it.",
			b.GuestName, b.Service, c.when(b.StartTime), b.DurationMinutes), true
	case resolve.ActionUpdate:
		return fmt.Sprintf("Done. Your %s on %s is now %s.", b.Service, c.when(b.StartTime), b.Status), true
	default:
		return "", false
	}
}

func (c *Composer) when(t time.Time) string {
	return t.In(c.loc).Format(TimeLayout)
}

func (c *Composer) missing(d resolve.Decision) string {
	asks := make([]string, 0, len(d.Missing))
	for _, field := range d.Missing {
		if field == "startTime" && d.TimeExpression != "" {
			asks = append(asks, fmt.Sprintf("an exact time for %q", d.TimeExpression))
			continue
		}
		asks = append(asks, missingLabel(field))
	}

	lead := "To book your appointment"
	if d.Draft.Service != "" {
		lead = "To book your " + d.Draft.Service
	}
	text := lead + " I still need " + joinList(asks) + "."
	if len(d.Invalid) > 0 {
		text += " Also, " + joinList(invalidProblems(d.Invalid)) + "."
	}
	return text
}

func (c *Composer) ambiguous(d resolve.Decision) string {
	options := pie.Map(d.Candidates, func(b booking.Booking) string {
		return withArticle(b.Service) + " on " + c.when(b.StartTime)
	})
	verb := "change"
	switch d.Intent {
	case extract.IntentCancel:
		verb = "cancel"
	case extract.IntentConfirm:
		verb = "confirm"
	}
	return fmt.Sprintf("I found %d appointments: %s. Which one would you like to %s?", len(d.Candidates), joinList(options), verb)
}

func missingLabel(field string) string {
	switch field {
	case "guestName":
		return "your name"
	case "phoneNumber":
		return "a phone number"
	case "service":
		return "which service you'd like"
	case "startTime":
		return "the date and time"
	default:
		return field
	}
}

func fieldLabel(field string) string {
	switch field {
	case "guestName":
		return "the name"
	case "phoneNumber":
		return "the phone number"
	case "email":
		return "the email address"
	case "service":
		return "the service"
	case "startTime":
		return "the start time"
	case "durationMinutes":
		return "the duration"
	default:
		return field
	}
}

func invalidProblems(fields []booking.FieldError) []string {
	return pie.Map(fields, func(fe booking.FieldError) string {
		switch fe.Field {
		case "email":
			return "that email address doesn't look right"
		case "startTime":
			if fe.Rule == "future" {
				return "that time has already passed"
			}
			return "I couldn't read that start time"
		case "durationMinutes":
			return fmt.Sprintf("appointments can run from %d to %d minutes", booking.MinDurationMinutes, booking.MaxDurationMinutes)
		case "phoneNumber":
			return "that phone number looks too short"
		default:
			return fieldLabel(fe.Field) + " isn't valid"
		}
	})
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func withArticle(service string) string {
	if service == "" {
		return "an appointment"
	}
	if strings.ContainsRune("aeiou", rune(strings.ToLower(service)[0])) {
		return "an " + service
	}
	return "a " + service
}

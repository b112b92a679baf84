package resolve

import (
	"github.com/ent0n29/receptionist/internal/booking"
)

type ActionType string

const (
	ActionNone   ActionType = "none"
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
)

// Action is the single store mutation a turn proposes. Draft is set only for
// create; BookingID and Status only for update.
type Action struct {
	Type      ActionType     `json:"type"`
	Draft     *booking.Draft `json:"draft,omitempty"`
	BookingID string         `json:"bookingId,omitempty"`
	Status    booking.Status `json:"status,omitempty"`
}

func NoAction() Action {
	return Action{Type: ActionNone}
}

func CreateAction(draft booking.Draft) Action {
	return Action{Type: ActionCreate, Draft: &draft}
}

func UpdateAction(id string, status booking.Status) Action {
	return Action{Type: ActionUpdate, BookingID: id, Status: status}
}

type Reason string

const (
	ReasonCreated          Reason = "created"
	ReasonUpdated          Reason = "updated"
	ReasonMissingFields    Reason = "missing_fields"
	ReasonInvalidFields    Reason = "invalid_fields"
	ReasonAmbiguousTarget  Reason = "ambiguous_target"
	ReasonNoTarget         Reason = "no_target"
	ReasonAlreadyInStatus  Reason = "already_in_status"
	ReasonDuplicate        Reason = "duplicate"
	ReasonUnclear          Reason = "unclear"
	ReasonExtractionFailed Reason = "extraction_failed"
)

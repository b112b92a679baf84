package booking

import (
	"context"
	"strings"
	"time"
)

const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 480
	MinPhoneLength     = 3
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus accepts the canonical values case-insensitively.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", &ValidationError{Fields: []FieldError{{Field: "status", Rule: "oneof"}}}
	}
	return status, nil
}

// Draft is an unpersisted booking. Every required field must be set before
// it is handed to a Store.
type Draft struct {
	GuestName       string    `json:"guestName" validate:"required"`
	PhoneNumber     string    `json:"phoneNumber" validate:"required,min=3"`
	Email           string    `json:"email,omitempty" validate:"omitempty,email"`
	Service         string    `json:"service" validate:"required"`
	Notes           string    `json:"notes,omitempty"`
	StartTime       time.Time `json:"startTime" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"min=1,max=480"`
}

// Normalize trims surrounding whitespace from the text fields.
func (d Draft) Normalize() Draft {
	d.GuestName = strings.TrimSpace(d.GuestName)
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
	d.Email = strings.TrimSpace(d.Email)
	d.Service = strings.TrimSpace(d.Service)
	d.Notes = strings.TrimSpace(d.Notes)
	return d
}

// EndTime is the instant the appointment finishes.
func (d Draft) EndTime() time.Time {
	return d.StartTime.Add(time.Duration(d.DurationMinutes) * time.Minute)
}

// Booking is a persisted appointment record. Only Status changes after creation.
type Booking struct {
	ID              string    `json:"id"`
	GuestName       string    `json:"guestName"`
	PhoneNumber     string    `json:"phoneNumber"`
	Email           string    `json:"email,omitempty"`
	Service         string    `json:"service"`
	Notes           string    `json:"notes,omitempty"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (b Booking) Draft() Draft {
	return Draft{
		GuestName:       b.GuestName,
		PhoneNumber:     b.PhoneNumber,
		Email:           b.Email,
		Service:         b.Service,
		Notes:           b.Notes,
		StartTime:       b.StartTime,
		DurationMinutes: b.DurationMinutes,
	}
}

func newBooking(id string, draft Draft, createdAt time.Time) Booking {
	return Booking{
		ID:              id,
		GuestName:       draft.GuestName,
		PhoneNumber:     draft.PhoneNumber,
		Email:           draft.Email,
		Service:         draft.Service,
		Notes:           draft.Notes,
		StartTime:       draft.StartTime,
		DurationMinutes: draft.DurationMinutes,
		Status:          StatusPending,
		CreatedAt:       createdAt,
	}
}

// Store owns the canonical set of bookings.
//
// Get and UpdateStatus report an unknown id through found=false with a nil
// error; the error return is reserved for validation and backend faults.
type Store interface {
	Create(ctx context.Context, draft Draft) (Booking, error)
	List(ctx context.Context) ([]Booking, error)
	Get(ctx context.Context, id string) (Booking, bool, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Booking, bool, error)
	Close() error
}

const upcomingGrace = 3 * time.Hour

// Upcoming keeps bookings that start no earlier than three hours before now,
// preserving order.
func Upcoming(bookings []Booking, now time.Time) []Booking {
	cutoff := now.Add(-upcomingGrace)
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if !b.StartTime.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/conversation"
	"github.com/ent0n29/receptionist/internal/observability"
	"github.com/ent0n29/receptionist/internal/policy"
	"github.com/ent0n29/receptionist/internal/reply"
	"github.com/ent0n29/receptionist/internal/resolve"
)

// Outcome is a turn after its action was applied to the store.
type Outcome struct {
	Reply    string           `json:"reply"`
	Action   resolve.Action   `json:"action"`
	Decision resolve.Decision `json:"-"`
	Created  *booking.Booking `json:"created,omitempty"`
	Updated  *booking.Booking `json:"updated,omitempty"`
}

// Desk applies engine actions to a store and answers from what the store
// actually did.
type Desk struct {
	engine *Engine
	store  booking.Store
}

func NewDesk(engine *Engine, store booking.Store) *Desk {
	return &Desk{engine: engine, store: store}
}

func (d *Desk) Engine() *Engine { return d.engine }

// HandleTurn lists the store, runs the turn and applies its action. A store
// validation failure or a vanished update target is answered in the reply;
// other store faults are returned.
func (d *Desk) HandleTurn(ctx context.Context, history []conversation.Turn) (Outcome, error) {
	bookings, err := d.list(ctx)
	if err != nil {
		return Outcome{}, err
	}
	result, err := d.engine.RunTurn(ctx, history, bookings)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Reply: result.Reply, Action: result.Action, Decision: result.Decision}
	started := time.Now()
	defer func() {
		if result.Action.Type != resolve.ActionNone {
			d.engine.stages.ObserveDuration(observability.StageApply, time.Since(started))
		}
	}()

	switch result.Action.Type {
	case resolve.ActionCreate:
		created, err := d.create(ctx, *result.Action.Draft)
		var verr *booking.ValidationError
		switch {
		case errors.As(err, &verr):
			out.Reply = d.engine.composer.Compose(result.Decision, &reply.Outcome{Err: err})
		case err != nil:
			return Outcome{}, err
		default:
			out.Created = &created
			out.Reply = d.engine.composer.Compose(result.Decision, &reply.Outcome{Booking: &created})
		}
	case resolve.ActionUpdate:
		updated, found, err := d.updateStatus(ctx, result.Action.BookingID, result.Action.Status)
		switch {
		case err != nil:
			return Outcome{}, err
		case !found:
			out.Reply = d.engine.composer.Compose(result.Decision, &reply.Outcome{NotFound: true})
		default:
			out.Updated = &updated
			out.Reply = d.engine.composer.Compose(result.Decision, &reply.Outcome{Booking: &updated})
		}
	}
	return out, nil
}

// Book creates a booking from a manually entered draft.
func (d *Desk) Book(ctx context.Context, draft booking.Draft) (booking.Booking, error) {
	return d.create(ctx, draft)
}

// SetStatus changes a booking's status by id. An unknown id is reported
// through found=false.
func (d *Desk) SetStatus(ctx context.Context, id string, status string) (booking.Booking, bool, error) {
	parsed, err := booking.ParseStatus(status)
	if err != nil {
		return booking.Booking{}, false, err
	}
	return d.updateStatus(ctx, id, parsed)
}

// Bookings lists every booking in insertion order.
func (d *Desk) Bookings(ctx context.Context) ([]booking.Booking, error) {
	return d.list(ctx)
}

// Upcoming lists bookings that have not long passed.
func (d *Desk) Upcoming(ctx context.Context) ([]booking.Booking, error) {
	all, err := d.list(ctx)
	if err != nil {
		return nil, err
	}
	return booking.Upcoming(all, d.engine.clock()), nil
}

func (d *Desk) list(ctx context.Context) ([]booking.Booking, error) {
	bookings, err := d.store.List(ctx)
	d.engine.metrics.ObserveStoreOperation("list", storeResult(err, true))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (d *Desk) create(ctx context.Context, draft booking.Draft) (booking.Booking, error) {
	created, err := d.store.Create(ctx, draft)
	d.engine.metrics.ObserveStoreOperation("create", storeResult(err, true))
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			return booking.Booking{}, err
		}
		return booking.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	phone := policy.MaskPhone(created.PhoneNumber)
	d.engine.logger.Info("booking created",
		zap.String("id", created.ID),
		zap.String("service", created.Service),
		zap.Time("start", created.StartTime),
		zap.String("phone", phone),
	)
	return created, nil
}

func (d *Desk) updateStatus(ctx context.Context, id string, status booking.Status) (booking.Booking, bool, error) {
	updated, found, err := d.store.UpdateStatus(ctx, id, status)
	d.engine.metrics.ObserveStoreOperation("update_status", storeResult(err, found))
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			return booking.Booking{}, false, err
		}
		return booking.Booking{}, false, fmt.Errorf("update booking %s: %w", id, err)
	}
	if found {
		d.engine.logger.Info("booking status changed", zap.String("id", id), zap.String("status", string(status)))
	}
	return updated, found, nil
}

func storeResult(err error, found bool) string {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case err != nil:
		return "error"
	case !found:
		return "not_found"
	default:
		return "ok"
	}
}

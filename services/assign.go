package services

import (
	"context"
	"fmt"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

// tightest returns the table wasting the fewest seats, lowest number on ties.
func tightest(tables []models.Table, partySize int) *models.Table {
	var best *models.Table
	for i := range tables {
		t := &tables[i]
		if !t.Fits(partySize) {
			continue
		}
		if best == nil ||
			t.Seats-partySize < best.Seats-partySize ||
			(t.Seats == best.Seats && t.Number < best.Number) {
			best = t
		}
	}
	return best
}

// AssignTable picks a table for a pending or confirmed reservation, or moves
// it to tableID when given. With expectedVersion the chosen table must still
// carry that version. A requested table whose schedule clashes yields a
// ConflictError.
func (e *Engine) AssignTable(ctx context.Context, reservationID uint, tableID *uint, expectedVersion *uint64) (*models.Reservation, error) {
	ctx, cancel := e.withEvaluationDeadline(ctx)
	defer cancel()

	var out models.Reservation
	err := e.mutate(ctx, "assign table", ErrNoTableAvailable, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		r, err := tx.Reservations.Get(ctx, reservationID)
		if err != nil {
			return fmt.Errorf("reservation %d: %w", reservationID, err)
		}
		if r.Status != models.ReservationPending && r.Status != models.ReservationConfirmed {
			return fmt.Errorf("assign %s reservation: %w", r.Status, ErrInvalidTransition)
		}
		startMin, err := utils.ParseClock(r.Time)
		if err != nil {
			return invalid("time", "stored time %q is malformed", r.Time)
		}

		report, err := e.detect(ctx, tx, Candidate{
			RestaurantID:         r.RestaurantID,
			Date:                 r.Date,
			Time:                 r.Time,
			PartySize:            r.PartySize,
			DurationMinutes:      r.DurationMinutes,
			TableID:              tableID,
			ExcludeReservationID: r.ID,
		}, startMin)
		if err != nil {
			return err
		}
		if tableID != nil && expectedVersion != nil && len(report.candidates) > 0 {
			if t := report.candidates[0]; t.Version != *expectedVersion {
				return fmt.Errorf("table %d is at version %d, expected %d: %w",
					t.Number, t.Version, *expectedVersion, ErrTableAlreadyHeld)
			}
		}
		if report.Blocking() {
			if tableID != nil && len(report.Conflicts) > 0 {
				return &ConflictError{Conflicts: report.Conflicts, SuggestedTimes: report.SuggestedTimes}
			}
			if tableID != nil && len(report.candidates) > 0 {
				return fmt.Errorf("table %d: %w", *tableID, ErrTableAlreadyHeld)
			}
			return ErrNoTableAvailable
		}

		pick := tightest(report.FreeTables, r.PartySize)
		if expectedVersion != nil && pick.Version != *expectedVersion {
			return fmt.Errorf("table %d is at version %d, expected %d: %w",
				pick.Number, pick.Version, *expectedVersion, ErrTableAlreadyHeld)
		}

		wasPending := r.Status == models.ReservationPending
		if err := e.bind(ctx, tx, fx, r, pick, map[string]interface{}{"status": models.ReservationConfirmed}); err != nil {
			return err
		}
		fx.reservation(hub.EventReservationUpdated, *r)
		if wasPending {
			fx.notify(noticeFor(NoticeConfirmation, *r, r.UpdatedAt))
		}
		out = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// bind stores fields plus the table on r, then fixes physical holds: the
// new table is held when the booking is imminent, and a previous table held
// by r is released.
func (e *Engine) bind(ctx context.Context, tx *repository.Repository, fx *effects, r *models.Reservation, t *models.Table, fields map[string]interface{}) error {
	var previous *uint
	if r.TableID != nil {
		id := *r.TableID
		previous = &id
	}

	fields["table_id"] = t.ID
	if err := e.updateReservation(ctx, tx, r, fields); err != nil {
		return err
	}

	startMin, _ := utils.ParseClock(r.Time)
	imminent := e.imminent(r.Date, startMin)
	heldByUs := t.CurrentReservationID != nil && *t.CurrentReservationID == r.ID
	switch {
	case imminent && t.Status == models.TableAvailable:
		id := r.ID
		if err := e.setTable(ctx, tx, fx, t, models.TableReserved, &id, 0, fmt.Sprintf("held for reservation %d", r.ID)); err != nil {
			return err
		}
	case !imminent && t.Status == models.TableReserved && heldByUs:
		if err := e.setTable(ctx, tx, fx, t, models.TableAvailable, nil, 0, fmt.Sprintf("reservation %d moved later", r.ID)); err != nil {
			return err
		}
	default:
		if err := e.touchTable(ctx, tx, fx, t, fmt.Sprintf("reservation %d booked", r.ID)); err != nil {
			return err
		}
	}

	if previous != nil && *previous != t.ID {
		old, err := tx.Tables.Get(ctx, *previous)
		if err != nil {
			return err
		}
		if err := e.releaseHold(ctx, tx, fx, old, r.ID, fmt.Sprintf("reservation %d moved", r.ID)); err != nil {
			return err
		}
	}
	return nil
}

// releaseHold frees t when r holds it, otherwise records the schedule change.
func (e *Engine) releaseHold(ctx context.Context, tx *repository.Repository, fx *effects, t *models.Table, reservationID uint, note string) error {
	if t.Status == models.TableReserved && t.CurrentReservationID != nil && *t.CurrentReservationID == reservationID {
		return e.setTable(ctx, tx, fx, t, models.TableAvailable, nil, 0, note)
	}
	return e.touchTable(ctx, tx, fx, t, note)
}

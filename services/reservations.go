package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

type ReservationRequest struct {
	RestaurantID    uint
	CustomerRef     string
	CustomerName    string
	CustomerPhone   string
	Date            string
	Time            string
	PartySize       int
	DurationMinutes int
	TableID         *uint
	SpecialRequests map[string]string
	Priority        int
	Source          string
	// DeferAssignment stores the booking as PENDING without a table.
	DeferAssignment bool
}

// ReservationChange is a partial reschedule. Nil fields keep their value.
type ReservationChange struct {
	Date            *string
	Time            *string
	PartySize       *int
	DurationMinutes *int
	TableID         *uint
}

var validSources = map[string]bool{
	models.SourcePhone:    true,
	models.SourceWeb:      true,
	models.SourceWalkIn:   true,
	models.SourceWaitlist: true,
}

func (e *Engine) notInPast(date string) error {
	if date < e.today() {
		return invalid("date", "%s is in the past", date)
	}
	return nil
}

// CreateReservation books a table. The conflict check, table choice and
// insert share one transaction, so the table cannot be taken in between.
func (e *Engine) CreateReservation(ctx context.Context, req ReservationRequest) (*models.Reservation, error) {
	cand := Candidate{
		RestaurantID:    req.RestaurantID,
		Date:            strings.TrimSpace(req.Date),
		Time:            req.Time,
		PartySize:       req.PartySize,
		DurationMinutes: req.DurationMinutes,
		TableID:         req.TableID,
	}
	startMin, err := e.normalize(&cand)
	if err != nil {
		return nil, err
	}
	if err := e.notInPast(cand.Date); err != nil {
		return nil, err
	}
	if req.Source == "" {
		req.Source = models.SourcePhone
	}
	if !validSources[req.Source] {
		return nil, invalid("source", "unknown source %q", req.Source)
	}
	if req.Priority < 0 {
		return nil, invalid("priority", "must not be negative")
	}
	name, phone, vip, err := e.customerFields(ctx, strings.TrimSpace(req.CustomerRef), strings.TrimSpace(req.CustomerName), strings.TrimSpace(req.CustomerPhone))
	if err != nil {
		return nil, classify(ctx, "resolve customer", err, nil)
	}
	if req.Priority < vip {
		req.Priority = vip
	}

	ctx, cancel := e.withEvaluationDeadline(ctx)
	defer cancel()

	var out models.Reservation
	err = e.mutate(ctx, "create reservation", ErrNoTableAvailable, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		report, err := e.detect(ctx, tx, cand, startMin)
		if err != nil {
			return err
		}
		if len(report.candidates) == 0 {
			return ErrNoTableAvailable
		}
		if !req.DeferAssignment && report.Blocking() {
			if len(report.Conflicts) > 0 {
				return &ConflictError{Conflicts: report.Conflicts, SuggestedTimes: report.SuggestedTimes}
			}
			return ErrNoTableAvailable
		}

		now := e.clock()
		r := &models.Reservation{
			RestaurantID:    req.RestaurantID,
			CustomerRef:     strings.TrimSpace(req.CustomerRef),
			CustomerName:    name,
			CustomerPhone:   phone,
			Date:            cand.Date,
			Time:            cand.Time,
			PartySize:       cand.PartySize,
			DurationMinutes: cand.DurationMinutes,
			Status:          models.ReservationPending,
			SpecialRequests: req.SpecialRequests,
			Priority:        req.Priority,
			Source:          req.Source,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Reservations.Create(ctx, r); err != nil {
			return err
		}

		if !req.DeferAssignment {
			pick := tightest(report.FreeTables, r.PartySize)
			if err := e.bind(ctx, tx, fx, r, pick, map[string]interface{}{"status": models.ReservationConfirmed}); err != nil {
				return err
			}
			fx.notify(noticeFor(NoticeConfirmation, *r, now))
		}
		fx.reservation(hub.EventReservationCreated, *r)
		out = *r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"reservation": out.ID,
		"restaurant":  out.RestaurantID,
		"date":        out.Date,
		"time":        out.Time,
		"party":       out.PartySize,
		"status":      out.Status,
	}).Info("reservation created")
	return &out, nil
}

func (e *Engine) GetReservation(ctx context.Context, id uint) (*models.Reservation, error) {
	var r *models.Reservation
	err := e.read(ctx, "get reservation", func(ctx context.Context) error {
		var err error
		r, err = e.repo.Reservations.Get(ctx, id)
		return err
	})
	return r, err
}

// GetReservations lists reservations of a restaurant matching f.
func (e *Engine) GetReservations(ctx context.Context, restaurantID uint, f repository.ReservationFilter) ([]models.Reservation, error) {
	if f.Date != "" {
		if _, err := utils.ParseDate(f.Date); err != nil {
			return nil, invalid("date", "must be YYYY-MM-DD")
		}
	}
	if f.Status != "" {
		f.Status = strings.ToUpper(f.Status)
		if !models.IsReservationStatus(f.Status) {
			return nil, invalid("status", "unknown status %q", f.Status)
		}
	}
	var list []models.Reservation
	err := e.read(ctx, "list reservations", func(ctx context.Context) error {
		var err error
		list, err = e.repo.Reservations.List(ctx, restaurantID, f)
		return err
	})
	return list, err
}

// transition loads a reservation, checks its status is one of from and runs fn.
func (e *Engine) transition(ctx context.Context, op string, id uint, from []string, fn func(ctx context.Context, tx *repository.Repository, fx *effects, r *models.Reservation) error) (*models.Reservation, error) {
	var out models.Reservation
	err := e.mutate(ctx, op, nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		r, err := tx.Reservations.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("reservation %d: %w", id, err)
		}
		allowed := false
		for _, st := range from {
			if r.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%s from %s: %w", op, r.Status, ErrInvalidTransition)
		}
		if err := fn(ctx, tx, fx, r); err != nil {
			return err
		}
		out = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Arrive records that the party is at the host stand.
func (e *Engine) Arrive(ctx context.Context, id uint) (*models.Reservation, error) {
	return e.transition(ctx, "arrive", id, []string{models.ReservationConfirmed},
		func(ctx context.Context, tx *repository.Repository, fx *effects, r *models.Reservation) error {
			if err := e.updateReservation(ctx, tx, r, map[string]interface{}{
				"status":     models.ReservationArrived,
				"arrived_at": e.clock(),
			}); err != nil {
				return err
			}
			fx.reservation(hub.EventReservationUpdated, *r)
			return nil
		})
}

// Seat puts the party at its table, or at tableID when given.
func (e *Engine) Seat(ctx context.Context, id uint, tableID *uint, actor uint) (*models.Reservation, error) {
	return e.transition(ctx, "seat", id, []string{models.ReservationConfirmed, models.ReservationArrived},
		func(ctx context.Context, tx *repository.Repository, fx *effects, r *models.Reservation) error {
			target := r.TableID
			if tableID != nil {
				target = tableID
			}
			if target == nil {
				return invalid("table_id", "reservation has no table")
			}
			t, err := tx.Tables.Get(ctx, *target)
			if err != nil {
				return fmt.Errorf("table %d: %w", *target, err)
			}
			return e.seat(ctx, tx, fx, r, t, actor)
		})
}

// seat moves r to SEATED on t and occupies t.
func (e *Engine) seat(ctx context.Context, tx *repository.Repository, fx *effects, r *models.Reservation, t *models.Table, actor uint) error {
	if err := restaurantMismatch("table", t.RestaurantID, r.RestaurantID); err != nil {
		return err
	}
	if !t.Fits(r.PartySize) {
		return invalid("table_id", "table %d seats %d, party is %d", t.Number, t.Seats, r.PartySize)
	}
	heldByUs := t.CurrentReservationID != nil && *t.CurrentReservationID == r.ID
	switch t.Status {
	case models.TableAvailable:
	case models.TableReserved:
		if !heldByUs {
			return fmt.Errorf("table %d is held for reservation %d: %w", t.Number, *t.CurrentReservationID, ErrTableAlreadyHeld)
		}
	default:
		return fmt.Errorf("table %d is %s: %w", t.Number, t.Status, ErrTableAlreadyHeld)
	}

	// Moving to another table must not cut into its schedule.
	if r.TableID == nil || *r.TableID != t.ID {
		startMin, _ := utils.ParseClock(r.Time)
		sched, err := e.loadSchedule(ctx, tx, r.RestaurantID, r.Date, r.ID)
		if err != nil {
			return err
		}
		if clashes := sched.clashes(t.ID, interval{startMin, startMin + r.DurationMinutes}); len(clashes) > 0 {
			return fmt.Errorf("table %d is booked for reservation %d: %w", t.Number, clashes[0].ID, ErrTableAlreadyHeld)
		}
	}

	var previous *uint
	if r.TableID != nil && *r.TableID != t.ID {
		id := *r.TableID
		previous = &id
	}

	now := e.clock()
	fields := map[string]interface{}{
		"status":    models.ReservationSeated,
		"seated_at": now,
		"table_id":  t.ID,
	}
	if r.ArrivedAt == nil {
		fields["arrived_at"] = now
	}
	if err := e.updateReservation(ctx, tx, r, fields); err != nil {
		return err
	}
	id := r.ID
	if err := e.setTable(ctx, tx, fx, t, models.TableOccupied, &id, actor, fmt.Sprintf("seated reservation %d", r.ID)); err != nil {
		return err
	}
	if previous != nil {
		old, err := tx.Tables.Get(ctx, *previous)
		if err != nil {
			return err
		}
		if err := e.releaseHold(ctx, tx, fx, old, r.ID, fmt.Sprintf("reservation %d seated elsewhere", r.ID)); err != nil {
			return err
		}
	}
	fx.reservation(hub.EventReservationUpdated, *r)
	return nil
}

// Complete checks the party out; the table goes to cleaning.
func (e *Engine) Complete(ctx context.Context, id uint, actor uint) (*models.Reservation, error) {
	return e.transition(ctx, "complete", id, []string{models.ReservationSeated},
		func(ctx context.Context, tx *repository.Repository, fx *effects, r *models.Reservation) error {
			return e.complete(ctx, tx, fx, r, actor, true)
		})
}

// complete marks r COMPLETED. With vacate set, its occupied table moves to
// CLEANING.
func (e *Engine) complete(ctx context.Context, tx *repository.Repository, fx *effects, r *models.Reservation, actor uint, vacate bool) error {
	if err := e.updateReservation(ctx, tx, r, map[string]interface{}{
		"status":       models.ReservationCompleted,
		"completed_at": e.clock(),
	}); err != nil {
		return err
	}
	fx.reservation(hub.EventReservationUpdated, *r)

	if !vacate || r.TableID == nil {
		return nil
	}
	t, err := tx.Tables.Get(ctx, *r.TableID)
	if err != nil {
		return err
	}
	if t.Status == models.TableOccupied && t.CurrentReservationID != nil && *t.CurrentReservationID == r.ID {
		return e.setTable(ctx, tx, fx, t, models.TableCleaning, nil, actor, fmt.Sprintf("reservation %d checked out", r.ID))
	}
	return nil
}

// Cancel releases whatever the reservation holds.
func (e *Engine) Cancel(ctx context.Context, id uint, reason string, actor uint) (*models.Reservation, error) {
	return e.transition(ctx, "cancel", id,
		[]string{models.ReservationPending, models.ReservationConfirmed, models.ReservationArrived, models.ReservationSeated},
		func(ctx context.Context, tx *repository.Repository, fx *effects, r *models.Reservation) error {
			wasSeated := r.Status == models.ReservationSeated
			if err := e.updateReservation(ctx, tx, r, map[string]interface{}{
				"status":        models.ReservationCancelled,
				"cancelled_at":  e.clock(),
				"cancel_reason": strings.TrimSpace(reason),
			}); err != nil {
				return err
			}
			fx.reservation(hub.EventReservationCancelled, *r)
			fx.notify(noticeFor(NoticeCancellation, *r, r.UpdatedAt))

			if r.TableID == nil {
				return nil
			}
			t, err := tx.Tables.Get(ctx, *r.TableID)
			if err != nil {
				return err
			}
			note := fmt.Sprintf("reservation %d cancelled", r.ID)
			if wasSeated && t.Status == models.TableOccupied && t.CurrentReservationID != nil && *t.CurrentReservationID == r.ID {
				return e.setTable(ctx, tx, fx, t, models.TableCleaning, nil, actor, note)
			}
			return e.releaseHold(ctx, tx, fx, t, r.ID, note)
		})
}

// Reschedule changes time, size or table of a booking that is not yet
// seated. The current table is kept when it is still free.
func (e *Engine) Reschedule(ctx context.Context, id uint, ch ReservationChange) (*models.Reservation, error) {
	ctx, cancel := e.withEvaluationDeadline(ctx)
	defer cancel()

	var out models.Reservation
	err := e.mutate(ctx, "reschedule", ErrNoTableAvailable, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		r, err := tx.Reservations.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("reservation %d: %w", id, err)
		}
		if r.Status != models.ReservationPending && r.Status != models.ReservationConfirmed {
			return fmt.Errorf("reschedule %s reservation: %w", r.Status, ErrInvalidTransition)
		}

		cand := Candidate{
			RestaurantID:         r.RestaurantID,
			Date:                 r.Date,
			Time:                 r.Time,
			PartySize:            r.PartySize,
			DurationMinutes:      r.DurationMinutes,
			TableID:              ch.TableID,
			ExcludeReservationID: r.ID,
		}
		if ch.Date != nil {
			cand.Date = strings.TrimSpace(*ch.Date)
		}
		if ch.Time != nil {
			cand.Time = *ch.Time
		}
		if ch.PartySize != nil {
			cand.PartySize = *ch.PartySize
		}
		if ch.DurationMinutes != nil {
			cand.DurationMinutes = *ch.DurationMinutes
			if cand.DurationMinutes == 0 {
				return invalid("duration_minutes", "must be positive")
			}
		}
		startMin, err := e.normalize(&cand)
		if err != nil {
			return err
		}
		if err := e.notInPast(cand.Date); err != nil {
			return err
		}

		fields := map[string]interface{}{
			"date":             cand.Date,
			"time":             cand.Time,
			"party_size":       cand.PartySize,
			"duration_minutes": cand.DurationMinutes,
		}

		report, err := e.detect(ctx, tx, cand, startMin)
		if err != nil {
			return err
		}

		if r.Status == models.ReservationPending && r.TableID == nil && ch.TableID == nil {
			if err := e.updateReservation(ctx, tx, r, fields); err != nil {
				return err
			}
			fx.reservation(hub.EventReservationUpdated, *r)
			out = *r
			return nil
		}

		if report.Blocking() {
			if len(report.Conflicts) > 0 {
				return &ConflictError{Conflicts: report.Conflicts, SuggestedTimes: report.SuggestedTimes}
			}
			return ErrNoTableAvailable
		}

		var pick *models.Table
		if r.TableID != nil && ch.TableID == nil {
			for i := range report.FreeTables {
				if report.FreeTables[i].ID == *r.TableID {
					pick = &report.FreeTables[i]
					break
				}
			}
		}
		if pick == nil {
			pick = tightest(report.FreeTables, cand.PartySize)
		}
		fields["status"] = models.ReservationConfirmed
		if err := e.bind(ctx, tx, fx, r, pick, fields); err != nil {
			return err
		}
		fx.reservation(hub.EventReservationUpdated, *r)
		out = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

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

type TableInput struct {
	Number  int
	Seats   int
	Section string
	Shape   string
	Layout  models.Layout
	Notes   string
}

// StatusChange is a staff-requested table transition.
type StatusChange struct {
	Status          string
	ReservationID   *uint
	ExpectedVersion *uint64
	ActorID         uint
	Notes           string
	// Walk-in details, used when an AVAILABLE table is occupied without a
	// reservation. A zero PartySize occupies the table without a booking.
	PartySize    int
	CustomerName string
}

func (e *Engine) CreateTable(ctx context.Context, restaurantID uint, in TableInput) (*models.Table, error) {
	if restaurantID == 0 {
		return nil, invalid("restaurant_id", "required")
	}
	if in.Number <= 0 {
		return nil, invalid("number", "must be positive")
	}
	if in.Seats <= 0 {
		return nil, invalid("seats", "must be positive")
	}
	if in.Shape == "" {
		in.Shape = "square"
	}

	var out models.Table
	err := e.mutate(ctx, "create table", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		existing, err := tx.Tables.ListByRestaurant(ctx, restaurantID)
		if err != nil {
			return err
		}
		for _, t := range existing {
			if t.Number == in.Number {
				return invalid("number", "table %d already exists", in.Number)
			}
		}
		now := e.clock()
		t := &models.Table{
			RestaurantID: restaurantID,
			Number:       in.Number,
			Seats:        in.Seats,
			Section:      strings.TrimSpace(in.Section),
			Shape:        in.Shape,
			Status:       models.TableAvailable,
			Layout:       in.Layout,
			Notes:        in.Notes,
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Tables.Create(ctx, t); err != nil {
			return err
		}
		fx.table(*t, "", "table created")
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTableStatus returns every table of a restaurant, optionally narrowed to
// one status.
func (e *Engine) GetTableStatus(ctx context.Context, restaurantID uint, status string) ([]models.Table, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !models.IsTableStatus(status) {
		return nil, invalid("status", "unknown status %q", status)
	}
	var list []models.Table
	err := e.read(ctx, "list tables", func(ctx context.Context) error {
		all, err := e.repo.Tables.ListByRestaurant(ctx, restaurantID)
		if err != nil {
			return err
		}
		for _, t := range all {
			if status == "" || t.Status == status {
				list = append(list, t)
			}
		}
		return nil
	})
	if list == nil {
		list = []models.Table{}
	}
	return list, err
}

// GetTable returns one table.
func (e *Engine) GetTable(ctx context.Context, id uint) (*models.Table, error) {
	var t *models.Table
	err := e.read(ctx, "get table", func(ctx context.Context) error {
		var err error
		t, err = e.repo.Tables.Get(ctx, id)
		return err
	})
	return t, err
}

func (e *Engine) TableHistory(ctx context.Context, restaurantID, tableID uint, limit int) ([]models.TableStatusLog, error) {
	var logs []models.TableStatusLog
	err := e.read(ctx, "table history", func(ctx context.Context) error {
		t, err := e.repo.Tables.Get(ctx, tableID)
		if err != nil {
			return err
		}
		if err := restaurantMismatch("table", t.RestaurantID, restaurantID); err != nil {
			return err
		}
		logs, err = e.repo.StatusLogs.ListByTable(ctx, tableID, limit)
		return err
	})
	return logs, err
}

// UpdateTableStatus applies a staff transition:
//
//	RESERVED  -> OCCUPIED      seat the holding reservation
//	AVAILABLE -> OCCUPIED      walk-in, or seat ReservationID
//	OCCUPIED  -> CLEANING      check out the occupant
//	CLEANING  -> AVAILABLE     runs waitlist promotion
//	any       -> OUT_OF_ORDER
//	OUT_OF_ORDER -> AVAILABLE  runs waitlist promotion
//
// RESERVED is only reachable through assignment.
func (e *Engine) UpdateTableStatus(ctx context.Context, restaurantID, tableID uint, ch StatusChange) (*models.Table, error) {
	to := strings.ToUpper(strings.TrimSpace(ch.Status))
	if !models.IsTableStatus(to) {
		return nil, invalid("status", "unknown status %q", ch.Status)
	}
	if to == models.TableReserved {
		return nil, invalid("status", "tables become RESERVED only through assignment")
	}

	var out models.Table
	err := e.mutate(ctx, "update table status", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		t, err := tx.Tables.Get(ctx, tableID)
		if err != nil {
			return fmt.Errorf("table %d: %w", tableID, err)
		}
		if err := restaurantMismatch("table", t.RestaurantID, restaurantID); err != nil {
			return err
		}
		if ch.ExpectedVersion != nil && *ch.ExpectedVersion != t.Version {
			return fmt.Errorf("table %d is at version %d, expected %d: %w", t.Number, t.Version, *ch.ExpectedVersion, ErrTableAlreadyHeld)
		}
		if t.Status == to {
			return fmt.Errorf("table %d is already %s: %w", t.Number, to, ErrInvalidTransition)
		}

		switch to {
		case models.TableOccupied:
			err = e.occupy(ctx, tx, fx, t, ch)
		case models.TableCleaning:
			if t.Status != models.TableOccupied {
				return fmt.Errorf("%s -> %s: %w", t.Status, to, ErrInvalidTransition)
			}
			err = e.vacate(ctx, tx, fx, t, models.TableCleaning, ch)
		case models.TableAvailable:
			if t.Status != models.TableCleaning && t.Status != models.TableOutOfOrder {
				return fmt.Errorf("%s -> %s: %w", t.Status, to, ErrInvalidTransition)
			}
			err = e.setTable(ctx, tx, fx, t, models.TableAvailable, nil, ch.ActorID, ch.Notes)
		case models.TableOutOfOrder:
			err = e.vacate(ctx, tx, fx, t, models.TableOutOfOrder, ch)
		}
		if err != nil {
			return err
		}
		// promotion may have moved the table past the requested status
		fresh, err := tx.Tables.Get(ctx, t.ID)
		if err != nil {
			return err
		}
		out = *fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"table":   out.ID,
		"status":  out.Status,
		"version": out.Version,
		"actor":   ch.ActorID,
	}).Info("table status updated")
	return &out, nil
}

func (e *Engine) occupy(ctx context.Context, tx *repository.Repository, fx *effects, t *models.Table, ch StatusChange) error {
	switch t.Status {
	case models.TableReserved:
		if ch.ReservationID != nil && (t.CurrentReservationID == nil || *ch.ReservationID != *t.CurrentReservationID) {
			return invalid("reservation_id", "table %d is held for another reservation", t.Number)
		}
		if t.CurrentReservationID == nil {
			return fmt.Errorf("reserved table %d has no holder: %w", t.Number, ErrInvalidTransition)
		}
		return e.seatByID(ctx, tx, fx, *t.CurrentReservationID, t, ch.ActorID)
	case models.TableAvailable:
		if ch.ReservationID != nil {
			return e.seatByID(ctx, tx, fx, *ch.ReservationID, t, ch.ActorID)
		}
		return e.walkIn(ctx, tx, fx, t, ch)
	}
	return fmt.Errorf("%s -> %s: %w", t.Status, models.TableOccupied, ErrInvalidTransition)
}

func (e *Engine) seatByID(ctx context.Context, tx *repository.Repository, fx *effects, reservationID uint, t *models.Table, actor uint) error {
	r, err := tx.Reservations.Get(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("reservation %d: %w", reservationID, err)
	}
	if r.Status != models.ReservationConfirmed && r.Status != models.ReservationArrived {
		return fmt.Errorf("seat %s reservation: %w", r.Status, ErrInvalidTransition)
	}
	return e.seat(ctx, tx, fx, r, t, actor)
}

// walkIn occupies an AVAILABLE table now. Bookings on the table that would
// start before the walk-in's default duration ends are reported as conflicts.
func (e *Engine) walkIn(ctx context.Context, tx *repository.Repository, fx *effects, t *models.Table, ch StatusChange) error {
	now := e.clock()
	date := now.Format(utils.DateLayout)
	startMin := utils.MinuteOfDay(now)

	party := ch.PartySize
	if party > 0 && !t.Fits(party) {
		return invalid("party_size", "table %d seats %d, party is %d", t.Number, t.Seats, party)
	}

	sched, err := e.loadSchedule(ctx, tx, t.RestaurantID, date, 0)
	if err != nil {
		return err
	}
	if clashes := sched.clashes(t.ID, interval{startMin, startMin + e.cfg.DefaultDuration}); len(clashes) > 0 {
		conflicts := make([]Conflict, 0, len(clashes))
		for _, r := range clashes {
			rs, _ := utils.ParseClock(r.Time)
			delta := rs - startMin
			if delta < 0 {
				delta = -delta
			}
			conflicts = append(conflicts, Conflict{
				ReservationID:   r.ID,
				TableID:         t.ID,
				TableNumber:     t.Number,
				CustomerName:    r.CustomerName,
				Time:            r.Time,
				DurationMinutes: r.DurationMinutes,
				DeltaMinutes:    delta,
				Severity:        e.severity(delta),
			})
		}
		return &ConflictError{Conflicts: conflicts, SuggestedTimes: []string{}}
	}

	if party == 0 {
		return e.setTable(ctx, tx, fx, t, models.TableOccupied, nil, ch.ActorID, noteOr(ch.Notes, "walk-in"))
	}

	name := strings.TrimSpace(ch.CustomerName)
	if name == "" {
		name = "Walk-in"
	}
	r := &models.Reservation{
		RestaurantID:    t.RestaurantID,
		CustomerName:    name,
		Date:            date,
		Time:            utils.FormatClock(startMin),
		PartySize:       party,
		DurationMinutes: e.cfg.DefaultDuration,
		TableID:         &t.ID,
		Status:          models.ReservationSeated,
		Source:          models.SourceWalkIn,
		ArrivedAt:       &now,
		SeatedAt:        &now,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Reservations.Create(ctx, r); err != nil {
		return err
	}
	id := r.ID
	if err := e.setTable(ctx, tx, fx, t, models.TableOccupied, &id, ch.ActorID, noteOr(ch.Notes, "walk-in")); err != nil {
		return err
	}
	fx.reservation(hub.EventReservationCreated, *r)
	return nil
}

// vacate moves a table to CLEANING or OUT_OF_ORDER. A seated occupant is
// completed; a reservation holding the table goes back to PENDING without a
// table. Going OUT_OF_ORDER also rebooks every later reservation on it.
func (e *Engine) vacate(ctx context.Context, tx *repository.Repository, fx *effects, t *models.Table, to string, ch StatusChange) error {
	if t.CurrentReservationID != nil {
		r, err := tx.Reservations.Get(ctx, *t.CurrentReservationID)
		if err != nil {
			return err
		}
		switch {
		case t.Status == models.TableOccupied && r.Status == models.ReservationSeated:
			if err := e.complete(ctx, tx, fx, r, ch.ActorID, false); err != nil {
				return err
			}
		case t.Status == models.TableReserved && r.Active():
			if err := e.updateReservation(ctx, tx, r, map[string]interface{}{
				"status":   models.ReservationPending,
				"table_id": nil,
			}); err != nil {
				return err
			}
			fx.reservation(hub.EventReservationUpdated, *r)
		}
	}
	if err := e.setTable(ctx, tx, fx, t, to, nil, ch.ActorID, ch.Notes); err != nil {
		return err
	}
	if to == models.TableOutOfOrder {
		return e.rehome(ctx, tx, fx, t)
	}
	return nil
}

// rehome moves each upcoming reservation booked on the broken table t to the
// tightest free table. A reservation that fits nowhere loses its table, goes
// back to PENDING when it was CONFIRMED, and raises a staff alert.
func (e *Engine) rehome(ctx context.Context, tx *repository.Repository, fx *effects, t *models.Table) error {
	now := e.clock()
	today := now.Format(utils.DateLayout)
	nowMin := utils.MinuteOfDay(now)

	upcoming, err := tx.Reservations.ListUpcomingOnTable(ctx, t.ID, today)
	if err != nil {
		return err
	}
	for i := range upcoming {
		r := &upcoming[i]
		iv, err := reservationInterval(*r)
		if err != nil {
			continue
		}
		if r.Date == today && iv.end <= nowMin {
			continue
		}

		report, err := e.detect(ctx, tx, Candidate{
			RestaurantID:         r.RestaurantID,
			Date:                 r.Date,
			Time:                 r.Time,
			PartySize:            r.PartySize,
			DurationMinutes:      r.DurationMinutes,
			ExcludeReservationID: r.ID,
		}, iv.start)
		if err != nil {
			return err
		}
		if pick := tightest(report.FreeTables, r.PartySize); pick != nil {
			if err := e.bind(ctx, tx, fx, r, pick, map[string]interface{}{}); err != nil {
				return err
			}
			fx.reservation(hub.EventReservationUpdated, *r)
			e.log.WithFields(logrus.Fields{
				"reservation": r.ID,
				"from":        t.Number,
				"to":          pick.Number,
			}).Info("reservation moved off out-of-order table")
			continue
		}

		fields := map[string]interface{}{"table_id": nil}
		if r.Status == models.ReservationConfirmed {
			fields["status"] = models.ReservationPending
		}
		if err := e.updateReservation(ctx, tx, r, fields); err != nil {
			return err
		}
		id := r.ID
		if err := tx.Notifications.Create(ctx, &models.Notification{
			RestaurantID:  r.RestaurantID,
			Kind:          models.AlertTableOutOfOrder,
			Title:         "Reservation needs a table",
			Message:       fmt.Sprintf("Table %d is out of order and no other table can take %s (party of %d) on %s at %s.", t.Number, r.CustomerName, r.PartySize, r.Date, r.Time),
			ReservationID: &id,
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		fx.reservation(hub.EventReservationUpdated, *r)
		e.log.WithFields(logrus.Fields{
			"reservation": r.ID,
			"table":       t.Number,
		}).Warn("reservation lost its table, staff alerted")
	}
	return nil
}

func noteOr(note, fallback string) string {
	if strings.TrimSpace(note) == "" {
		return fallback
	}
	return note
}

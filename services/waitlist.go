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

type WaitlistRequest struct {
	RestaurantID  uint
	CustomerRef   string
	CustomerName  string
	CustomerPhone string
	PartySize     int
	WindowStart   string
	WindowEnd     string
	Priority      int
}

// Enqueue adds a party to the waitlist. A party larger than every table is
// accepted but raises a manual-override alert for staff.
func (e *Engine) Enqueue(ctx context.Context, req WaitlistRequest) (*models.WaitlistEntry, error) {
	if req.RestaurantID == 0 {
		return nil, invalid("restaurant_id", "required")
	}
	if req.PartySize <= 0 {
		return nil, invalid("party_size", "must be positive")
	}
	if req.Priority < 0 {
		return nil, invalid("priority", "must not be negative")
	}
	var startMin, endMin int
	var err error
	if req.WindowStart != "" {
		if startMin, err = utils.ParseClock(req.WindowStart); err != nil {
			return nil, invalid("window_start", "must be HH:MM")
		}
		req.WindowStart = utils.FormatClock(startMin)
	}
	if req.WindowEnd != "" {
		if endMin, err = utils.ParseClock(req.WindowEnd); err != nil {
			return nil, invalid("window_end", "must be HH:MM")
		}
		req.WindowEnd = utils.FormatClock(endMin)
	}
	if req.WindowStart != "" && req.WindowEnd != "" && endMin < startMin {
		return nil, invalid("window_end", "must not be before window_start")
	}
	name, phone, vip, err := e.customerFields(ctx, strings.TrimSpace(req.CustomerRef), strings.TrimSpace(req.CustomerName), strings.TrimSpace(req.CustomerPhone))
	if err != nil {
		return nil, classify(ctx, "resolve customer", err, nil)
	}
	if req.Priority < vip {
		req.Priority = vip
	}

	var out models.WaitlistEntry
	err = e.mutate(ctx, "enqueue waitlist", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		now := e.clock()
		w := &models.WaitlistEntry{
			RestaurantID:  req.RestaurantID,
			CustomerRef:   strings.TrimSpace(req.CustomerRef),
			CustomerName:  name,
			CustomerPhone: phone,
			PartySize:     req.PartySize,
			WindowStart:   req.WindowStart,
			WindowEnd:     req.WindowEnd,
			Priority:      req.Priority,
			Status:        models.WaitlistWaiting,
			EnqueuedAt:    now,
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Waitlist.Create(ctx, w); err != nil {
			return err
		}
		if _, err := e.flagOversized(ctx, tx, w); err != nil {
			return err
		}
		pos, err := position(ctx, tx, w)
		if err != nil {
			return err
		}
		w.Position = pos
		fx.waitlist(*w)
		out = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// flagOversized raises a one-off staff alert when no table can ever seat the
// party. Reports whether the party is oversized.
func (e *Engine) flagOversized(ctx context.Context, tx *repository.Repository, w *models.WaitlistEntry) (bool, error) {
	maxSeats, err := tx.Tables.MaxSeats(ctx, w.RestaurantID)
	if err != nil {
		return false, err
	}
	if w.PartySize <= maxSeats {
		return false, nil
	}
	exists, err := tx.Notifications.ExistsForWaitlistEntry(ctx, w.ID, models.AlertManualOverride)
	if err != nil || exists {
		return true, err
	}
	id := w.ID
	if err := tx.Notifications.Create(ctx, &models.Notification{
		RestaurantID:    w.RestaurantID,
		Kind:            models.AlertManualOverride,
		Title:           "Waitlist party exceeds every table",
		Message:         fmt.Sprintf("%s (party of %d) cannot be seated at any single table; largest table seats %d.", w.CustomerName, w.PartySize, maxSeats),
		WaitlistEntryID: &id,
		CreatedAt:       e.clock(),
	}); err != nil {
		return true, err
	}
	e.log.WithFields(logrus.Fields{
		"entry": w.ID,
		"party": w.PartySize,
		"max":   maxSeats,
	}).Warn("waitlist party needs manual override")
	return true, nil
}

func position(ctx context.Context, tx *repository.Repository, w *models.WaitlistEntry) (int, error) {
	list, err := tx.Waitlist.ListWaiting(ctx, w.RestaurantID)
	if err != nil {
		return 0, err
	}
	for i, o := range list {
		if o.ID == w.ID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (e *Engine) GetWaitlistEntry(ctx context.Context, id uint) (*models.WaitlistEntry, error) {
	var w *models.WaitlistEntry
	err := e.read(ctx, "get waitlist entry", func(ctx context.Context) error {
		var err error
		w, err = e.repo.Waitlist.Get(ctx, id)
		return err
	})
	return w, err
}

// Position is the 1-based rank of a waiting entry.
func (e *Engine) Position(ctx context.Context, id uint) (int, error) {
	var pos int
	err := e.read(ctx, "waitlist position", func(ctx context.Context) error {
		w, err := e.repo.Waitlist.Get(ctx, id)
		if err != nil {
			return err
		}
		if w.Status != models.WaitlistWaiting {
			return invalid("id", "entry %d is %s", id, w.Status)
		}
		pos, err = position(ctx, e.repo, w)
		return err
	})
	return pos, err
}

// ListWaitlist returns waiting entries in rank order with positions filled.
func (e *Engine) ListWaitlist(ctx context.Context, restaurantID uint) ([]models.WaitlistEntry, error) {
	var list []models.WaitlistEntry
	err := e.read(ctx, "list waitlist", func(ctx context.Context) error {
		var err error
		list, err = e.repo.Waitlist.ListWaiting(ctx, restaurantID)
		return err
	})
	for i := range list {
		list[i].Position = i + 1
	}
	if list == nil {
		list = []models.WaitlistEntry{}
	}
	return list, err
}

func (e *Engine) RemoveFromWaitlist(ctx context.Context, id uint, reason string) (*models.WaitlistEntry, error) {
	var out models.WaitlistEntry
	err := e.mutate(ctx, "remove waitlist entry", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		w, err := tx.Waitlist.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("waitlist entry %d: %w", id, err)
		}
		if w.Status != models.WaitlistWaiting {
			return fmt.Errorf("remove %s entry: %w", w.Status, ErrInvalidTransition)
		}
		if err := e.updateWaitlist(ctx, tx, w, map[string]interface{}{
			"status":     models.WaitlistRemoved,
			"reason":     strings.TrimSpace(reason),
			"removed_at": e.clock(),
		}); err != nil {
			return err
		}
		fx.waitlist(*w)
		out = *w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Promote turns a waiting entry into a confirmed reservation starting now,
// on tableID or on the tightest AVAILABLE table that is free long enough.
func (e *Engine) Promote(ctx context.Context, id uint, tableID *uint) (*models.Reservation, error) {
	ctx, cancel := e.withEvaluationDeadline(ctx)
	defer cancel()

	var out models.Reservation
	err := e.mutate(ctx, "promote waitlist entry", ErrNoTableAvailable, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		w, err := tx.Waitlist.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("waitlist entry %d: %w", id, err)
		}
		if w.Status != models.WaitlistWaiting {
			return fmt.Errorf("promote %s entry: %w", w.Status, ErrInvalidTransition)
		}

		var tables []models.Table
		if tableID != nil {
			t, err := tx.Tables.Get(ctx, *tableID)
			if err != nil {
				return fmt.Errorf("table %d: %w", *tableID, err)
			}
			if err := restaurantMismatch("table", t.RestaurantID, w.RestaurantID); err != nil {
				return err
			}
			if !t.Fits(w.PartySize) {
				return invalid("table_id", "table %d seats %d, party is %d", t.Number, t.Seats, w.PartySize)
			}
			if t.Status != models.TableAvailable {
				return fmt.Errorf("table %d is %s: %w", t.Number, t.Status, ErrTableAlreadyHeld)
			}
			tables = []models.Table{*t}
		} else {
			oversized, err := e.flagOversized(ctx, tx, w)
			if err != nil {
				return err
			}
			if oversized {
				return ErrNoTableAvailable
			}
			tables, err = tx.Tables.ListCandidates(ctx, w.RestaurantID, w.PartySize)
			if err != nil {
				return err
			}
		}

		free, err := e.freeNow(ctx, tx, w.RestaurantID, tables)
		if err != nil {
			return err
		}
		pick := tightest(free, w.PartySize)
		if pick == nil {
			if tableID != nil {
				return fmt.Errorf("table %d is booked soon: %w", *tableID, ErrTableAlreadyHeld)
			}
			return ErrNoTableAvailable
		}
		r, err := e.promoteOnto(ctx, tx, fx, w, pick)
		if err != nil {
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

// freeNow keeps the AVAILABLE tables with no booking overlapping a
// default-length seating that starts now. Nothing is free when that seating
// would fall outside service hours.
func (e *Engine) freeNow(ctx context.Context, tx *repository.Repository, restaurantID uint, tables []models.Table) ([]models.Table, error) {
	now := e.clock()
	startMin := utils.MinuteOfDay(now)
	if !e.seatableNow(startMin) {
		return nil, nil
	}
	sched, err := e.loadSchedule(ctx, tx, restaurantID, now.Format(utils.DateLayout), 0)
	if err != nil {
		return nil, err
	}
	iv := interval{startMin, startMin + e.cfg.DefaultDuration}

	var out []models.Table
	for _, t := range tables {
		if t.Status == models.TableAvailable && len(sched.clashes(t.ID, iv)) == 0 {
			out = append(out, t)
		}
	}
	return out, nil
}

// seatableNow reports whether a default-length seating starting at startMin
// fits inside service hours on the same day.
func (e *Engine) seatableNow(startMin int) bool {
	return startMin >= e.openMin && startMin+e.cfg.DefaultDuration <= e.closeMin
}

// inWindow reports whether minute m falls in the entry's requested window.
func inWindow(w models.WaitlistEntry, m int) bool {
	if w.WindowStart != "" {
		if s, err := utils.ParseClock(w.WindowStart); err == nil && m < s {
			return false
		}
	}
	if w.WindowEnd != "" {
		if end, err := utils.ParseClock(w.WindowEnd); err == nil && m > end {
			return false
		}
	}
	return true
}

// promoteForTable runs when t has just become AVAILABLE. The highest-ranked
// waiting entry that fits t and whose window contains now takes the table.
// Nothing happens when no entry qualifies.
func (e *Engine) promoteForTable(ctx context.Context, tx *repository.Repository, fx *effects, t *models.Table) (*models.Reservation, error) {
	free, err := e.freeNow(ctx, tx, t.RestaurantID, []models.Table{*t})
	if err != nil || len(free) == 0 {
		return nil, err
	}

	waiting, err := tx.Waitlist.ListWaiting(ctx, t.RestaurantID)
	if err != nil {
		return nil, err
	}
	nowMin := utils.MinuteOfDay(e.clock())
	for i := range waiting {
		w := &waiting[i]
		if !t.Fits(w.PartySize) || !inWindow(*w, nowMin) {
			continue
		}
		return e.promoteOnto(ctx, tx, fx, w, t)
	}
	return nil, nil
}

// promoteOnto books w on t starting now and holds the table.
func (e *Engine) promoteOnto(ctx context.Context, tx *repository.Repository, fx *effects, w *models.WaitlistEntry, t *models.Table) (*models.Reservation, error) {
	now := e.clock()
	entryID := w.ID
	r := &models.Reservation{
		RestaurantID:    w.RestaurantID,
		CustomerRef:     w.CustomerRef,
		CustomerName:    w.CustomerName,
		CustomerPhone:   w.CustomerPhone,
		Date:            now.Format(utils.DateLayout),
		Time:            utils.FormatClock(utils.MinuteOfDay(now)),
		PartySize:       w.PartySize,
		DurationMinutes: e.cfg.DefaultDuration,
		TableID:         &t.ID,
		Status:          models.ReservationConfirmed,
		Priority:        w.Priority,
		Source:          models.SourceWaitlist,
		WaitlistEntryID: &entryID,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Reservations.Create(ctx, r); err != nil {
		return nil, err
	}
	if err := e.updateWaitlist(ctx, tx, w, map[string]interface{}{
		"status":         models.WaitlistPromoted,
		"reservation_id": r.ID,
	}); err != nil {
		return nil, err
	}

	resID := r.ID
	if err := e.setTable(ctx, tx, fx, t, models.TableReserved, &resID, 0, fmt.Sprintf("waitlist entry %d promoted", w.ID)); err != nil {
		return nil, err
	}

	fx.reservation(hub.EventReservationCreated, *r)
	fx.waitlist(*w)
	fx.notify(noticeFor(NoticeConfirmation, *r, now))

	e.log.WithFields(logrus.Fields{
		"entry":       w.ID,
		"reservation": r.ID,
		"table":       t.Number,
		"party":       w.PartySize,
	}).Info("waitlist entry promoted")
	return r, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/config"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

// Publisher is the synchronization bus as seen by the engine.
type Publisher interface {
	Publish(restaurantID uint, ev hub.Event)
}

// Engine owns every mutation of tables, reservations and the waitlist. Each
// operation runs in one transaction; bus events, notices and mirror updates
// are released only after commit.
type Engine struct {
	repo      *repository.Repository
	bus       Publisher
	notifier  Notifier
	mirror    TableMirror
	customers CustomerDirectory
	cfg       config.Engine
	loc       *time.Location
	log       *logrus.Logger
	now       func() time.Time

	openMin  int
	closeMin int
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }
func WithMirror(m TableMirror) Option { return func(e *Engine) { e.mirror = m } }
func WithCustomers(d CustomerDirectory) Option { return func(e *Engine) { e.customers = d } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithLogger(l *logrus.Logger) Option { return func(e *Engine) { e.log = l } }
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

func NewEngine(repo *repository.Repository, bus Publisher, cfg config.Engine, opts ...Option) (*Engine, error) {
	def := config.DefaultEngine()
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = def.DefaultDuration
	}
	if cfg.SlotStep <= 0 {
		cfg.SlotStep = def.SlotStep
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	if cfg.HighSeverityWithin <= 0 {
		cfg.HighSeverityWithin = def.HighSeverityWithin
	}
	if cfg.MediumSeverityWithin < cfg.HighSeverityWithin {
		cfg.MediumSeverityWithin = cfg.HighSeverityWithin
	}
	if cfg.EvaluationTimeout <= 0 {
		cfg.EvaluationTimeout = def.EvaluationTimeout
	}

	openMin, err := utils.ParseClock(cfg.ServiceOpen)
	if err != nil {
		return nil, fmt.Errorf("service open: %w", err)
	}
	closeMin, err := utils.ParseClock(cfg.ServiceClose)
	if err != nil {
		return nil, fmt.Errorf("service close: %w", err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("service close %s must be after open %s", cfg.ServiceClose, cfg.ServiceOpen)
	}

	e := &Engine{
		repo:     repo,
		bus:      bus,
		cfg:      cfg,
		loc:      cfg.Location(),
		log:      utils.Logger(),
		now:      time.Now,
		openMin:  openMin,
		closeMin: closeMin,
	}
	e.customers = StoreDirectory{Customers: repo.Customers}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = LogNotifier{Log: e.log}
	}
	return e, nil
}

func (e *Engine) Config() config.Engine { return e.cfg }

// clock is the current wall time in the restaurant's timezone.
func (e *Engine) clock() time.Time { return e.now().In(e.loc) }

func (e *Engine) today() string { return e.clock().Format(utils.DateLayout) }

// imminent reports whether a booking starting at date/startMin is close
// enough that its table must be physically free now.
func (e *Engine) imminent(date string, startMin int) bool {
	start, err := utils.At(date, startMin, e.loc)
	if err != nil {
		return false
	}
	return !start.After(e.clock().Add(e.cfg.HoldWindow))
}

// effects are collected during a transaction and released after commit.
type effects struct {
	events  []hub.Event
	mirror  []mirrored
	notices []Notice
}

type mirrored struct {
	table    models.Table
	previous string
	reason   string
}

func (fx *effects) table(t models.Table, previous, reason string) {
	fx.events = append(fx.events, hub.TableEvent(t, t.UpdatedAt))
	fx.mirror = append(fx.mirror, mirrored{table: t, previous: previous, reason: reason})
}

func (fx *effects) reservation(eventType string, r models.Reservation) {
	fx.events = append(fx.events, hub.ReservationEvent(eventType, r, r.UpdatedAt))
}

func (fx *effects) waitlist(w models.WaitlistEntry) {
	fx.events = append(fx.events, hub.WaitlistEvent(w, w.UpdatedAt))
}

func (fx *effects) notify(n Notice) {
	fx.notices = append(fx.notices, n)
}

func (e *Engine) release(fx *effects) {
	if e.bus != nil {
		for _, ev := range fx.events {
			e.bus.Publish(ev.RestaurantID, ev)
		}
	}
	if e.mirror != nil {
		for _, m := range fx.mirror {
			e.mirror.TableChanged(m.table, m.previous, m.reason)
		}
	}
	for _, n := range fx.notices {
		e.notifier.Notify(n)
	}
}

type txFunc func(ctx context.Context, tx *repository.Repository, fx *effects) error

// mutate runs fn in a transaction. A stale version retries once in a fresh
// transaction; a second stale read fails with ErrTableAlreadyHeld.
// deadlineErr is what an expired evaluation deadline turns into.
func (e *Engine) mutate(ctx context.Context, op string, deadlineErr error, fn txFunc) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		fx := &effects{}
		err = e.repo.WithTx(ctx, func(tx *repository.Repository) error {
			return fn(ctx, tx, fx)
		})
		if err == nil {
			e.release(fx)
			return nil
		}
		if !errors.Is(err, repository.ErrStaleVersion) {
			break
		}
		e.log.WithField("op", op).Debug("version changed during evaluation, retrying")
	}
	if errors.Is(err, repository.ErrStaleVersion) {
		return fmt.Errorf("%s: %w", op, ErrTableAlreadyHeld)
	}
	return classify(ctx, op, err, deadlineErr)
}

// read wraps a read-only query with error classification.
func (e *Engine) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return classify(ctx, op, fn(ctx), nil)
}

// withEvaluationDeadline bounds assignment work.
func (e *Engine) withEvaluationDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.EvaluationTimeout)
}

// setTable moves a table to status with the given holder, records the
// transition and queues the event. Entering AVAILABLE runs waitlist
// promotion in the same transaction.
func (e *Engine) setTable(ctx context.Context, tx *repository.Repository, fx *effects, t *models.Table, status string, holder *uint, actor uint, notes string) error {
	now := e.clock()
	err := tx.Tables.UpdateVersioned(ctx, t.ID, t.Version, map[string]interface{}{
		"status":                 status,
		"current_reservation_id": holder,
		"updated_at":             now,
	})
	if err != nil {
		return err
	}

	previous := t.Status
	t.Status = status
	t.CurrentReservationID = holder
	t.Version++
	t.UpdatedAt = now

	if err := tx.StatusLogs.Create(ctx, &models.TableStatusLog{
		RestaurantID:  t.RestaurantID,
		TableID:       t.ID,
		FromStatus:    previous,
		ToStatus:      status,
		ReservationID: holder,
		ActorID:       actor,
		Notes:         notes,
		Version:       t.Version,
		CreatedAt:     now,
	}); err != nil {
		return err
	}
	fx.table(*t, previous, notes)

	if status == models.TableAvailable && previous != models.TableAvailable {
		if _, err := e.promoteForTable(ctx, tx, fx, t); err != nil {
			return err
		}
	}
	return nil
}

// touchTable bumps the version of a table whose booking schedule changed
// without a status change.
func (e *Engine) touchTable(ctx context.Context, tx *repository.Repository, fx *effects, t *models.Table, reason string) error {
	now := e.clock()
	if err := tx.Tables.UpdateVersioned(ctx, t.ID, t.Version, map[string]interface{}{"updated_at": now}); err != nil {
		return err
	}
	t.Version++
	t.UpdatedAt = now
	fx.table(*t, t.Status, reason)
	return nil
}

// updateReservation applies fields to r under its version and refreshes r.
func (e *Engine) updateReservation(ctx context.Context, tx *repository.Repository, r *models.Reservation, fields map[string]interface{}) error {
	now := e.clock()
	fields["updated_at"] = now
	if err := tx.Reservations.UpdateVersioned(ctx, r.ID, r.Version, fields); err != nil {
		return err
	}
	fresh, err := tx.Reservations.Get(ctx, r.ID)
	if err != nil {
		return err
	}
	*r = *fresh
	return nil
}

func (e *Engine) updateWaitlist(ctx context.Context, tx *repository.Repository, w *models.WaitlistEntry, fields map[string]interface{}) error {
	fields["updated_at"] = e.clock()
	if err := tx.Waitlist.UpdateVersioned(ctx, w.ID, w.Version, fields); err != nil {
		return err
	}
	fresh, err := tx.Waitlist.Get(ctx, w.ID)
	if err != nil {
		return err
	}
	*w = *fresh
	return nil
}

func restaurantMismatch(kind string, got, want uint) error {
	if want != 0 && got != want {
		return fmt.Errorf("%s: %w", kind, ErrNotFound)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Candidate is a booking being evaluated against the schedule.
type Candidate struct {
	RestaurantID         uint
	Date                 string
	Time                 string
	PartySize            int
	DurationMinutes      int
	TableID              *uint
	ExcludeReservationID uint
}

type Conflict struct {
	ReservationID   uint   `json:"reservationId"`
	TableID         uint   `json:"tableId"`
	TableNumber     int    `json:"tableNumber"`
	CustomerName    string `json:"customerName"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"durationMinutes"`
	DeltaMinutes    int    `json:"deltaMinutes"`
	Severity        string `json:"severity"`
}

type ConflictReport struct {
	Conflicts      []Conflict     `json:"conflicts"`
	SuggestedTimes []string       `json:"suggestedTimes"`
	FreeTables     []models.Table `json:"freeTables"`

	candidates []models.Table
}

// Blocking is true when no candidate table can take the booking.
func (r *ConflictReport) Blocking() bool { return len(r.FreeTables) == 0 }

// interval is [start, end) in minutes after midnight of one date.
type interval struct{ start, end int }

func (a interval) overlaps(b interval) bool { return a.start < b.end && b.start < a.end }

func reservationInterval(r models.Reservation) (interval, error) {
	start, err := utils.ParseClock(r.Time)
	if err != nil {
		return interval{}, err
	}
	return interval{start, start + r.DurationMinutes}, nil
}

func (e *Engine) severity(delta int) string {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= e.cfg.HighSeverityWithin:
		return SeverityHigh
	case delta <= e.cfg.MediumSeverityWithin:
		return SeverityMedium
	}
	return SeverityLow
}

// normalize validates c in place and returns its start minute.
func (e *Engine) normalize(c *Candidate) (int, error) {
	if c.RestaurantID == 0 {
		return 0, invalid("restaurant_id", "required")
	}
	if _, err := utils.ParseDate(c.Date); err != nil {
		return 0, invalid("date", "must be YYYY-MM-DD")
	}
	start, err := utils.ParseClock(c.Time)
	if err != nil {
		return 0, invalid("time", "must be HH:MM")
	}
	c.Time = utils.FormatClock(start)
	if c.PartySize <= 0 {
		return 0, invalid("party_size", "must be positive")
	}
	if c.DurationMinutes == 0 {
		c.DurationMinutes = e.cfg.DefaultDuration
	}
	if c.DurationMinutes < 0 {
		return 0, invalid("duration_minutes", "must be positive")
	}
	if start < e.openMin || start+c.DurationMinutes > e.closeMin {
		return 0, invalid("time", "%s for %d minutes is outside service hours %s-%s",
			c.Time, c.DurationMinutes, e.cfg.ServiceOpen, e.cfg.ServiceClose)
	}
	return start, nil
}

// usable reports whether t may take a booking starting at startMin on date,
// ignoring the schedule. Imminent bookings need the table physically free.
func (e *Engine) usable(t models.Table, date string, startMin int, exclude uint) bool {
	if t.Status == models.TableOutOfOrder {
		return false
	}
	if !e.imminent(date, startMin) {
		return true
	}
	if t.Status == models.TableAvailable {
		return true
	}
	return exclude != 0 && t.CurrentReservationID != nil && *t.CurrentReservationID == exclude
}

type schedule map[uint][]models.Reservation

func (s schedule) clashes(tableID uint, iv interval) []models.Reservation {
	var out []models.Reservation
	for _, r := range s[tableID] {
		other, err := reservationInterval(r)
		if err != nil {
			continue
		}
		if iv.overlaps(other) {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) loadSchedule(ctx context.Context, tx *repository.Repository, restaurantID uint, date string, exclude uint) (schedule, error) {
	list, err := tx.Reservations.ListBlocking(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}
	s := make(schedule)
	for _, r := range list {
		if r.ID == exclude || r.TableID == nil {
			continue
		}
		s[*r.TableID] = append(s[*r.TableID], r)
	}
	return s, nil
}

// detect runs conflict detection for a normalized candidate inside tx.
func (e *Engine) detect(ctx context.Context, tx *repository.Repository, c Candidate, startMin int) (*ConflictReport, error) {
	var tables []models.Table
	if c.TableID != nil {
		t, err := tx.Tables.Get(ctx, *c.TableID)
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", *c.TableID, err)
		}
		if err := restaurantMismatch("table", t.RestaurantID, c.RestaurantID); err != nil {
			return nil, err
		}
		if !t.Fits(c.PartySize) {
			return nil, invalid("table_id", "table %d seats %d, party is %d", t.Number, t.Seats, c.PartySize)
		}
		tables = []models.Table{*t}
	} else {
		var err error
		tables, err = tx.Tables.ListCandidates(ctx, c.RestaurantID, c.PartySize)
		if err != nil {
			return nil, err
		}
	}

	sched, err := e.loadSchedule(ctx, tx, c.RestaurantID, c.Date, c.ExcludeReservationID)
	if err != nil {
		return nil, err
	}

	iv := interval{startMin, startMin + c.DurationMinutes}
	report := &ConflictReport{
		Conflicts:      []Conflict{},
		SuggestedTimes: []string{},
		FreeTables:     []models.Table{},
		candidates:     tables,
	}
	for _, t := range tables {
		clashes := sched.clashes(t.ID, iv)
		for _, r := range clashes {
			rs, _ := utils.ParseClock(r.Time)
			delta := rs - startMin
			if delta < 0 {
				delta = -delta
			}
			report.Conflicts = append(report.Conflicts, Conflict{
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
		if len(clashes) == 0 && e.usable(t, c.Date, startMin, c.ExcludeReservationID) {
			report.FreeTables = append(report.FreeTables, t)
		}
	}
	sort.SliceStable(report.Conflicts, func(i, j int) bool {
		a, b := report.Conflicts[i], report.Conflicts[j]
		if a.DeltaMinutes != b.DeltaMinutes {
			return a.DeltaMinutes < b.DeltaMinutes
		}
		return a.TableNumber < b.TableNumber
	})

	if report.Blocking() && len(tables) > 0 {
		report.SuggestedTimes = e.suggest(tables, sched, c, startMin)
	}
	return report, nil
}

// suggest scans outward from startMin in slot steps, forward first, and
// keeps the starts where at least one candidate table is free.
func (e *Engine) suggest(tables []models.Table, sched schedule, c Candidate, startMin int) []string {
	out := []string{}
	step := e.cfg.SlotStep
	dur := c.DurationMinutes

	nowMin := -1
	if c.Date == e.today() {
		nowMin = utils.MinuteOfDay(e.clock())
	}

	free := func(s int) bool {
		iv := interval{s, s + dur}
		for _, t := range tables {
			if len(sched.clashes(t.ID, iv)) == 0 && e.usable(t, c.Date, s, c.ExcludeReservationID) {
				return true
			}
		}
		return false
	}

	for k := 1; len(out) < e.cfg.MaxSuggestions; k++ {
		fwd, back := startMin+k*step, startMin-k*step
		if fwd+dur > e.closeMin && back < e.openMin {
			break
		}
		for _, s := range []int{fwd, back} {
			if len(out) >= e.cfg.MaxSuggestions {
				break
			}
			if s < e.openMin || s+dur > e.closeMin || s < nowMin {
				continue
			}
			if free(s) {
				out = append(out, utils.FormatClock(s))
			}
		}
	}
	return out
}

// DetectConflicts evaluates a candidate booking without changing anything.
func (e *Engine) DetectConflicts(ctx context.Context, c Candidate) (*ConflictReport, error) {
	startMin, err := e.normalize(&c)
	if err != nil {
		return nil, err
	}
	var report *ConflictReport
	err = e.read(ctx, "detect conflicts", func(ctx context.Context) error {
		var err error
		report, err = e.detect(ctx, e.repo, c, startMin)
		return err
	})
	return report, err
}

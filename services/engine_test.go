package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/config"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/database"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
)

const (
	rid      = uint(1)
	today    = "2030-03-01"
	tomorrow = "2030-03-02"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// At moves the clock to hh:mm on the test day.
func (c *fakeClock) At(hh, mm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Date(2030, 3, 1, hh, mm, 0, 0, time.UTC)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(msg Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, msg)
}

func (n *recordingNotifier) kinds(kind string) []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notice
	for _, m := range n.notices {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type recordingMirror struct {
	mu     sync.Mutex
	events []TableStatusEvent
}

func (m *recordingMirror) TableChanged(t models.Table, previous, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, tableStatusEvent(t, previous, reason))
}

type fixture struct {
	engine   *Engine
	repo     *repository.Repository
	db       *gorm.DB
	hub      *hub.Hub
	clock    *fakeClock
	notifier *recordingNotifier
	mirror   *recordingMirror
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := config.DefaultEngine()
	cfg.Timezone = "UTC"

	f := &fixture{
		repo:     repository.New(db),
		db:       db,
		hub:      hub.NewHub(512, quietLogger()),
		clock:    &fakeClock{},
		notifier: &recordingNotifier{},
		mirror:   &recordingMirror{},
	}
	f.clock.At(17, 0)

	f.engine, err = NewEngine(f.repo, f.hub, cfg,
		WithClock(f.clock.Now),
		WithLogger(quietLogger()),
		WithNotifier(f.notifier),
		WithMirror(f.mirror),
	)
	require.NoError(t, err)
	return f
}

func (f *fixture) table(t *testing.T, number, seats int) *models.Table {
	t.Helper()
	tbl, err := f.engine.CreateTable(context.Background(), rid, TableInput{Number: number, Seats: seats})
	require.NoError(t, err)
	return tbl
}

func (f *fixture) book(t *testing.T, date, at string, party, duration int) *models.Reservation {
	t.Helper()
	r, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID:    rid,
		CustomerName:    "Guest " + at,
		Date:            date,
		Time:            at,
		PartySize:       party,
		DurationMinutes: duration,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) reload(t *testing.T, id uint) *models.Table {
	t.Helper()
	tbl, err := f.repo.Tables.Get(context.Background(), id)
	require.NoError(t, err)
	return tbl
}

func drain(c *hub.Client) []hub.Event {
	var out []hub.Event
	for {
		select {
		case ev := <-c.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestNewEngineRejectsBadServiceHours(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.ServiceOpen, cfg.ServiceClose = "22:00", "10:00"
	_, err := NewEngine(repository.New(nil), nil, cfg)
	assert.Error(t, err)

	cfg = config.DefaultEngine()
	cfg.ServiceOpen = "noon"
	_, err = NewEngine(repository.New(nil), nil, cfg)
	assert.Error(t, err)
}

func TestMutateRetriesStaleVersionOnce(t *testing.T) {
	f := setup(t)

	calls := 0
	err := f.engine.mutate(context.Background(), "test", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		calls++
		return repository.ErrStaleVersion
	})
	assert.ErrorIs(t, err, ErrTableAlreadyHeld)
	assert.Equal(t, 2, calls)

	calls = 0
	err = f.engine.mutate(context.Background(), "test", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		calls++
		if calls == 1 {
			return repository.ErrStaleVersion
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMutateWrapsStoreErrorsAsTransient(t *testing.T) {
	f := setup(t)

	err := f.engine.mutate(context.Background(), "boom", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		return fmt.Errorf("disk on fire")
	})
	var tErr *TransientIOError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "boom", tErr.Op)
}

func TestEffectsReleasedOnlyAfterCommit(t *testing.T) {
	f := setup(t)
	client := f.hub.Subscribe("watcher", rid)

	err := f.engine.mutate(context.Background(), "rollback", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
		fx.table(models.Table{ID: 1, RestaurantID: rid, Version: 9}, "", "")
		fx.notify(Notice{Kind: NoticeReminder})
		return ErrNoTableAvailable
	})
	assert.ErrorIs(t, err, ErrNoTableAvailable)
	assert.Empty(t, drain(client))
	assert.Empty(t, f.notifier.kinds(NoticeReminder))
	assert.Empty(t, f.mirror.events)
}

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

func TestCreateThenListRoundTrip(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 4)
	client := f.hub.Subscribe("dash", rid)
	drain(client)

	created := f.book(t, tomorrow, "19:00", 2, 0)
	assert.Equal(t, models.ReservationConfirmed, created.Status)
	assert.Equal(t, 120, created.DurationMinutes)

	list, err := f.engine.GetReservations(context.Background(), rid, repository.ReservationFilter{Date: tomorrow})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, models.ReservationConfirmed, list[0].Status)
	require.NotNil(t, list[0].TableID)

	var types []string
	for _, ev := range drain(client) {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, hub.EventReservationCreated)
	assert.Contains(t, types, hub.EventTableStatusChanged)
	assert.Len(t, f.notifier.kinds(NoticeConfirmation), 1)
}

func TestTightestFitWins(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 8)
	f.table(t, 2, 4)
	f.table(t, 3, 6)
	f.table(t, 4, 4)

	r := f.book(t, tomorrow, "19:00", 3, 120)
	tbl := f.reload(t, *r.TableID)
	assert.Equal(t, 2, tbl.Number)

	r = f.book(t, tomorrow, "19:00", 3, 120)
	tbl = f.reload(t, *r.TableID)
	assert.Equal(t, 4, tbl.Number)

	r = f.book(t, tomorrow, "19:00", 3, 120)
	tbl = f.reload(t, *r.TableID)
	assert.Equal(t, 3, tbl.Number)
}

func TestNoTableForOversizedParty(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 4)

	_, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID: rid, CustomerName: "Big group", Date: tomorrow, Time: "19:00", PartySize: 12,
	})
	assert.ErrorIs(t, err, ErrNoTableAvailable)
}

func TestCreateReservationValidation(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 4)

	cases := []ReservationRequest{
		{RestaurantID: rid, Date: tomorrow, Time: "19:00", PartySize: 2},
		{RestaurantID: rid, CustomerName: "x", Date: "2030-02-01", Time: "19:00", PartySize: 2},
		{RestaurantID: rid, CustomerName: "x", Date: tomorrow, Time: "19:00", PartySize: 2, Source: "carrier_pigeon"},
		{RestaurantID: rid, CustomerName: "x", Date: tomorrow, Time: "19:00", PartySize: 2, Priority: -1},
	}
	for _, req := range cases {
		_, err := f.engine.CreateReservation(context.Background(), req)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, "%+v", req)
	}
}

func TestCustomerResolvedFromDirectory(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 4)
	require.NoError(t, f.repo.Customers.Create(context.Background(), &models.Customer{
		Ref: "C-42", Name: "Ada", Phone: "555-0100", VIP: true,
	}))

	r, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID: rid, CustomerRef: "C-42", Date: tomorrow, Time: "19:00", PartySize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", r.CustomerName)
	assert.Equal(t, "555-0100", r.CustomerPhone)
	assert.Equal(t, 1, r.Priority)
}

func TestDeferredAssignmentStaysPending(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 4)

	r, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID: rid, CustomerName: "Later", Date: tomorrow, Time: "19:00", PartySize: 2, DeferAssignment: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, r.Status)
	assert.Nil(t, r.TableID)

	assigned, err := f.engine.AssignTable(context.Background(), r.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, assigned.Status)
	assert.NotNil(t, assigned.TableID)
	assert.Len(t, f.notifier.kinds(NoticeConfirmation), 1)
}

func TestAssignTableVersionMismatchFails(t *testing.T) {
	f := setup(t)
	tbl := f.table(t, 1, 4)
	read := tbl.Version

	lunch, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID: rid, CustomerName: "Lunch", Date: tomorrow, Time: "12:00", PartySize: 2, DeferAssignment: true,
	})
	require.NoError(t, err)
	dinner, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID: rid, CustomerName: "Dinner", Date: tomorrow, Time: "19:00", PartySize: 2, DeferAssignment: true,
	})
	require.NoError(t, err)

	_, err = f.engine.AssignTable(context.Background(), lunch.ID, &tbl.ID, nil)
	require.NoError(t, err)
	assert.Greater(t, f.reload(t, tbl.ID).Version, read)

	_, err = f.engine.AssignTable(context.Background(), dinner.ID, &tbl.ID, &read)
	assert.ErrorIs(t, err, ErrTableAlreadyHeld)

	still, err := f.engine.GetReservation(context.Background(), dinner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, still.Status)
	assert.Nil(t, still.TableID)
}

func TestAssignToBookedTableIsConflict(t *testing.T) {
	f := setup(t)
	tbl := f.table(t, 1, 4)
	f.book(t, tomorrow, "19:00", 2, 120)

	later, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID: rid, CustomerName: "Later", Date: tomorrow, Time: "19:30", PartySize: 2, DeferAssignment: true,
	})
	require.NoError(t, err)

	version := f.reload(t, tbl.ID).Version
	_, err = f.engine.AssignTable(context.Background(), later.ID, &tbl.ID, &version)
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	require.Len(t, cErr.Conflicts, 1)
	assert.Equal(t, tbl.ID, cErr.Conflicts[0].TableID)
	assert.NotErrorIs(t, err, ErrTableAlreadyHeld)
}

func TestConcurrentAssignExactlyOneWins(t *testing.T) {
	f := setup(t)
	tbl := f.table(t, 1, 2)
	version := tbl.Version

	var ids []uint
	for i := 0; i < 2; i++ {
		r, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
			RestaurantID: rid, CustomerName: "Racer", Date: tomorrow, Time: "19:00", PartySize: 2, DeferAssignment: true,
		})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = f.engine.AssignTable(context.Background(), id, &tbl.ID, &version)
		}(i, id)
	}
	wg.Wait()

	wins, held := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrTableAlreadyHeld):
			held++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, held)
}

// competingWrite bumps the table's version inside the store right before
// the engine's own versioned write, for the first n writes to tables.
func competingWrite(t *testing.T, db *gorm.DB, tableID uint, n int32) *atomic.Int32 {
	t.Helper()
	var fired atomic.Int32
	name := "test:competing_table_write"
	err := db.Callback().Update().Before("gorm:update").Register(name, func(d *gorm.DB) {
		if d.Statement.Table != "tables" || fired.Load() >= n {
			return
		}
		fired.Add(1)
		if _, err := d.Statement.ConnPool.ExecContext(d.Statement.Context,
			"UPDATE tables SET version = version + 1 WHERE id = ?", tableID); err != nil {
			_ = d.AddError(err)
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Callback().Update().Remove(name) })
	return &fired
}

func TestAssignRetriesAfterInterleavedWrite(t *testing.T) {
	f := setup(t)
	tbl := f.table(t, 1, 4)
	r, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID: rid, CustomerName: "Retry", Date: tomorrow, Time: "19:00", PartySize: 2, DeferAssignment: true,
	})
	require.NoError(t, err)

	fired := competingWrite(t, f.db, tbl.ID, 1)
	out, err := f.engine.AssignTable(context.Background(), r.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, models.ReservationConfirmed, out.Status)
	require.NotNil(t, out.TableID)
	assert.Equal(t, tbl.ID, *out.TableID)
	assert.Equal(t, r.Version+1, out.Version)
}

func TestAssignGivesUpAfterSecondInterleavedWrite(t *testing.T) {
	f := setup(t)
	tbl := f.table(t, 1, 4)
	client := f.hub.Subscribe("watcher", rid)
	r, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
		RestaurantID: rid, CustomerName: "Loser", Date: tomorrow, Time: "19:00", PartySize: 2, DeferAssignment: true,
	})
	require.NoError(t, err)
	drain(client)
	before := f.reload(t, tbl.ID).Version

	fired := competingWrite(t, f.db, tbl.ID, 2)
	_, err = f.engine.AssignTable(context.Background(), r.ID, nil, nil)
	assert.ErrorIs(t, err, ErrTableAlreadyHeld)
	assert.Equal(t, int32(2), fired.Load())
	assert.Empty(t, drain(client))

	still, err := f.engine.GetReservation(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, still.Status)
	assert.Nil(t, still.TableID)
	assert.Equal(t, before, f.reload(t, tbl.ID).Version)
}

func TestConfirmedReservationsNeverOverlapOnATable(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 2)
	f.table(t, 2, 4)

	for m := 17 * 60; m <= 20*60; m += 15 {
		_, err := f.engine.CreateReservation(context.Background(), ReservationRequest{
			RestaurantID: rid, CustomerName: "Slot", Date: tomorrow, Time: utils.FormatClock(m), PartySize: 2, DurationMinutes: 90,
		})
		if err != nil {
			var cErr *ConflictError
			require.True(t, errors.As(err, &cErr) || errors.Is(err, ErrNoTableAvailable), err)
		}
	}

	list, err := f.engine.GetReservations(context.Background(), rid, repository.ReservationFilter{Date: tomorrow, Status: models.ReservationConfirmed})
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for i := range list {
		for j := i + 1; j < len(list); j++ {
			a, b := list[i], list[j]
			if *a.TableID != *b.TableID {
				continue
			}
			ia, _ := reservationInterval(a)
			ib, _ := reservationInterval(b)
			assert.False(t, ia.overlaps(ib), "reservations %d and %d overlap on table %d", a.ID, b.ID, *a.TableID)
		}
	}
}

func TestReservationLifecycle(t *testing.T) {
	f := setup(t)
	tbl := f.table(t, 1, 4)
	ctx := context.Background()

	r := f.book(t, today, "17:30", 2, 120)
	held := f.reload(t, tbl.ID)
	assert.Equal(t, models.TableReserved, held.Status)
	require.NotNil(t, held.CurrentReservationID)
	assert.Equal(t, r.ID, *held.CurrentReservationID)

	f.clock.At(17, 20)
	r, err := f.engine.Arrive(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationArrived, r.Status)

	f.clock.At(17, 35)
	r, err = f.engine.Seat(ctx, r.ID, nil, 7)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationSeated, r.Status)
	assert.Equal(t, models.TableOccupied, f.reload(t, tbl.ID).Status)

	f.clock.At(19, 35)
	r, err = f.engine.Complete(ctx, r.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCompleted, r.Status)
	cleaning := f.reload(t, tbl.ID)
	assert.Equal(t, models.TableCleaning, cleaning.Status)
	assert.Nil(t, cleaning.CurrentReservationID)

	tblNow, err := f.engine.UpdateTableStatus(ctx, rid, tbl.ID, StatusChange{Status: models.TableAvailable, ActorID: 7})
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tblNow.Status)

	history, err := f.engine.TableHistory(ctx, rid, tbl.ID, 0)
	require.NoError(t, err)
	var seen []string
	for i := len(history) - 1; i >= 0; i-- {
		seen = append(seen, history[i].ToStatus)
	}
	assert.Equal(t, []string{models.TableReserved, models.TableOccupied, models.TableCleaning, models.TableAvailable}, seen)

	_, err = f.engine.Arrive(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelReleasesHeldTableAndPromotes(t *testing.T) {
	f := setup(t)
	tbl := f.table(t, 1, 4)
	ctx := context.Background()

	r := f.book(t, today, "17:30", 2, 120)
	w, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "Walker", PartySize: 3})
	require.NoError(t, err)

	cancelled, err := f.engine.Cancel(ctx, r.ID, "no show", 0)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, cancelled.Status)
	assert.Equal(t, "no show", cancelled.CancelReason)
	assert.Len(t, f.notifier.kinds(NoticeCancellation), 1)

	after := f.reload(t, tbl.ID)
	assert.Equal(t, models.TableReserved, after.Status)

	entry, err := f.repo.Waitlist.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistPromoted, entry.Status)
	require.NotNil(t, entry.ReservationID)
	assert.Equal(t, *entry.ReservationID, *after.CurrentReservationID)
}

func TestCancelSeatedSendsTableToCleaning(t *testing.T) {
	f := setup(t)
	tbl := f.table(t, 1, 4)
	ctx := context.Background()

	r := f.book(t, today, "17:30", 2, 120)
	_, err := f.engine.Seat(ctx, r.ID, nil, 0)
	require.NoError(t, err)

	_, err = f.engine.Cancel(ctx, r.ID, "left early", 0)
	require.NoError(t, err)
	assert.Equal(t, models.TableCleaning, f.reload(t, tbl.ID).Status)
}

func TestRescheduleKeepsTableWhenFree(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 4)
	f.table(t, 2, 4)
	ctx := context.Background()

	r := f.book(t, tomorrow, "19:00", 2, 120)
	original := *r.TableID

	newTime := "19:30"
	moved, err := f.engine.Reschedule(ctx, r.ID, ReservationChange{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "19:30", moved.Time)
	assert.Equal(t, original, *moved.TableID)
	assert.Greater(t, moved.Version, r.Version)
}

func TestRescheduleMovesOrConflicts(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 4)
	ctx := context.Background()

	first := f.book(t, tomorrow, "18:00", 2, 120)
	second := f.book(t, tomorrow, "20:00", 2, 120)
	require.Equal(t, *first.TableID, *second.TableID)

	clash := "19:00"
	_, err := f.engine.Reschedule(ctx, second.ID, ReservationChange{Time: &clash})
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, first.ID, cErr.Conflicts[0].ReservationID)

	unchanged, err := f.engine.GetReservation(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "20:00", unchanged.Time)

	bigger := 6
	_, err = f.engine.Reschedule(ctx, second.ID, ReservationChange{PartySize: &bigger})
	assert.ErrorIs(t, err, ErrNoTableAvailable)
}

func TestSeatAtOtherTableReleasesHold(t *testing.T) {
	f := setup(t)
	t1 := f.table(t, 1, 2)
	t2 := f.table(t, 2, 4)
	ctx := context.Background()

	r := f.book(t, today, "17:30", 2, 120)
	require.Equal(t, t1.ID, *r.TableID)
	require.Equal(t, models.TableReserved, f.reload(t, t1.ID).Status)

	seated, err := f.engine.Seat(ctx, r.ID, &t2.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, t2.ID, *seated.TableID)
	assert.Equal(t, models.TableOccupied, f.reload(t, t2.ID).Status)
	assert.Equal(t, models.TableAvailable, f.reload(t, t1.ID).Status)
}

func TestSendDueReminders(t *testing.T) {
	f := setup(t)
	f.table(t, 1, 4)
	f.table(t, 2, 4)
	ctx := context.Background()

	soon := f.book(t, today, "18:30", 2, 120)
	f.book(t, tomorrow, "19:00", 2, 120)

	sent, err := f.engine.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	reminders := f.notifier.kinds(NoticeReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, soon.ID, reminders[0].ReservationID)

	sent, err = f.engine.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

// cleaning puts a table into CLEANING through a walk-in and checkout.
func (f *fixture) cleaning(t *testing.T, tbl *models.Table) {
	t.Helper()
	ctx := context.Background()
	_, err := f.engine.UpdateTableStatus(ctx, rid, tbl.ID, StatusChange{Status: models.TableOccupied})
	require.NoError(t, err)
	_, err = f.engine.UpdateTableStatus(ctx, rid, tbl.ID, StatusChange{Status: models.TableCleaning})
	require.NoError(t, err)
}

func TestTable6PromotionScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for n := 1; n <= 5; n++ {
		f.table(t, n, 2)
	}
	t6 := f.table(t, 6, 8)
	f.cleaning(t, t6)

	f.clock.At(18, 0)
	a, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "A", PartySize: 4})
	require.NoError(t, err)
	f.clock.At(18, 5)
	b, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "B", PartySize: 6, Priority: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Position)

	f.clock.At(18, 10)
	tbl, err := f.engine.UpdateTableStatus(ctx, rid, t6.ID, StatusChange{Status: models.TableAvailable})
	require.NoError(t, err)
	assert.Equal(t, models.TableReserved, tbl.Status)

	promoted, err := f.repo.Waitlist.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistPromoted, promoted.Status)
	require.NotNil(t, promoted.ReservationID)
	assert.Equal(t, *promoted.ReservationID, *tbl.CurrentReservationID)

	r, err := f.engine.GetReservation(ctx, *promoted.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, r.Status)
	assert.Equal(t, models.SourceWaitlist, r.Source)
	assert.Equal(t, "18:10", r.Time)
	assert.Equal(t, 6, r.PartySize)

	pos, err := f.engine.Position(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
}

func TestPromotionSkipsEntriesThatDoNotFit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t1 := f.table(t, 1, 2)
	f.table(t, 2, 8)
	f.cleaning(t, t1)

	big, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "Big", PartySize: 6, Priority: 2})
	require.NoError(t, err)

	tbl, err := f.engine.UpdateTableStatus(ctx, rid, t1.ID, StatusChange{Status: models.TableAvailable})
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tbl.Status)

	still, err := f.repo.Waitlist.Get(ctx, big.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistWaiting, still.Status)

	small, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "Small", PartySize: 2})
	require.NoError(t, err)
	f.cleaning(t, t1)
	tbl, err = f.engine.UpdateTableStatus(ctx, rid, t1.ID, StatusChange{Status: models.TableAvailable})
	require.NoError(t, err)
	assert.Equal(t, models.TableReserved, tbl.Status)

	got, err := f.repo.Waitlist.Get(ctx, small.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistPromoted, got.Status)
}

func TestPromotionRespectsWindow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t1 := f.table(t, 1, 4)
	f.cleaning(t, t1)

	early, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "Early", PartySize: 2, Priority: 5, WindowStart: "19:00", WindowEnd: "20:00"})
	require.NoError(t, err)
	now, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "Now", PartySize: 2})
	require.NoError(t, err)

	_, err = f.engine.UpdateTableStatus(ctx, rid, t1.ID, StatusChange{Status: models.TableAvailable})
	require.NoError(t, err)

	e1, _ := f.repo.Waitlist.Get(ctx, early.ID)
	e2, _ := f.repo.Waitlist.Get(ctx, now.ID)
	assert.Equal(t, models.WaitlistWaiting, e1.Status)
	assert.Equal(t, models.WaitlistPromoted, e2.Status)
}

func TestPromotionNeedsTableFreeForDefaultDuration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t1 := f.table(t, 1, 4)
	f.cleaning(t, t1)
	// starts before a seating from now would end
	f.book(t, today, "18:45", 2, 120)

	w, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "W", PartySize: 2})
	require.NoError(t, err)

	tbl, err := f.engine.UpdateTableStatus(ctx, rid, t1.ID, StatusChange{Status: models.TableAvailable})
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tbl.Status)
	assert.Equal(t, models.WaitlistWaiting, mustEntry(t, f, w.ID).Status)
}

func TestNoPromotionTooCloseToClosing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t1 := f.table(t, 1, 4)
	f.cleaning(t, t1)

	w, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "Late", PartySize: 2})
	require.NoError(t, err)

	// a default seating from 21:30 would run past the 23:00 close
	f.clock.At(21, 30)
	tbl, err := f.engine.UpdateTableStatus(ctx, rid, t1.ID, StatusChange{Status: models.TableAvailable})
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tbl.Status)
	assert.Equal(t, models.WaitlistWaiting, mustEntry(t, f, w.ID).Status)

	_, err = f.engine.Promote(ctx, w.ID, nil)
	assert.ErrorIs(t, err, ErrNoTableAvailable)

	assert.True(t, f.engine.seatableNow(21*60))
	assert.False(t, f.engine.seatableNow(21*60+1))
	assert.False(t, f.engine.seatableNow(10*60+59))
}

func mustEntry(t *testing.T, f *fixture, id uint) *models.WaitlistEntry {
	t.Helper()
	w, err := f.repo.Waitlist.Get(context.Background(), id)
	require.NoError(t, err)
	return w
}

func TestWaitlistRankingAndPositions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.clock.At(18, 0)
	a, _ := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "A", PartySize: 2})
	f.clock.At(18, 1)
	b, _ := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "B", PartySize: 2, Priority: 1})
	f.clock.At(18, 2)
	c, _ := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "C", PartySize: 2})

	list, err := f.engine.ListWaitlist(ctx, rid)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uint{b.ID, a.ID, c.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].Position, list[1].Position, list[2].Position})

	removed, err := f.engine.RemoveFromWaitlist(ctx, b.ID, "left")
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistRemoved, removed.Status)
	assert.NotNil(t, removed.RemovedAt)

	pos, err := f.engine.Position(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	_, err = f.engine.Position(ctx, b.ID)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = f.engine.RemoveFromWaitlist(ctx, b.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.Position(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExplicitPromoteUsesTightestAvailable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.table(t, 1, 8)
	t2 := f.table(t, 2, 4)

	w, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "W", PartySize: 3})
	require.NoError(t, err)

	r, err := f.engine.Promote(ctx, w.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, t2.ID, *r.TableID)
	assert.Equal(t, models.TableReserved, f.reload(t, t2.ID).Status)
	require.NotNil(t, r.WaitlistEntryID)
	assert.Equal(t, w.ID, *r.WaitlistEntryID)

	_, err = f.engine.Promote(ctx, w.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExplicitPromoteOntoHeldTableFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t1 := f.table(t, 1, 4)
	f.book(t, today, "17:30", 2, 120)

	w, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "W", PartySize: 2})
	require.NoError(t, err)

	_, err = f.engine.Promote(ctx, w.ID, &t1.ID)
	assert.ErrorIs(t, err, ErrTableAlreadyHeld)
}

func TestOversizedPartyIsFlaggedAndNeverPromoted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t1 := f.table(t, 1, 4)
	f.cleaning(t, t1)

	w, err := f.engine.Enqueue(ctx, WaitlistRequest{RestaurantID: rid, CustomerName: "Wedding", PartySize: 20})
	require.NoError(t, err)

	alerts, err := f.engine.ListNotifications(ctx, rid, true)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertManualOverride, alerts[0].Kind)
	require.NotNil(t, alerts[0].WaitlistEntryID)
	assert.Equal(t, w.ID, *alerts[0].WaitlistEntryID)

	_, err = f.engine.Promote(ctx, w.ID, nil)
	assert.ErrorIs(t, err, ErrNoTableAvailable)

	tbl, err := f.engine.UpdateTableStatus(ctx, rid, t1.ID, StatusChange{Status: models.TableAvailable})
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tbl.Status)

	// the alert is raised once
	alerts, err = f.engine.ListNotifications(ctx, rid, false)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	require.NoError(t, f.engine.MarkNotificationRead(ctx, alerts[0].ID))
	unread, err := f.engine.ListNotifications(ctx, rid, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, f.engine.MarkNotificationRead(ctx, 4242), ErrNotFound)
}

func TestEnqueueValidation(t *testing.T) {
	f := setup(t)
	cases := []WaitlistRequest{
		{RestaurantID: rid, CustomerName: "x", PartySize: 0},
		{RestaurantID: rid, CustomerName: "x", PartySize: 2, WindowStart: "25:00"},
		{RestaurantID: rid, CustomerName: "x", PartySize: 2, WindowStart: "20:00", WindowEnd: "19:00"},
		{RestaurantID: rid, PartySize: 2},
	}
	for _, req := range cases {
		_, err := f.engine.Enqueue(context.Background(), req)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, "%+v", req)
	}
}

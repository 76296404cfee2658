package services

import (
	"context"
	"math"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

type ReservationAnalytics struct {
	From              string         `json:"from"`
	To                string         `json:"to"`
	TotalReservations int            `json:"totalReservations"`
	SeatedTables      int            `json:"seatedTables"`
	Cancelled         int            `json:"cancelled"`
	ByStatus          map[string]int `json:"byStatus"`
	BySource          map[string]int `json:"bySource"`
	AvgWaitTime       float64        `json:"avgWaitTime"` // minutes from arrival to seating
	AvgPartySize      float64        `json:"avgPartySize"`
	OccupancyRate     float64        `json:"occupancyRate"`
	WaitlistEntries   int            `json:"waitlistEntries"`
	WaitlistPromoted  int            `json:"waitlistPromoted"`
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// GetReservationAnalytics aggregates bookings dated in [from, to].
// Occupancy is seated table-minutes over table count times service minutes
// times days in range.
func (e *Engine) GetReservationAnalytics(ctx context.Context, restaurantID uint, from, to string) (*ReservationAnalytics, error) {
	if from == "" {
		from = e.today()
	}
	if to == "" {
		to = from
	}
	fromDay, err := utils.ParseDate(from)
	if err != nil {
		return nil, invalid("from", "must be YYYY-MM-DD")
	}
	toDay, err := utils.ParseDate(to)
	if err != nil {
		return nil, invalid("to", "must be YYYY-MM-DD")
	}
	if toDay.Before(fromDay) {
		return nil, invalid("to", "must not be before from")
	}
	days := int(toDay.Sub(fromDay).Hours()/24) + 1

	out := &ReservationAnalytics{
		From:     from,
		To:       to,
		ByStatus: map[string]int{},
		BySource: map[string]int{},
	}
	err = e.read(ctx, "reservation analytics", func(ctx context.Context) error {
		list, err := e.repo.Reservations.List(ctx, restaurantID, repository.ReservationFilter{FromDate: from, ToDate: to})
		if err != nil {
			return err
		}
		tables, err := e.repo.Tables.ListByRestaurant(ctx, restaurantID)
		if err != nil {
			return err
		}
		loc := e.loc
		start, _ := utils.At(from, 0, loc)
		end, _ := utils.At(to, 24*60, loc)
		entries, err := e.repo.Waitlist.ListEnqueuedBetween(ctx, restaurantID, start, end)
		if err != nil {
			return err
		}

		var waitSum, waitN, partySum, seatedMinutes float64
		for _, r := range list {
			out.TotalReservations++
			out.ByStatus[r.Status]++
			out.BySource[r.Source]++
			partySum += float64(r.PartySize)
			if r.Status == models.ReservationCancelled {
				out.Cancelled++
			}
			if r.Status == models.ReservationSeated || r.Status == models.ReservationCompleted {
				out.SeatedTables++
				minutes := float64(r.DurationMinutes)
				if r.SeatedAt != nil && r.CompletedAt != nil {
					minutes = r.CompletedAt.Sub(*r.SeatedAt).Minutes()
				}
				seatedMinutes += minutes
			}
			if r.ArrivedAt != nil && r.SeatedAt != nil {
				waitSum += r.SeatedAt.Sub(*r.ArrivedAt).Minutes()
				waitN++
			}
		}
		if waitN > 0 {
			out.AvgWaitTime = round2(waitSum / waitN)
		}
		if out.TotalReservations > 0 {
			out.AvgPartySize = round2(partySum / float64(out.TotalReservations))
		}
		capacity := float64(len(tables)) * float64(e.closeMin-e.openMin) * float64(days)
		if capacity > 0 {
			out.OccupancyRate = math.Min(1, math.Round(seatedMinutes/capacity*10000)/10000)
		}

		for _, w := range entries {
			out.WaitlistEntries++
			if w.Status == models.WaitlistPromoted {
				out.WaitlistPromoted++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

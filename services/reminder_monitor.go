package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

// ReminderMonitor polls for confirmed reservations starting within the
// reminder lead and sends each one reminder.
type ReminderMonitor struct {
	Engine   *Engine
	StopChan chan struct{}
	Interval time.Duration
}

func NewReminderMonitor(e *Engine) *ReminderMonitor {
	interval := e.cfg.ReminderInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderMonitor{
		Engine:   e,
		StopChan: make(chan struct{}),
		Interval: interval,
	}
}

func (rm *ReminderMonitor) Start() {
	go func() {
		ticker := time.NewTicker(rm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := rm.Engine.SendDueReminders(context.Background()); err != nil {
					rm.Engine.log.WithError(err).Error("reminder check failed")
				}
			case <-rm.StopChan:
				return
			}
		}
	}()
}

func (rm *ReminderMonitor) Stop() {
	close(rm.StopChan)
}

// SendDueReminders reminds every confirmed, not yet reminded reservation
// starting between now and now plus the reminder lead. Returns how many were
// sent.
func (e *Engine) SendDueReminders(ctx context.Context) (int, error) {
	now := e.clock()
	horizon := now.Add(e.cfg.ReminderLead)
	dates := []string{now.Format(utils.DateLayout)}
	if d := horizon.Format(utils.DateLayout); d != dates[0] {
		dates = append(dates, d)
	}

	var due []models.Reservation
	err := e.read(ctx, "list due reminders", func(ctx context.Context) error {
		list, err := e.repo.Reservations.ListAwaitingReminder(ctx, dates)
		if err != nil {
			return err
		}
		for _, r := range list {
			startMin, err := utils.ParseClock(r.Time)
			if err != nil {
				continue
			}
			start, err := utils.At(r.Date, startMin, e.loc)
			if err != nil {
				continue
			}
			if start.After(now) && !start.After(horizon) {
				due = append(due, r)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range due {
		id, version := r.ID, r.Version
		reminded := false
		err := e.mutate(ctx, "send reminder", nil, func(ctx context.Context, tx *repository.Repository, fx *effects) error {
			cur, err := tx.Reservations.Get(ctx, id)
			if err != nil {
				return err
			}
			// changed since listing; the next tick re-evaluates it
			if cur.Version != version || cur.ReminderSentAt != nil {
				return nil
			}
			if err := e.updateReservation(ctx, tx, cur, map[string]interface{}{"reminder_sent_at": now}); err != nil {
				return err
			}
			fx.reservation(hub.EventReservationUpdated, *cur)
			fx.notify(noticeFor(NoticeReminder, *cur, now))
			reminded = true
			return nil
		})
		if err != nil {
			e.log.WithError(err).WithField("reservation", id).Warn("reminder not recorded")
			continue
		}
		if reminded {
			sent++
		}
	}

	if sent > 0 {
		e.log.WithFields(logrus.Fields{"sent": sent}).Info("reservation reminders sent")
	}
	return sent, nil
}

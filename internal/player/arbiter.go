/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/ambientfm/internal/models"
	"github.com/friendsincode/ambientfm/internal/telemetry"
)

const minutesPerDay = 24 * 60

// parseClock converts an "HH:MM" wall-clock string to minutes past midnight.
func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}
	return hour*60 + minute, nil
}

// matchesTimeOfDay reports whether the wall-clock minute of now falls inside
// the rule's daily window. Windows where end < start wrap across midnight.
// A window where start == end fires as a one-minute pulse around that instant
// rather than matching the whole day.
func matchesTimeOfDay(rule models.Schedule, now time.Time) bool {
	start, err := parseClock(rule.StartTime)
	if err != nil {
		return false
	}
	end, err := parseClock(rule.EndTime)
	if err != nil {
		return false
	}

	minute := now.Hour()*60 + now.Minute()

	switch {
	case start == end:
		// Circular distance so a 23:59 pulse still matches at 00:00.
		diff := minute - start
		if diff < 0 {
			diff = -diff
		}
		if diff > minutesPerDay/2 {
			diff = minutesPerDay - diff
		}
		return diff <= 1
	case start < end:
		return minute >= start && minute < end
	default:
		return minute >= start || minute < end
	}
}

// sameDate compares calendar days, ignoring the time of day.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// matchesRecurrence applies a rule's date constraints to now. The time-of-day
// window is checked separately.
func matchesRecurrence(rule models.Schedule, now time.Time) bool {
	if rule.RepeatUntil != nil && now.After(endOfDay(*rule.RepeatUntil)) {
		return false
	}

	if rule.SpecificDate != nil {
		anchor := *rule.SpecificDate
		switch rule.RepeatType {
		case models.RepeatOnce:
			return sameDate(now, anchor)
		case models.RepeatDaily:
			return !now.Before(startOfDay(anchor))
		case models.RepeatWeekly:
			return !now.Before(startOfDay(anchor)) && now.Weekday() == anchor.Weekday()
		case models.RepeatMonthly:
			return !now.Before(startOfDay(anchor)) && now.Day() == anchor.Day()
		default:
			return sameDate(now, anchor)
		}
	}

	if rule.DayOfWeek != nil {
		return int(now.Weekday()) == *rule.DayOfWeek
	}

	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// isActiveAt reports whether a rule claims the given instant. Both the daily
// time window and the recurrence pattern must match.
func isActiveAt(rule models.Schedule, now time.Time) bool {
	if !rule.Active {
		return false
	}
	return matchesTimeOfDay(rule, now) && matchesRecurrence(rule, now)
}

// pickWinner selects the single rule that should control playback at now.
// Highest priority wins; ties fall to the most recently created rule.
// Returns nil when no rule is active.
func pickWinner(rules []models.Schedule, now time.Time) *models.Schedule {
	var winner *models.Schedule
	for i := range rules {
		rule := &rules[i]
		if !isActiveAt(*rule, now) {
			continue
		}
		if winner == nil ||
			rule.Priority > winner.Priority ||
			(rule.Priority == winner.Priority && rule.CreatedAt.After(winner.CreatedAt)) {
			winner = rule
		}
	}
	return winner
}

// pollLoop re-evaluates the schedule rules until ctx is cancelled.
func (s *Service) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs one arbitration pass: pick the winning rule for the current
// instant and, only when the winner changed, transition the queue.
func (s *Service) tick() {
	telemetry.ArbiterTicksTotal.Inc()

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	now := s.now()
	winner := pickWinner(s.rules, now)
	currentID := ""
	if s.activeSchedule != nil {
		currentID = s.activeSchedule.ID
	}
	winnerID := ""
	if winner != nil {
		winnerID = winner.ID
	}
	if winnerID == currentID {
		s.mu.Unlock()
		return
	}
	tenantID := s.tenantID
	s.mu.Unlock()

	if winner != nil {
		s.logger.Info().
			Str("schedule_id", winner.ID).
			Str("playlist_id", winner.PlaylistID).
			Int("priority", winner.Priority).
			Msg("schedule window opened")
		telemetry.ScheduleTransitionsTotal.WithLabelValues(tenantID, "activate").Inc()
		s.applySchedule(winner)
	} else {
		s.logger.Info().
			Str("schedule_id", currentID).
			Msg("schedule window closed")
		telemetry.ScheduleTransitionsTotal.WithLabelValues(tenantID, "release").Inc()
		s.releaseSchedule()
	}
}

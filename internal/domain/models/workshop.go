// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// occurrenceTolerance lets a recurring meeting that starts early still map to
// the occurrence it was scheduled for.
const occurrenceTolerance = time.Hour

// Workshop is a catalog entry linking a Zoom meeting to a workshop and its reward policy.
type Workshop struct {
	ID              string    `json:"id" toml:"id"`
	ZoomMeetingID   string    `json:"zoom_meeting_id" toml:"zoom_meeting_id"`
	Title           string    `json:"title" toml:"title"`
	DurationMinutes int       `json:"duration_minutes" toml:"duration_minutes"`
	StartsAt        time.Time `json:"starts_at" toml:"starts_at"`
	// Recurrence is an RFC 5545 RRULE (without DTSTART) for workshop series that
	// reuse one Zoom meeting id. Empty for one-off workshops.
	Recurrence string `json:"recurrence,omitempty" toml:"recurrence"`
	// JoyCoins overrides the default reward amount when positive.
	JoyCoins int `json:"joy_coins,omitempty" toml:"joy_coins"`
}

// Validate checks that the workshop can be used for reconciliation.
func (w *Workshop) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("workshop id is required")
	}
	if w.ZoomMeetingID == "" {
		return fmt.Errorf("workshop %s: zoom meeting id is required", w.ID)
	}
	if w.DurationMinutes <= 0 {
		return fmt.Errorf("workshop %s: duration must be positive", w.ID)
	}
	if w.Recurrence != "" {
		if _, err := w.rule(); err != nil {
			return fmt.Errorf("workshop %s: invalid recurrence: %w", w.ID, err)
		}
	}
	return nil
}

func (w *Workshop) rule() (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(w.Recurrence)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = w.StartsAt
	return rrule.NewRRule(*opt)
}

// OccurrenceID returns the ledger workshop id for a meeting instance that started at
// meetingStart. One-off workshops always return their own id; recurring series return
// the id suffixed with the scheduled occurrence so each session has its own ledger.
func (w *Workshop) OccurrenceID(meetingStart time.Time) string {
	if w.Recurrence == "" || meetingStart.IsZero() {
		return w.ID
	}
	r, err := w.rule()
	if err != nil {
		return w.ID
	}
	occurrence := r.Before(meetingStart.Add(occurrenceTolerance), true)
	if occurrence.IsZero() {
		return w.ID
	}
	return w.ID + ":" + occurrence.UTC().Format("20060102T1504")
}

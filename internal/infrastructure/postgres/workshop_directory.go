// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

const (
	selectWorkshopSQL = `SELECT id, zoom_meeting_id, title, duration_minutes, starts_at, recurrence, joy_coins
	FROM workshops WHERE zoom_meeting_id = $1`

	upsertWorkshopSQL = `INSERT INTO workshops (id, zoom_meeting_id, title, duration_minutes, starts_at, recurrence, joy_coins)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		zoom_meeting_id = EXCLUDED.zoom_meeting_id,
		title = EXCLUDED.title,
		duration_minutes = EXCLUDED.duration_minutes,
		starts_at = EXCLUDED.starts_at,
		recurrence = EXCLUDED.recurrence,
		joy_coins = EXCLUDED.joy_coins`
)

// WorkshopDirectory stores the workshop catalog in PostgreSQL.
type WorkshopDirectory struct {
	db DB
}

var _ domain.WorkshopCatalog = (*WorkshopDirectory)(nil)

// NewWorkshopDirectory creates a workshop directory.
func NewWorkshopDirectory(db DB) *WorkshopDirectory {
	return &WorkshopDirectory{db: db}
}

// GetByZoomMeetingID returns the workshop hosted on the Zoom meeting.
func (d *WorkshopDirectory) GetByZoomMeetingID(ctx context.Context, zoomMeetingID string) (*models.Workshop, error) {
	if zoomMeetingID == "" {
		return nil, domain.NewValidationError("zoom meeting ID is required")
	}

	var (
		workshop models.Workshop
		startsAt *time.Time
	)
	err := d.db.QueryRow(ctx, selectWorkshopSQL, zoomMeetingID).Scan(
		&workshop.ID,
		&workshop.ZoomMeetingID,
		&workshop.Title,
		&workshop.DurationMinutes,
		&startsAt,
		&workshop.Recurrence,
		&workshop.JoyCoins,
	)
	if err != nil {
		return nil, wrapError(err, "workshop")
	}
	if startsAt != nil {
		workshop.StartsAt = *startsAt
	}
	return &workshop, nil
}

// Save stores or replaces a workshop entry.
func (d *WorkshopDirectory) Save(ctx context.Context, workshop *models.Workshop) error {
	if err := workshop.Validate(); err != nil {
		return domain.NewValidationError(fmt.Sprintf("invalid workshop %q", workshop.ID), err)
	}

	var startsAt *time.Time
	if !workshop.StartsAt.IsZero() {
		startsAt = &workshop.StartsAt
	}

	_, err := d.db.Exec(ctx, upsertWorkshopSQL,
		workshop.ID,
		workshop.ZoomMeetingID,
		workshop.Title,
		workshop.DurationMinutes,
		startsAt,
		workshop.Recurrence,
		workshop.JoyCoins,
	)
	return wrapError(err, "workshop")
}

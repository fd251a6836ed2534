// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// NatsWorkshopDirectory stores workshops in the workshops bucket, keyed by Zoom meeting id.
type NatsWorkshopDirectory struct {
	*NatsBaseRepository[models.Workshop]
	keyBuilder *KeyBuilder
}

var _ domain.WorkshopDirectory = (*NatsWorkshopDirectory)(nil)

// NewNatsWorkshopDirectory creates a new NATS KV workshop directory
func NewNatsWorkshopDirectory(kvStore INatsKeyValue) *NatsWorkshopDirectory {
	return &NatsWorkshopDirectory{
		NatsBaseRepository: NewNatsBaseRepository[models.Workshop](kvStore, "workshop"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

func (d *NatsWorkshopDirectory) key(zoomMeetingID string) string {
	return d.keyBuilder.CompoundKeyEncoded(KeyPrefixWorkshop, KeyPrefixZoomMeeting, zoomMeetingID)
}

// GetByZoomMeetingID returns the workshop hosted on the Zoom meeting
func (d *NatsWorkshopDirectory) GetByZoomMeetingID(ctx context.Context, zoomMeetingID string) (*models.Workshop, error) {
	if zoomMeetingID == "" {
		return nil, domain.NewValidationError("zoom meeting ID is required")
	}
	return d.Get(ctx, d.key(zoomMeetingID))
}

// Save stores or replaces a workshop entry
func (d *NatsWorkshopDirectory) Save(ctx context.Context, workshop *models.Workshop) error {
	if err := workshop.Validate(); err != nil {
		return domain.NewValidationError(fmt.Sprintf("invalid workshop %q", workshop.ID), err)
	}
	return d.Put(ctx, d.key(workshop.ZoomMeetingID), workshop)
}

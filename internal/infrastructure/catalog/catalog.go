// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package catalog loads the workshop catalog file into a workshop directory.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// File is the TOML layout of a workshop catalog:
//
//	[[workshop]]
//	id = "intro-to-go"
//	zoom_meeting_id = "85746065432"
//	duration_minutes = 60
//	starts_at = 2026-01-05T15:00:00Z
//	recurrence = "FREQ=WEEKLY;COUNT=6"
//	joy_coins = 25
type File struct {
	Workshops []models.Workshop `toml:"workshop"`
}

// Parse decodes and validates a catalog. Duplicate workshop or meeting ids are rejected.
func Parse(r io.Reader) ([]models.Workshop, error) {
	var file File
	decoder := toml.NewDecoder(r).DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode workshop catalog: %w", err)
	}

	ids := make(map[string]struct{}, len(file.Workshops))
	meetings := make(map[string]string, len(file.Workshops))
	for i := range file.Workshops {
		w := &file.Workshops[i]
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("workshop catalog entry %d: %w", i, err)
		}
		if _, ok := ids[w.ID]; ok {
			return nil, fmt.Errorf("workshop catalog: duplicate workshop id %q", w.ID)
		}
		if other, ok := meetings[w.ZoomMeetingID]; ok {
			return nil, fmt.Errorf("workshop catalog: zoom meeting %q used by %q and %q", w.ZoomMeetingID, other, w.ID)
		}
		ids[w.ID] = struct{}{}
		meetings[w.ZoomMeetingID] = w.ID
	}
	return file.Workshops, nil
}

// Seed writes every workshop into the catalog store.
func Seed(ctx context.Context, store domain.WorkshopCatalog, workshops []models.Workshop) error {
	for i := range workshops {
		if err := store.Save(ctx, &workshops[i]); err != nil {
			return fmt.Errorf("seed workshop %q: %w", workshops[i].ID, err)
		}
	}
	slog.InfoContext(ctx, "workshop catalog loaded", "workshops", len(workshops))
	return nil
}

// LoadFile parses the catalog at path and seeds store with it.
func LoadFile(ctx context.Context, path string, store domain.WorkshopCatalog) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open workshop catalog: %w", err)
	}
	defer f.Close()

	workshops, err := Parse(f)
	if err != nil {
		return err
	}
	return Seed(ctx, store, workshops)
}

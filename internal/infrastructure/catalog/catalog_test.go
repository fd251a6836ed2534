// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/store"
)

const sampleCatalog = `
[[workshop]]
id = "intro-to-go"
zoom_meeting_id = "85746065432"
title = "Intro to Go"
duration_minutes = 60
starts_at = 2026-01-05T15:00:00Z
recurrence = "FREQ=WEEKLY;COUNT=6"
joy_coins = 25

[[workshop]]
id = "kubernetes-101"
zoom_meeting_id = "91234567890"
duration_minutes = 90
`

func TestParse(t *testing.T) {
	workshops, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, workshops, 2)

	assert.Equal(t, "intro-to-go", workshops[0].ID)
	assert.Equal(t, time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC), workshops[0].StartsAt.UTC())
	assert.Equal(t, 25, workshops[0].JoyCoins)
	assert.Equal(t, 90, workshops[1].DurationMinutes)
	assert.Empty(t, workshops[1].Recurrence)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"duplicate id": `
[[workshop]]
id = "a"
zoom_meeting_id = "1"
duration_minutes = 60
[[workshop]]
id = "a"
zoom_meeting_id = "2"
duration_minutes = 60
`,
		"shared meeting": `
[[workshop]]
id = "a"
zoom_meeting_id = "1"
duration_minutes = 60
[[workshop]]
id = "b"
zoom_meeting_id = "1"
duration_minutes = 60
`,
		"missing duration": `
[[workshop]]
id = "a"
zoom_meeting_id = "1"
`,
		"unknown field": `
[[workshop]]
id = "a"
zoom_meeting_id = "1"
duration_minutes = 60
durations = 5
`,
		"not toml": `[[workshop`,
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_SeedsDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workshops.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	dir := store.NewNatsWorkshopDirectory(store.NewInMemoryKeyValue(store.KVStoreNameWorkshops))
	ctx := context.Background()
	require.NoError(t, LoadFile(ctx, path, dir))

	workshop, err := dir.GetByZoomMeetingID(ctx, "91234567890")
	require.NoError(t, err)
	assert.Equal(t, "kubernetes-101", workshop.ID)

	assert.Error(t, LoadFile(ctx, filepath.Join(t.TempDir(), "missing.toml"), dir))
}

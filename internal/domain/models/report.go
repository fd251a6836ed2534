// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// ParticipantReport is one row of the post-meeting participants report.
// Zoom emits a row per session, so a user who rejoined appears more than once.
type ParticipantReport struct {
	Name            string    `json:"name"`
	UserEmail       string    `json:"user_email"`
	JoinTime        time.Time `json:"join_time"`
	LeaveTime       time.Time `json:"leave_time"`
	DurationSeconds int       `json:"duration"`
}

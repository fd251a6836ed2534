// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// ParticipantRole is the role a user holds in a workshop.
type ParticipantRole string

const (
	RoleParticipant ParticipantRole = "participant"
	RoleTrainer     ParticipantRole = "trainer"
	RoleVolunteer   ParticipantRole = "volunteer"
)

// IsValid reports whether the role is one of the known roles.
func (r ParticipantRole) IsValid() bool {
	switch r {
	case RoleParticipant, RoleTrainer, RoleVolunteer:
		return true
	}
	return false
}

// ParticipantStatus is the attendance lifecycle state of a participant record.
type ParticipantStatus string

const (
	StatusRegistered ParticipantStatus = "registered"
	StatusAttended   ParticipantStatus = "attended"
	StatusCompleted  ParticipantStatus = "completed"
)

// Rank orders statuses so that they can only move forward.
func (s ParticipantStatus) Rank() int {
	switch s {
	case StatusRegistered:
		return 1
	case StatusAttended:
		return 2
	case StatusCompleted:
		return 3
	}
	return 0
}

// ParticipantRecord is the attendance and reward state of one user in one workshop.
type ParticipantRecord struct {
	UserID               string            `json:"user_id"`
	WorkshopID           string            `json:"workshop_id"`
	Role                 ParticipantRole   `json:"role"`
	JoinTime             *time.Time        `json:"join_time,omitempty"`
	LeaveTime            *time.Time        `json:"leave_time,omitempty"`
	TotalDurationMinutes int               `json:"total_duration_minutes"`
	AttendancePercentage int               `json:"attendance_percentage"`
	Status               ParticipantStatus `json:"status"`
	CertificateUnlocked  bool              `json:"certificate_unlocked"`
	JoyCoinsAwarded      bool              `json:"joy_coins_awarded"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// NewParticipantRecord returns a record with default values for a new (user, workshop) pair.
func NewParticipantRecord(userID, workshopID string, now time.Time) *ParticipantRecord {
	return &ParticipantRecord{
		UserID:     userID,
		WorkshopID: workshopID,
		Role:       RoleParticipant,
		Status:     StatusRegistered,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ParticipantPatch holds the optional field updates applied by the ledger.
// Nil fields are left untouched.
type ParticipantPatch struct {
	Role                 *ParticipantRole
	JoinTime             *time.Time
	LeaveTime            *time.Time
	TotalDurationMinutes *int
	AttendancePercentage *int
	Status               *ParticipantStatus
	CertificateUnlocked  *bool
	JoyCoinsAwarded      *bool
}

// PatchViolation describes a patch field that was rejected when applied.
type PatchViolation struct {
	Field  string
	Reason string
}

// Apply merges the patch into the record, enforcing the monotonic fields and
// record invariants. Rejected fields are reported and left unchanged while the
// remaining fields still apply. A rejected percentage also drops the duration of
// the same patch.
func (p ParticipantPatch) Apply(r *ParticipantRecord) []PatchViolation {
	var violations []PatchViolation

	if p.Role != nil {
		if p.Role.IsValid() {
			r.Role = *p.Role
		} else {
			violations = append(violations, PatchViolation{Field: "role", Reason: "unknown role " + string(*p.Role)})
		}
	}
	if p.JoinTime != nil {
		t := *p.JoinTime
		r.JoinTime = &t
	}
	if p.LeaveTime != nil {
		t := *p.LeaveTime
		r.LeaveTime = &t
	}
	// duration and percentage come from the same report row and move together
	attendanceRejected := false
	if p.AttendancePercentage != nil {
		pct := min(max(*p.AttendancePercentage, 0), 100)
		if r.CertificateUnlocked && pct < CertificateThresholdPercentage {
			attendanceRejected = true
			violations = append(violations, PatchViolation{Field: "attendance_percentage", Reason: "unlocked certificate requires attendance at or above the threshold"})
		} else {
			r.AttendancePercentage = pct
		}
	}
	if p.TotalDurationMinutes != nil && !attendanceRejected {
		r.TotalDurationMinutes = max(*p.TotalDurationMinutes, 0)
	}
	if p.Status != nil {
		switch {
		case p.Status.Rank() == 0:
			violations = append(violations, PatchViolation{Field: "status", Reason: "unknown status " + string(*p.Status)})
		case p.Status.Rank() < r.Status.Rank():
			violations = append(violations, PatchViolation{Field: "status", Reason: "cannot move status from " + string(r.Status) + " to " + string(*p.Status)})
		default:
			r.Status = *p.Status
		}
	}
	if p.CertificateUnlocked != nil {
		switch {
		case r.CertificateUnlocked && !*p.CertificateUnlocked:
			violations = append(violations, PatchViolation{Field: "certificate_unlocked", Reason: "cannot revert an unlocked certificate"})
		case *p.CertificateUnlocked && r.AttendancePercentage < CertificateThresholdPercentage:
			violations = append(violations, PatchViolation{Field: "certificate_unlocked", Reason: "attendance below certificate threshold"})
		default:
			r.CertificateUnlocked = *p.CertificateUnlocked
		}
	}
	if p.JoyCoinsAwarded != nil {
		switch {
		case r.JoyCoinsAwarded && !*p.JoyCoinsAwarded:
			violations = append(violations, PatchViolation{Field: "joy_coins_awarded", Reason: "cannot revert an issued reward"})
		case *p.JoyCoinsAwarded && !r.CertificateUnlocked:
			violations = append(violations, PatchViolation{Field: "joy_coins_awarded", Reason: "reward requires an unlocked certificate"})
		default:
			r.JoyCoinsAwarded = *p.JoyCoinsAwarded
		}
	}

	return violations
}

// CertificateThresholdPercentage is the minimum attendance that unlocks a certificate.
const CertificateThresholdPercentage = 75

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package ledger owns every mutation of participant attendance records.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// Change is the outcome of applying a patch to a participant record.
type Change struct {
	// Before is nil when the record was created by this change.
	Before     *models.ParticipantRecord
	After      *models.ParticipantRecord
	Violations []models.PatchViolation
}

// Created reports whether the record did not exist before the change.
func (c *Change) Created() bool {
	return c.Before == nil
}

// CertificateUnlocked reports whether this change flipped the certificate flag.
func (c *Change) CertificateUnlocked() bool {
	return c.After.CertificateUnlocked && (c.Before == nil || !c.Before.CertificateUnlocked)
}

// IssueFunc performs the external reward side effect for a record.
type IssueFunc func(ctx context.Context, record *models.ParticipantRecord) error

// Ledger serializes read-modify-write cycles per (user, workshop) key and
// enforces the record invariants on every write.
type Ledger struct {
	repo  domain.ParticipantRepository
	locks *keyLock
	now   func() time.Time
}

// New creates a ledger over the given repository
func New(repo domain.ParticipantRepository) *Ledger {
	return &Ledger{
		repo:  repo,
		locks: newKeyLock(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func lockKey(userID, workshopID string) string {
	return userID + "\x00" + workshopID
}

func validateKey(userID, workshopID string) error {
	if userID == "" {
		return domain.NewValidationError("user ID is required")
	}
	if workshopID == "" {
		return domain.NewValidationError("workshop ID is required")
	}
	return nil
}

// Upsert creates the record when absent and applies the patch. Rejected fields
// are logged and skipped while the rest of the patch applies.
func (l *Ledger) Upsert(ctx context.Context, userID, workshopID string, patch models.ParticipantPatch) (*models.ParticipantRecord, error) {
	change, err := l.Apply(ctx, userID, workshopID, patch)
	if err != nil {
		return nil, err
	}
	return change.After, nil
}

// Apply behaves like Upsert and also reports the state before the write.
func (l *Ledger) Apply(ctx context.Context, userID, workshopID string, patch models.ParticipantPatch) (*Change, error) {
	if err := validateKey(userID, workshopID); err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(lockKey(userID, workshopID))
	defer unlock()

	return l.apply(ctx, userID, workshopID, patch, true)
}

// Update applies the patch to an existing record and returns a not found error
// without creating anything when the record is absent.
func (l *Ledger) Update(ctx context.Context, userID, workshopID string, patch models.ParticipantPatch) (*models.ParticipantRecord, error) {
	if err := validateKey(userID, workshopID); err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(lockKey(userID, workshopID))
	defer unlock()

	change, err := l.apply(ctx, userID, workshopID, patch, false)
	if err != nil {
		return nil, err
	}
	return change.After, nil
}

// apply must be called with the key lock held.
func (l *Ledger) apply(ctx context.Context, userID, workshopID string, patch models.ParticipantPatch, create bool) (*Change, error) {
	var change Change
	after, err := l.repo.Mutate(ctx, userID, workshopID, func(record *models.ParticipantRecord, created bool) error {
		if created && !create {
			return domain.NewNotFoundError("participant record not found")
		}
		// the repository may call this again on an optimistic conflict
		change = Change{}
		now := l.now()
		if created {
			record.CreatedAt = now
		} else {
			before := *record
			change.Before = &before
		}

		change.Violations = patch.Apply(record)
		record.UpdatedAt = now
		return nil
	})
	if err != nil {
		if !create && domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to upsert participant record",
			"user_id", userID,
			"workshop_id", workshopID,
			logging.ErrKey, err)
		return nil, err
	}
	change.After = after

	for _, v := range change.Violations {
		conflict := domain.NewStateConflictError(v.Field + ": " + v.Reason)
		slog.WarnContext(ctx, "ignored participant record update",
			"user_id", userID,
			"workshop_id", workshopID,
			"field", v.Field,
			logging.ErrKey, conflict)
	}

	return &change, nil
}

// Find returns the record for the key or a not found error.
func (l *Ledger) Find(ctx context.Context, userID, workshopID string) (*models.ParticipantRecord, error) {
	if err := validateKey(userID, workshopID); err != nil {
		return nil, err
	}
	return l.repo.Get(ctx, userID, workshopID)
}

// ListByWorkshop returns every record of a workshop.
func (l *Ledger) ListByWorkshop(ctx context.Context, workshopID string) ([]*models.ParticipantRecord, error) {
	if workshopID == "" {
		return nil, domain.NewValidationError("workshop ID is required")
	}
	return l.repo.ListByWorkshop(ctx, workshopID)
}

// AwardOnce calls issue and then flips JoyCoinsAwarded, provided the record has
// an unlocked certificate and no reward yet. The check, the side effect and the
// flag flip run under the key lock, so concurrent callers issue at most once.
// It reports whether the reward was issued by this call.
func (l *Ledger) AwardOnce(ctx context.Context, userID, workshopID string, issue IssueFunc) (bool, *models.ParticipantRecord, error) {
	if err := validateKey(userID, workshopID); err != nil {
		return false, nil, err
	}

	unlock := l.locks.Lock(lockKey(userID, workshopID))
	defer unlock()

	record, err := l.repo.Get(ctx, userID, workshopID)
	if err != nil {
		return false, nil, err
	}

	if !record.CertificateUnlocked || record.JoyCoinsAwarded {
		return false, record, nil
	}

	if err := issue(ctx, record); err != nil {
		return false, record, err
	}

	awarded := true
	change, err := l.apply(ctx, userID, workshopID, models.ParticipantPatch{JoyCoinsAwarded: &awarded}, false)
	if err != nil {
		// the reward went out; a retry reissues with the same transaction id
		slog.ErrorContext(ctx, "reward issued but award flag not persisted",
			"user_id", userID,
			"workshop_id", workshopID,
			logging.ErrKey, err,
			logging.PriorityCritical())
		return true, record, err
	}

	return true, change.After, nil
}

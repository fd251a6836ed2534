// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

const participantColumns = `user_id, workshop_id, role, join_time, leave_time, total_duration_minutes,
	attendance_percentage, status, certificate_unlocked, joy_coins_awarded, created_at, updated_at`

const (
	insertParticipantSQL = `INSERT INTO participants (user_id, workshop_id, role, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (workshop_id, user_id) DO NOTHING`

	selectParticipantSQL = `SELECT ` + participantColumns + ` FROM participants WHERE workshop_id = $1 AND user_id = $2`

	updateParticipantSQL = `UPDATE participants SET
	role = $3, join_time = $4, leave_time = $5, total_duration_minutes = $6, attendance_percentage = $7,
	status = $8, certificate_unlocked = $9, joy_coins_awarded = $10, created_at = $11, updated_at = $12
	WHERE workshop_id = $1 AND user_id = $2`

	listParticipantsSQL = `SELECT ` + participantColumns + ` FROM participants WHERE workshop_id = $1 ORDER BY user_id`
)

// ParticipantRepository is the PostgreSQL implementation of domain.ParticipantRepository.
// Mutations hold a row lock for the duration of the read-modify-write.
type ParticipantRepository struct {
	db DB
}

var _ domain.ParticipantRepository = (*ParticipantRepository)(nil)

// NewParticipantRepository creates a participant repository.
func NewParticipantRepository(db DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func scanParticipant(row pgx.Row) (*models.ParticipantRecord, error) {
	var (
		record models.ParticipantRecord
		role   string
		status string
	)
	err := row.Scan(
		&record.UserID,
		&record.WorkshopID,
		&role,
		&record.JoinTime,
		&record.LeaveTime,
		&record.TotalDurationMinutes,
		&record.AttendancePercentage,
		&status,
		&record.CertificateUnlocked,
		&record.JoyCoinsAwarded,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Role = models.ParticipantRole(role)
	record.Status = models.ParticipantStatus(status)
	return &record, nil
}

// Get retrieves the record of a user in a workshop.
func (r *ParticipantRepository) Get(ctx context.Context, userID, workshopID string) (*models.ParticipantRecord, error) {
	record, err := scanParticipant(r.db.QueryRow(ctx, selectParticipantSQL, workshopID, userID))
	if err != nil {
		return nil, wrapError(err, "participant")
	}
	return record, nil
}

// Mutate inserts the default record when absent, locks the row and persists the mutation
// in a single transaction.
func (r *ParticipantRepository) Mutate(ctx context.Context, userID, workshopID string, mutate domain.ParticipantMutation) (*models.ParticipantRecord, error) {
	var result *models.ParticipantRecord

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertParticipantSQL,
			userID, workshopID, string(models.RoleParticipant), string(models.StatusRegistered), time.Now().UTC())
		if err != nil {
			return err
		}
		created := tag.RowsAffected() == 1

		record, err := scanParticipant(tx.QueryRow(ctx, selectParticipantSQL+" FOR UPDATE", workshopID, userID))
		if err != nil {
			return err
		}

		if err := mutate(record, created); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, updateParticipantSQL,
			workshopID,
			userID,
			string(record.Role),
			record.JoinTime,
			record.LeaveTime,
			record.TotalDurationMinutes,
			record.AttendancePercentage,
			string(record.Status),
			record.CertificateUnlocked,
			record.JoyCoinsAwarded,
			record.CreatedAt,
			record.UpdatedAt,
		)
		if err != nil {
			return err
		}

		result = record
		return nil
	})
	if err != nil {
		return nil, wrapError(err, "participant")
	}
	return result, nil
}

// ListByWorkshop lists every participant record of a workshop.
func (r *ParticipantRepository) ListByWorkshop(ctx context.Context, workshopID string) ([]*models.ParticipantRecord, error) {
	rows, err := r.db.Query(ctx, listParticipantsSQL, workshopID)
	if err != nil {
		return nil, wrapError(err, "participant")
	}
	defer rows.Close()

	var records []*models.ParticipantRecord
	for rows.Next() {
		record, err := scanParticipant(rows)
		if err != nil {
			return nil, wrapError(err, "participant")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "participant")
	}
	return records, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
)

type SBUAssignmentRepository struct {
	pool *pgxpool.Pool
}

func NewSBUAssignmentRepository(pool *pgxpool.Pool) *SBUAssignmentRepository {
	return &SBUAssignmentRepository{pool: pool}
}

// ReplaceSBUAssignments drops every SBU membership of the user and writes
// assignments in their given order.
func (r *SBUAssignmentRepository) ReplaceSBUAssignments(ctx context.Context, userID string, assignments []domain.SBUAssignment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM profile_sbus WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("delete sbu assignments: %w", err)
	}

	if len(assignments) > 0 {
		rows, err := assignmentRows(userID, assignments, time.Now())
		if err != nil {
			return err
		}
		if _, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"profile_sbus"},
			[]string{"user_id", "sbu_id", "is_primary", "position", "created_at"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("copy sbu assignments: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sbu assignments: %w", err)
	}
	return nil
}

// assignmentRows builds COPY rows; uuid columns need binary values.
func assignmentRows(userID string, assignments []domain.SBUAssignment, now time.Time) ([][]any, error) {
	user, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	rows := make([][]any, 0, len(assignments))
	for i, a := range assignments {
		sbu, err := uuid.Parse(a.SBUID)
		if err != nil {
			return nil, fmt.Errorf("parse sbu id %q: %w", a.SBUID, err)
		}
		rows = append(rows, []any{user, sbu, a.IsPrimary, int32(i), now})
	}
	return rows, nil
}

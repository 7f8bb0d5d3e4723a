package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tranquocan24/online-exam-system/internal/model"
)

// ProgressRepository persists autosave snapshots to PostgreSQL. Redis holds
// the hot copy; this table is the durable fallback drained by the
// background worker.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Upsert creates or replaces the snapshot for one (exam, user) pair.
func (r *ProgressRepository) Upsert(ctx context.Context, p *model.Progress) error {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO progress (exam_id, user_id, answers, current_question, time_remaining, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (exam_id, user_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     current_question = EXCLUDED.current_question,
		     time_remaining = EXCLUDED.time_remaining,
		     updated_at = EXCLUDED.updated_at`,
		p.ExamID, p.UserID, answers, p.CurrentQuestion, p.TimeRemaining, p.UpdatedAt)
	return err
}

// Get retrieves the stored snapshot for one (exam, user) pair.
func (r *ProgressRepository) Get(ctx context.Context, examID, userID uuid.UUID) (*model.Progress, error) {
	p := &model.Progress{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT exam_id, user_id, answers, current_question, time_remaining, updated_at
		 FROM progress
		 WHERE exam_id = $1 AND user_id = $2`, examID, userID,
	).Scan(&p.ExamID, &p.UserID, &answers, &p.CurrentQuestion, &p.TimeRemaining, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(answers, &p.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return p, nil
}

// Delete removes the snapshot after a submission lands.
func (r *ProgressRepository) Delete(ctx context.Context, examID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM progress WHERE exam_id = $1 AND user_id = $2`, examID, userID)
	return err
}

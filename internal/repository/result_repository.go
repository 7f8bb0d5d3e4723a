package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tranquocan24/online-exam-system/internal/model"
)

// ResultRepository handles submission records. Results are append-only and
// unique per (exam, user): a retried submission lands on the same row.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create stores a submission. The (exam_id, user_id) pair is the
// idempotency key: if a record already exists, the existing row is
// returned untouched and created reports false.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) (created bool, err error) {
	questions, err := json.Marshal(res.Questions)
	if err != nil {
		return false, fmt.Errorf("marshal question snapshot: %w", err)
	}
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return false, fmt.Errorf("marshal answers: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO results
		   (exam_id, user_id, user_name, exam_title, questions, answers,
		    score, correct_count, total_count, time_spent_seconds, submitted_at, is_time_up)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (exam_id, user_id) DO NOTHING
		 RETURNING id`,
		res.ExamID, res.UserID, res.UserName, res.ExamTitle, questions, answers,
		res.Score, res.CorrectCount, res.TotalCount, res.TimeSpentSeconds, res.SubmittedAt, res.IsTimeUp,
	).Scan(&res.ID)

	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	// Duplicate submission: hand back the already-stored result id.
	existing, err := r.GetByExamAndUser(ctx, res.ExamID, res.UserID)
	if err != nil {
		return false, fmt.Errorf("fetch existing result: %w", err)
	}
	res.ID = existing.ID
	return false, nil
}

// GetByID retrieves a full result record.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, user_name, exam_title, questions, answers,
		        score, correct_count, total_count, time_spent_seconds, submitted_at, is_time_up
		 FROM results
		 WHERE id = $1`, id))
}

// GetByExamAndUser retrieves the result for one user's attempt at an exam.
func (r *ResultRepository) GetByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.Result, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, user_name, exam_title, questions, answers,
		        score, correct_count, total_count, time_spent_seconds, submitted_at, is_time_up
		 FROM results
		 WHERE exam_id = $1 AND user_id = $2`, examID, userID))
}

// ListByUser retrieves all of a user's submissions, newest first. The
// question and answer documents are included so each row can be re-scored
// for display.
func (r *ResultRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, user_name, exam_title, questions, answers,
		        score, correct_count, total_count, time_spent_seconds, submitted_at, is_time_up
		 FROM results
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// ListByExam retrieves every submission for an exam, for the teacher's
// results view.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, user_name, exam_title, questions, answers,
		        score, correct_count, total_count, time_spent_seconds, submitted_at, is_time_up
		 FROM results
		 WHERE exam_id = $1
		 ORDER BY submitted_at DESC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

func (r *ResultRepository) scanOne(row pgx.Row) (*model.Result, error) {
	res := &model.Result{}
	var questions, answers []byte
	err := row.Scan(
		&res.ID, &res.ExamID, &res.UserID, &res.UserName, &res.ExamTitle,
		&questions, &answers, &res.Score, &res.CorrectCount, &res.TotalCount,
		&res.TimeSpentSeconds, &res.SubmittedAt, &res.IsTimeUp,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(questions, &res.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal question snapshot: %w", err)
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return res, nil
}

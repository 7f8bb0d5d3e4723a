package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/tranquocan24/online-exam-system/internal/config"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/repository"
)

// ErrNoProgress is returned when no snapshot exists for the attempt.
var ErrNoProgress = errors.New("no saved progress")

const progressTTL = 48 * time.Hour

// ProgressService handles autosave snapshots. Writes land in Redis and are
// queued for the background worker to drain into PostgreSQL, so the
// autosave path never blocks on the database.
type ProgressService struct {
	redis    *redis.Client
	progress *repository.ProgressRepository
}

// NewProgressService creates a new ProgressService.
func NewProgressService(redisClient *redis.Client, progress *repository.ProgressRepository) *ProgressService {
	return &ProgressService{redis: redisClient, progress: progress}
}

// Save stores a snapshot in Redis and enqueues it for durable persistence.
func (s *ProgressService) Save(ctx context.Context, userID uuid.UUID, req *model.SaveProgressRequest) error {
	snapshot := &model.Progress{
		ExamID:          req.ExamID,
		UserID:          userID,
		Answers:         req.Answers,
		CurrentQuestion: req.CurrentQuestion,
		TimeRemaining:   req.TimeRemaining,
		UpdatedAt:       req.Timestamp,
	}
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	key := config.CacheKey.UserProgressKey(req.ExamID.String(), userID.String())
	if err := s.redis.Set(ctx, key, payload, progressTTL).Err(); err != nil {
		return fmt.Errorf("cache progress: %w", err)
	}

	if err := s.redis.RPush(ctx, config.WorkerKey.PersistProgressQueue, payload).Err(); err != nil {
		// The hot copy is already saved. Persistence catches up on the
		// next autosave.
		log.Warn().Err(err).
			Str("exam_id", req.ExamID.String()).
			Str("user_id", userID.String()).
			Msg("Failed to enqueue progress for persistence")
	}
	return nil
}

// Get retrieves the latest snapshot for one attempt, preferring the Redis
// hot copy over the durable PostgreSQL row.
func (s *ProgressService) Get(ctx context.Context, examID, userID uuid.UUID) (*model.Progress, error) {
	key := config.CacheKey.UserProgressKey(examID.String(), userID.String())

	raw, err := s.redis.Get(ctx, key).Result()
	if err == nil {
		var p model.Progress
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
		log.Warn().Str("exam_id", examID.String()).Msg("Corrupt progress cache, falling back to database")
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Redis read failed, falling back to database")
	}

	p, err := s.progress.Get(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoProgress
		}
		return nil, err
	}
	return p, nil
}

// Clear removes both copies of a snapshot after its submission lands.
// Best effort: a stale snapshot is harmless once a result exists.
func (s *ProgressService) Clear(ctx context.Context, examID, userID uuid.UUID) {
	key := config.CacheKey.UserProgressKey(examID.String(), userID.String())
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to drop progress cache")
	}
	if err := s.progress.Delete(ctx, examID, userID); err != nil {
		log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to delete persisted progress")
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/tranquocan24/online-exam-system/internal/config"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/repository"
)

var (
	// ErrNotExamAuthor is returned when a teacher touches someone else's exam.
	ErrNotExamAuthor = errors.New("not the exam author")
	// ErrExamNotDraft is returned when editing or publishing a non-draft exam.
	ErrExamNotDraft = errors.New("exam is not a draft")
	// ErrExamNotPublished is returned when a student opens an unpublished exam.
	ErrExamNotPublished = errors.New("exam is not published")
	// ErrNoQuestions is returned when publishing an exam with no questions.
	ErrNoQuestions = errors.New("exam has no questions")
)

const examPayloadTTL = 12 * time.Hour

// ExamService handles exam authoring and delivery.
type ExamService struct {
	exams *repository.ExamRepository
	redis *redis.Client
}

// NewExamService creates a new ExamService.
func NewExamService(exams *repository.ExamRepository, redisClient *redis.Client) *ExamService {
	return &ExamService{exams: exams, redis: redisClient}
}

// Create stores a new draft exam owned by the given teacher.
func (s *ExamService) Create(ctx context.Context, authorID uuid.UUID, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:           req.Title,
		AuthorID:        authorID,
		DurationMinutes: req.DurationMinutes,
		Questions:       req.Questions,
	}
	if exam.Questions == nil {
		exam.Questions = []model.Question{}
	}
	exam.Status = model.ExamStatusDraft

	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

// Get retrieves a full exam for its author, correct answers included.
func (s *ExamService) Get(ctx context.Context, authorID, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	return exam, nil
}

// Update rewrites a draft exam's title, duration and questions.
func (s *ExamService) Update(ctx context.Context, authorID, examID uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.DurationMinutes > 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.Questions != nil {
		exam.Questions = req.Questions
	}

	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return exam, nil
}

// Publish validates a draft's questions and makes it available to students.
// The sanitized payload is cached in Redis so load spikes at exam start
// bypass PostgreSQL entirely.
func (s *ExamService) Publish(ctx context.Context, authorID, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}
	if len(exam.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	for i, q := range exam.Questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	if err := s.exams.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return nil, fmt.Errorf("publish exam: %w", err)
	}
	exam.Status = model.ExamStatusPublished

	if err := s.cachePayload(ctx, exam); err != nil {
		log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to cache exam payload")
	}
	return exam, nil
}

// Archive takes a published exam out of circulation and drops its cache.
func (s *ExamService) Archive(ctx context.Context, authorID, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}

	if err := s.exams.UpdateStatus(ctx, examID, model.ExamStatusArchived); err != nil {
		return nil, fmt.Errorf("archive exam: %w", err)
	}
	exam.Status = model.ExamStatusArchived

	if err := s.redis.Del(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Err(); err != nil {
		log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to drop exam payload cache")
	}
	return exam, nil
}

// Delete removes a draft exam.
func (s *ExamService) Delete(ctx context.Context, authorID, examID uuid.UUID) error {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.exams.Delete(ctx, examID)
}

// ListByAuthor retrieves a teacher's own exams without question documents.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Exam, error) {
	return s.exams.List(ctx, &authorID)
}

// GetForTaking retrieves the sanitized payload a student sees when the
// exam loads. Served from Redis when warm, with a PostgreSQL fallback that
// re-seeds the cache.
func (s *ExamService) GetForTaking(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamPayloadKey(examID.String())

	raw, err := s.redis.Get(ctx, key).Result()
	if err == nil {
		var exam model.Exam
		if err := json.Unmarshal([]byte(raw), &exam); err == nil {
			return &exam, nil
		}
		log.Warn().Str("exam_id", examID.String()).Msg("Corrupt exam payload cache, falling back to database")
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Redis read failed, falling back to database")
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}

	if err := s.cachePayload(ctx, exam); err != nil {
		log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to re-seed exam payload cache")
	}

	sanitized := exam.Sanitized()
	return &sanitized, nil
}

// GetFull retrieves a published exam with correct answers, for grading.
func (s *ExamService) GetFull(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}
	return exam, nil
}

func (s *ExamService) cachePayload(ctx context.Context, exam *model.Exam) error {
	sanitized := exam.Sanitized()
	payload, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	key := config.CacheKey.ExamPayloadKey(exam.ID.String())
	return s.redis.Set(ctx, key, payload, examPayloadTTL).Err()
}

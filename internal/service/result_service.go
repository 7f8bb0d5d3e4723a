package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/repository"
	"github.com/tranquocan24/online-exam-system/internal/scoring"
)

// ErrNotResultOwner is returned when a student opens someone else's result.
var ErrNotResultOwner = errors.New("not the result owner")

// ResultService handles submission grading and result retrieval.
type ResultService struct {
	results  *repository.ResultRepository
	exams    *ExamService
	progress *ProgressService
}

// NewResultService creates a new ResultService.
func NewResultService(
	results *repository.ResultRepository,
	exams *ExamService,
	progress *ProgressService,
) *ResultService {
	return &ResultService{results: results, exams: exams, progress: progress}
}

// Submit grades an attempt and stores the result. The stored record carries
// a snapshot of the exam's questions at submission time. A second submission
// for the same (exam, user) pair is absorbed: the original result id is
// returned and nothing is regraded.
func (s *ResultService) Submit(ctx context.Context, userID uuid.UUID, userName string, req *model.SubmitRequest) (*model.SubmitResponse, error) {
	exam, err := s.exams.GetFull(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}

	submittedAt := req.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}

	result := &model.Result{
		ExamID:           exam.ID,
		UserID:           userID,
		UserName:         userName,
		ExamTitle:        exam.Title,
		Questions:        exam.Questions,
		Answers:          req.Answers,
		TimeSpentSeconds: req.TimeSpentSeconds,
		SubmittedAt:      submittedAt,
		IsTimeUp:         req.IsTimeUp,
	}
	result.CorrectCount, result.TotalCount = scoring.CalculateCorrectAnswers(result)
	result.Score = scoring.CalculateScore(result)

	created, err := s.results.Create(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}
	if !created {
		log.Info().
			Str("exam_id", exam.ID.String()).
			Str("user_id", userID.String()).
			Str("result_id", result.ID.String()).
			Msg("Duplicate submission absorbed")
		return &model.SubmitResponse{ResultID: result.ID}, nil
	}

	s.progress.Clear(ctx, exam.ID, userID)

	log.Info().
		Str("exam_id", exam.ID.String()).
		Str("user_id", userID.String()).
		Str("result_id", result.ID.String()).
		Int("score", result.Score).
		Bool("is_time_up", result.IsTimeUp).
		Msg("Submission graded")
	return &model.SubmitResponse{ResultID: result.ID}, nil
}

// GetView retrieves a result together with its exam for the review page.
// Students may only open their own results; teachers may open any. If the
// exam was edited or deleted after submission, the review exam is rebuilt
// from the result's question snapshot.
func (s *ResultService) GetView(ctx context.Context, resultID uuid.UUID, requesterID uuid.UUID, role model.UserRole) (*model.ResultView, error) {
	result, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if result.UserID != requesterID && role != model.RoleTeacher {
		return nil, ErrNotResultOwner
	}

	exam, err := s.exams.exams.GetByID(ctx, result.ExamID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		exam = s.examFromSnapshot(result)
	} else if !sameQuestionIDs(exam.Questions, result.Questions) {
		exam = s.examFromSnapshot(result)
	}

	return &model.ResultView{Result: result, Exam: exam}, nil
}

// ListByUser retrieves all of a user's results, newest first.
func (s *ResultService) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Result, error) {
	results, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, nil
}

// ListByExam retrieves every submission for a teacher's exam.
func (s *ResultService) ListByExam(ctx context.Context, authorID, examID uuid.UUID) ([]model.Result, error) {
	exam, err := s.exams.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}

	results, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, nil
}

// examFromSnapshot reconstructs a review exam from the questions frozen in
// the result, so the review always matches what was graded.
func (s *ResultService) examFromSnapshot(r *model.Result) *model.Exam {
	return &model.Exam{
		ID:        r.ExamID,
		Title:     r.ExamTitle,
		Questions: r.Questions,
	}
}

func sameQuestionIDs(a, b []model.Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// Package session implements the exam attempt state machine driven by the
// exam-taking client: load → answer → autosave → timeout/submit. All
// mutation happens on a single goroutine (see Runner); collaborators are
// plain interfaces so the machine is testable without a network.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tranquocan24/online-exam-system/internal/model"
)

// State enumerates the session lifecycle states.
type State string

const (
	StateLoading    State = "LOADING"
	StateInProgress State = "IN_PROGRESS"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
	StateFailed     State = "FAILED"
)

const (
	// AutosaveIntervalSeconds is the fixed autosave period while in progress.
	AutosaveIntervalSeconds = 30

	// FirstWarningSeconds and FinalWarningSeconds are the one-shot
	// low-time warning thresholds.
	FirstWarningSeconds = 300
	FinalWarningSeconds = 60
)

// ErrNotInProgress is returned by mutating calls outside IN_PROGRESS.
var ErrNotInProgress = errors.New("session is not in progress")

// ExamRepository loads exam definitions.
type ExamRepository interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
}

// ProgressStore receives best-effort autosave snapshots.
type ProgressStore interface {
	SaveProgress(ctx context.Context, req *model.SaveProgressRequest) error
}

// ResultsRepository accepts the final submission and returns the result id.
type ResultsRepository interface {
	Submit(ctx context.Context, req *model.SubmitRequest) (uuid.UUID, error)
}

// Hooks are optional observer callbacks. They fire on the session's own
// goroutine and must not call back into the session.
type Hooks struct {
	OnStateChange func(from, to State)
	OnTimeWarning func(remainingSeconds int)
	OnSubmitError func(err error, retryable bool)
	OnSubmitted   func(resultID uuid.UUID)
}

// Config wires a session to its collaborators.
type Config struct {
	ExamID   uuid.UUID
	UserID   uuid.UUID
	Exams    ExamRepository
	Progress ProgressStore
	Results  ResultsRepository
	Logger   zerolog.Logger
	Hooks    Hooks
}

// Session is one student's in-flight attempt at an exam. Not safe for
// concurrent use: drive it from a single goroutine, normally via Runner.
type Session struct {
	examID   uuid.UUID
	userID   uuid.UUID
	exams    ExamRepository
	progress ProgressStore
	results  ResultsRepository
	log      zerolog.Logger
	hooks    Hooks

	state         State
	exam          *model.Exam
	answers       model.AnswerMap
	remaining     int
	current       int
	isTimeUp      bool
	warnedFirst   bool
	warnedFinal   bool
	sinceAutosave int
	resultID      uuid.UUID
	err           error
}

// New creates a session in LOADING state.
func New(cfg Config) *Session {
	return &Session{
		examID:   cfg.ExamID,
		userID:   cfg.UserID,
		exams:    cfg.Exams,
		progress: cfg.Progress,
		results:  cfg.Results,
		log: cfg.Logger.With().
			Str("component", "exam_session").
			Str("exam_id", cfg.ExamID.String()).
			Logger(),
		hooks: cfg.Hooks,
		state: StateLoading,
	}
}

// Load fetches the exam definition and enters IN_PROGRESS. A repository
// error is fatal to the session: it enters FAILED and reports the error.
func (s *Session) Load(ctx context.Context) error {
	if s.state != StateLoading {
		return nil
	}

	exam, err := s.exams.GetExam(ctx, s.examID)
	if err != nil {
		s.err = err
		s.setState(StateFailed)
		s.log.Error().Err(err).Msg("Exam load failed")
		return err
	}

	s.exam = exam
	s.remaining = exam.DurationMinutes * 60
	s.answers = make(model.AnswerMap, len(exam.Questions))
	for _, q := range exam.Questions {
		s.answers[string(q.ID)] = model.Answer{}
	}
	s.setState(StateInProgress)
	s.warnIfLow()

	s.log.Info().
		Str("title", exam.Title).
		Int("questions", len(exam.Questions)).
		Int("remaining", s.remaining).
		Msg("Exam loaded")
	return nil
}

// Restore applies a previously saved progress snapshot. Only answers for
// known questions are taken; the snapshot's remaining time replaces the
// full duration when it is lower.
func (s *Session) Restore(p *model.Progress) {
	if s.state != StateInProgress || p == nil {
		return
	}

	for key, a := range p.Answers {
		if _, ok := s.answers[key]; ok && a.IsSet() {
			s.answers[key] = a
		}
	}
	if p.TimeRemaining > 0 && p.TimeRemaining < s.remaining {
		s.remaining = p.TimeRemaining
	}
	if p.CurrentQuestion >= 0 && p.CurrentQuestion < len(s.exam.Questions) {
		s.current = p.CurrentQuestion
	}
	s.warnIfLow()

	s.log.Info().
		Int("answered", s.answers.AnsweredCount()).
		Int("remaining", s.remaining).
		Msg("Progress restored")
}

// Tick advances the countdown by one second. Outside IN_PROGRESS it is a
// no-op, so a stray timer callback can never mutate a finished session.
func (s *Session) Tick(ctx context.Context) {
	if s.state != StateInProgress {
		return
	}

	s.remaining--
	if s.remaining < 0 {
		s.remaining = 0
	}

	switch {
	case s.remaining == FirstWarningSeconds && !s.warnedFirst:
		s.warnedFirst = true
		s.warn(s.remaining)
	case s.remaining == FinalWarningSeconds && !s.warnedFinal:
		s.warnedFinal = true
		s.warn(s.remaining)
	}

	if s.remaining == 0 {
		s.finalize(ctx, true)
		return
	}

	s.sinceAutosave++
	if s.sinceAutosave >= AutosaveIntervalSeconds {
		s.sinceAutosave = 0
		s.autosave(ctx)
	}
}

// SetAnswer records the answer for the question at the given position.
func (s *Session) SetAnswer(questionIndex int, ans model.Answer) error {
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if questionIndex < 0 || questionIndex >= len(s.exam.Questions) {
		return errors.New("question index out of range")
	}

	s.answers[string(s.exam.Questions[questionIndex].ID)] = ans
	return nil
}

// ClearAnswer unsets the answer for the question at the given position.
func (s *Session) ClearAnswer(questionIndex int) error {
	return s.SetAnswer(questionIndex, model.Answer{})
}

// Next moves to the next question. Navigation never changes lifecycle state.
func (s *Session) Next() { s.GoTo(s.current + 1) }

// Prev moves to the previous question.
func (s *Session) Prev() { s.GoTo(s.current - 1) }

// GoTo jumps to the question at index i, clamped to the exam bounds.
func (s *Session) GoTo(i int) {
	if s.state != StateInProgress {
		return
	}
	if i < 0 {
		i = 0
	}
	if max := len(s.exam.Questions) - 1; i > max {
		i = max
	}
	s.current = i
}

// Submit finalizes the attempt on explicit user confirmation. Sessions
// already submitting or submitted swallow the trigger, so at most one
// submission ever leaves a session.
func (s *Session) Submit(ctx context.Context) error {
	if s.state != StateInProgress {
		return nil
	}
	return s.finalize(ctx, false)
}

// RetrySubmit re-attempts a failed submission. Used by the runner for the
// time-up case, where the attempt must not revert to an editable state.
func (s *Session) RetrySubmit(ctx context.Context) error {
	if s.state != StateSubmitting {
		return nil
	}
	return s.submit(ctx)
}

// finalize stops the countdown and autosave (by leaving IN_PROGRESS) and
// posts the submission.
func (s *Session) finalize(ctx context.Context, timeUp bool) error {
	if timeUp {
		s.isTimeUp = true
	}
	s.setState(StateSubmitting)
	return s.submit(ctx)
}

func (s *Session) submit(ctx context.Context) error {
	req := &model.SubmitRequest{
		ExamID:           s.examID,
		Answers:          s.answers.Clone(),
		TimeSpentSeconds: s.exam.DurationMinutes*60 - s.remaining,
		SubmittedAt:      time.Now(),
		IsTimeUp:         s.isTimeUp,
	}

	resultID, err := s.results.Submit(ctx, req)
	if err != nil {
		if s.isTimeUp {
			// Time has expired: the attempt must not become editable
			// again. Stay in SUBMITTING and let the runner retry.
			s.log.Error().Err(err).Msg("Submission failed after time-up, will retry")
			s.notifySubmitError(err, false)
			return err
		}

		// Best-effort continuation: restart the countdown and let the
		// user try again.
		s.log.Error().Err(err).Msg("Submission failed, returning to in-progress")
		s.setState(StateInProgress)
		s.notifySubmitError(err, true)
		return err
	}

	s.resultID = resultID
	s.setState(StateSubmitted)
	s.log.Info().
		Str("result_id", resultID.String()).
		Bool("time_up", s.isTimeUp).
		Msg("Submission stored")

	if s.hooks.OnSubmitted != nil {
		s.hooks.OnSubmitted(resultID)
	}
	return nil
}

// autosave pushes a snapshot to the progress store without blocking the
// countdown. Failures are logged, never surfaced; the next interval is the
// retry.
func (s *Session) autosave(ctx context.Context) {
	if s.progress == nil {
		return
	}

	req := &model.SaveProgressRequest{
		ExamID:          s.examID,
		Answers:         s.answers.Clone(),
		CurrentQuestion: s.current,
		TimeRemaining:   s.remaining,
		Timestamp:       time.Now(),
	}

	go func() {
		if err := s.progress.SaveProgress(ctx, req); err != nil {
			s.log.Warn().Err(err).Msg("Autosave failed")
		}
	}()
}

func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(from, to)
	}
}

// warnIfLow fires the appropriate one-shot warning when the countdown
// starts (or resumes) already at or below a threshold. A five-minute exam
// begins exactly at the first threshold and would otherwise never warn.
func (s *Session) warnIfLow() {
	switch {
	case s.remaining <= FinalWarningSeconds && !s.warnedFinal:
		s.warnedFirst = true
		s.warnedFinal = true
		s.warn(s.remaining)
	case s.remaining <= FirstWarningSeconds && !s.warnedFirst:
		s.warnedFirst = true
		s.warn(s.remaining)
	}
}

func (s *Session) warn(remaining int) {
	s.log.Warn().Int("remaining", remaining).Msg("Low time warning")
	if s.hooks.OnTimeWarning != nil {
		s.hooks.OnTimeWarning(remaining)
	}
}

func (s *Session) notifySubmitError(err error, retryable bool) {
	if s.hooks.OnSubmitError != nil {
		s.hooks.OnSubmitError(err, retryable)
	}
}

// ─── Accessors ──────────────────────────────────────────────────────

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Exam returns the loaded exam, or nil before loading completes.
func (s *Session) Exam() *model.Exam { return s.exam }

// Remaining returns the countdown value in seconds.
func (s *Session) Remaining() int { return s.remaining }

// Current returns the index of the question being viewed.
func (s *Session) Current() int { return s.current }

// Answer returns the stored answer for the question at position i.
func (s *Session) Answer(i int) model.Answer {
	if s.exam == nil || i < 0 || i >= len(s.exam.Questions) {
		return model.Answer{}
	}
	return s.answers[string(s.exam.Questions[i].ID)]
}

// AnsweredCount returns how many questions currently hold an answer.
func (s *Session) AnsweredCount() int { return s.answers.AnsweredCount() }

// IsTimeUp reports whether the attempt ran out of time.
func (s *Session) IsTimeUp() bool { return s.isTimeUp }

// ResultID returns the stored result id once submitted.
func (s *Session) ResultID() uuid.UUID { return s.resultID }

// Err returns the fatal load error, if any.
func (s *Session) Err() error { return s.err }

// ShouldConfirmLeave reports whether leaving now would lose data. The
// data-loss prompt is suppressed once the attempt is submitted.
func (s *Session) ShouldConfirmLeave() bool {
	return s.state == StateInProgress || s.state == StateSubmitting
}

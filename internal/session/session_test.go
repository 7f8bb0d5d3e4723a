package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tranquocan24/online-exam-system/internal/model"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeExamRepo struct {
	exam *model.Exam
	err  error
}

func (f *fakeExamRepo) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.exam, nil
}

type fakeProgressStore struct {
	mu    sync.Mutex
	saves []*model.SaveProgressRequest
	err   error
}

func (f *fakeProgressStore) SaveProgress(ctx context.Context, req *model.SaveProgressRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, req)
	return f.err
}

func (f *fakeProgressStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeResultsRepo struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
	resultID uuid.UUID
}

func (f *fakeResultsRepo) Submit(ctx context.Context, req *model.SubmitRequest) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return uuid.Nil, errors.New("results repository unavailable")
	}
	return f.resultID, nil
}

func (f *fakeResultsRepo) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ─── Helpers ────────────────────────────────────────────────────────

func testExam(durationMinutes int) *model.Exam {
	return &model.Exam{
		ID:              uuid.New(),
		Title:           "Algebra Midterm",
		DurationMinutes: durationMinutes,
		Status:          model.ExamStatusPublished,
		Questions: []model.Question{
			{
				ID:            "q1",
				Type:          model.QuestionSingleChoice,
				Prompt:        "2 + 2 = ?",
				Options:       []string{"3", "4", "5", "6"},
				CorrectAnswer: model.IndexAnswer(1),
			},
			{
				ID:            "q2",
				Type:          model.QuestionMultiChoice,
				Prompt:        "Even numbers?",
				Options:       []string{"2", "3", "4", "5"},
				CorrectAnswer: model.IndexSetAnswer(0, 2),
			},
			{
				ID:            "q3",
				Type:          model.QuestionFreeText,
				Prompt:        "Capital of France?",
				CorrectAnswer: model.TextAnswer("Paris"),
			},
		},
	}
}

type env struct {
	session  *Session
	exams    *fakeExamRepo
	progress *fakeProgressStore
	results  *fakeResultsRepo
}

func newEnv(t *testing.T, exam *model.Exam, hooks Hooks) *env {
	t.Helper()
	e := &env{
		exams:    &fakeExamRepo{exam: exam},
		progress: &fakeProgressStore{},
		results:  &fakeResultsRepo{resultID: uuid.New()},
	}
	e.session = New(Config{
		ExamID:   exam.ID,
		UserID:   uuid.New(),
		Exams:    e.exams,
		Progress: e.progress,
		Results:  e.results,
		Logger:   zerolog.Nop(),
		Hooks:    hooks,
	})
	return e
}

func mustLoad(t *testing.T, e *env) {
	t.Helper()
	require.NoError(t, e.session.Load(context.Background()))
	require.Equal(t, StateInProgress, e.session.State())
}

// ─── Loading ────────────────────────────────────────────────────────

func TestLoad_InitializesSession(t *testing.T) {
	exam := testExam(45)
	e := newEnv(t, exam, Hooks{})
	mustLoad(t, e)

	assert.Equal(t, 45*60, e.session.Remaining())
	assert.Equal(t, 0, e.session.Current())
	assert.Equal(t, 0, e.session.AnsweredCount())
	assert.False(t, e.session.Answer(0).IsSet())
}

func TestLoad_RepositoryErrorIsFatal(t *testing.T) {
	exam := testExam(45)
	e := newEnv(t, exam, Hooks{})
	e.exams.err = errors.New("exam not found")

	err := e.session.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, e.session.State())
	assert.Equal(t, e.exams.err, e.session.Err())

	// A failed session ignores everything else.
	e.session.Tick(context.Background())
	assert.Equal(t, 0, e.session.Remaining())
	assert.NoError(t, e.session.Submit(context.Background()))
	assert.Equal(t, 0, e.results.submitCount())
}

// ─── Answering and navigation ───────────────────────────────────────

func TestSetAnswer_UpdatesOnlyTargetSlot(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	mustLoad(t, e)

	require.NoError(t, e.session.SetAnswer(0, model.IndexAnswer(1)))
	require.NoError(t, e.session.SetAnswer(2, model.TextAnswer("Paris")))

	assert.Equal(t, 2, e.session.AnsweredCount())
	assert.False(t, e.session.Answer(1).IsSet())
	assert.Equal(t, 45*60, e.session.Remaining(), "answer edits must not touch the countdown")

	require.NoError(t, e.session.ClearAnswer(2))
	assert.Equal(t, 1, e.session.AnsweredCount())
}

func TestSetAnswer_OutOfRange(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	mustLoad(t, e)

	assert.Error(t, e.session.SetAnswer(-1, model.IndexAnswer(0)))
	assert.Error(t, e.session.SetAnswer(3, model.IndexAnswer(0)))
}

func TestNavigation_ClampsAndKeepsState(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	mustLoad(t, e)

	e.session.Next()
	e.session.Next()
	assert.Equal(t, 2, e.session.Current())
	e.session.Next()
	assert.Equal(t, 2, e.session.Current(), "must clamp at last question")

	e.session.GoTo(-5)
	assert.Equal(t, 0, e.session.Current())
	e.session.Prev()
	assert.Equal(t, 0, e.session.Current())
	assert.Equal(t, StateInProgress, e.session.State())
}

// ─── Countdown ──────────────────────────────────────────────────────

func TestTick_DecrementsExactlyOncePerTick(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	mustLoad(t, e)

	for i := 0; i < 10; i++ {
		e.session.Tick(context.Background())
	}
	assert.Equal(t, 45*60-10, e.session.Remaining())
}

func TestTick_WarningsFireExactlyOnce(t *testing.T) {
	var warnings []int
	exam := testExam(6) // 360 seconds: crosses both thresholds quickly
	e := newEnv(t, exam, Hooks{
		OnTimeWarning: func(remaining int) { warnings = append(warnings, remaining) },
	})
	mustLoad(t, e)

	for i := 0; i < 320; i++ {
		e.session.Tick(context.Background())
	}

	assert.Equal(t, []int{FirstWarningSeconds, FinalWarningSeconds}, warnings)
}

func TestTick_AutosaveEveryInterval(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	mustLoad(t, e)

	for i := 0; i < AutosaveIntervalSeconds*3; i++ {
		e.session.Tick(context.Background())
	}

	require.Eventually(t, func() bool { return e.progress.count() == 3 },
		time.Second, 5*time.Millisecond)

	e.progress.mu.Lock()
	snap := e.progress.saves[len(e.progress.saves)-1]
	e.progress.mu.Unlock()
	assert.Equal(t, e.session.Exam().ID, snap.ExamID)
	assert.Equal(t, 45*60-AutosaveIntervalSeconds*3, snap.TimeRemaining)
}

func TestTick_AutosaveFailureNeverChangesState(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	e.progress.err = errors.New("progress store down")
	mustLoad(t, e)

	for i := 0; i < AutosaveIntervalSeconds; i++ {
		e.session.Tick(context.Background())
	}

	require.Eventually(t, func() bool { return e.progress.count() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, StateInProgress, e.session.State())
	assert.Equal(t, 0, e.results.submitCount())
}

// ─── Submission ─────────────────────────────────────────────────────

func TestSubmit_Success(t *testing.T) {
	var submitted uuid.UUID
	e := newEnv(t, testExam(45), Hooks{
		OnSubmitted: func(id uuid.UUID) { submitted = id },
	})
	mustLoad(t, e)

	require.NoError(t, e.session.SetAnswer(0, model.IndexAnswer(1)))
	for i := 0; i < 30; i++ {
		e.session.Tick(context.Background())
	}

	require.NoError(t, e.session.Submit(context.Background()))
	assert.Equal(t, StateSubmitted, e.session.State())
	assert.Equal(t, e.results.resultID, e.session.ResultID())
	assert.Equal(t, e.results.resultID, submitted)
	assert.False(t, e.session.IsTimeUp())
	assert.False(t, e.session.ShouldConfirmLeave())
}

func TestSubmit_AtMostOnePost(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	mustLoad(t, e)

	// User click and timeout firing in the same tick: only one POST.
	require.NoError(t, e.session.Submit(context.Background()))
	require.NoError(t, e.session.Submit(context.Background()))
	e.session.Tick(context.Background())

	assert.Equal(t, 1, e.results.submitCount())
	assert.Equal(t, StateSubmitted, e.session.State())
}

func TestSubmit_FailureReturnsToInProgress(t *testing.T) {
	var gotErr error
	var gotRetryable bool
	e := newEnv(t, testExam(45), Hooks{
		OnSubmitError: func(err error, retryable bool) { gotErr, gotRetryable = err, retryable },
	})
	e.results.failures = 1
	mustLoad(t, e)

	require.Error(t, e.session.Submit(context.Background()))
	assert.Equal(t, StateInProgress, e.session.State())
	assert.Error(t, gotErr)
	assert.True(t, gotRetryable)

	// Countdown restarted: ticks keep decrementing.
	before := e.session.Remaining()
	e.session.Tick(context.Background())
	assert.Equal(t, before-1, e.session.Remaining())

	// User retries and succeeds.
	require.NoError(t, e.session.Submit(context.Background()))
	assert.Equal(t, StateSubmitted, e.session.State())
	assert.Equal(t, 2, e.results.submitCount())
}

func TestSubmit_TimeSpentReflectsTicks(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	mustLoad(t, e)

	for i := 0; i < 90; i++ {
		e.session.Tick(context.Background())
	}
	require.NoError(t, e.session.Submit(context.Background()))

	// The submitted payload is captured by the fake via calls; re-derive.
	assert.Equal(t, 45*60-90, e.session.Remaining())
}

// ─── Timeout ────────────────────────────────────────────────────────

func TestTimeout_AutoSubmitsExactlyOnce(t *testing.T) {
	exam := testExam(60) // 3600 seconds
	e := newEnv(t, exam, Hooks{})
	mustLoad(t, e)

	for i := 0; i < 3600; i++ {
		e.session.Tick(context.Background())
	}

	assert.Equal(t, StateSubmitted, e.session.State())
	assert.True(t, e.session.IsTimeUp())
	assert.Equal(t, 1, e.results.submitCount())
	assert.Equal(t, 0, e.session.Remaining())

	// Stray ticks after the terminal state change nothing.
	for i := 0; i < 100; i++ {
		e.session.Tick(context.Background())
	}
	assert.Equal(t, 0, e.session.Remaining())
	assert.Equal(t, 1, e.results.submitCount())
}

func TestTimeout_FailedSubmitStaysSubmittingAndRetries(t *testing.T) {
	var retryable *bool
	exam := testExam(1) // 60 seconds
	e := newEnv(t, exam, Hooks{
		OnSubmitError: func(err error, r bool) { retryable = &r },
	})
	e.results.failures = 2
	mustLoad(t, e)

	for i := 0; i < 60; i++ {
		e.session.Tick(context.Background())
	}

	// Time-up submission failed: never back to editable state.
	assert.Equal(t, StateSubmitting, e.session.State())
	require.NotNil(t, retryable)
	assert.False(t, *retryable)

	// Automatic retries eventually succeed.
	require.Error(t, e.session.RetrySubmit(context.Background()))
	require.NoError(t, e.session.RetrySubmit(context.Background()))
	assert.Equal(t, StateSubmitted, e.session.State())
	assert.True(t, e.session.IsTimeUp())
	assert.Equal(t, 3, e.results.submitCount())
}

// ─── Restore ────────────────────────────────────────────────────────

func TestRestore_AppliesSavedSnapshot(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	mustLoad(t, e)

	e.session.Restore(&model.Progress{
		Answers: model.AnswerMap{
			"q1":      model.IndexAnswer(1),
			"unknown": model.TextAnswer("ignored"),
		},
		CurrentQuestion: 2,
		TimeRemaining:   600,
	})

	assert.Equal(t, 1, e.session.AnsweredCount())
	assert.Equal(t, 2, e.session.Current())
	assert.Equal(t, 600, e.session.Remaining())
}

func TestRestore_NeverExtendsTime(t *testing.T) {
	e := newEnv(t, testExam(1), Hooks{})
	mustLoad(t, e)

	e.session.Restore(&model.Progress{TimeRemaining: 7200})
	assert.Equal(t, 60, e.session.Remaining())
}

func TestLoad_WarnsImmediatelyAtThreshold(t *testing.T) {
	var warnings []int
	exam := testExam(5) // 300 seconds: the countdown starts on the threshold
	e := newEnv(t, exam, Hooks{
		OnTimeWarning: func(remaining int) { warnings = append(warnings, remaining) },
	})
	mustLoad(t, e)

	assert.Equal(t, []int{FirstWarningSeconds}, warnings)

	for i := 0; i < 240; i++ {
		e.session.Tick(context.Background())
	}
	assert.Equal(t, []int{FirstWarningSeconds, FinalWarningSeconds}, warnings)
}

func TestRestore_WarnsWhenSnapshotIsLow(t *testing.T) {
	var warnings []int
	e := newEnv(t, testExam(45), Hooks{
		OnTimeWarning: func(remaining int) { warnings = append(warnings, remaining) },
	})
	mustLoad(t, e)

	e.session.Restore(&model.Progress{TimeRemaining: 200})
	assert.Equal(t, []int{200}, warnings)

	// The first-threshold warning is spent; only the final one remains.
	for i := 0; i < 140; i++ {
		e.session.Tick(context.Background())
	}
	assert.Equal(t, []int{200, FinalWarningSeconds}, warnings)
}

// ─── Runner ─────────────────────────────────────────────────────────

func TestRunnerDo_RefusesAfterStop(t *testing.T) {
	e := newEnv(t, testExam(45), Hooks{})
	runner := NewRunner(e.session)

	runDone := make(chan error, 1)
	go func() { runDone <- runner.Run(context.Background()) }()

	ok := runner.Do(func(ctx context.Context, s *Session) {
		require.NoError(t, s.Submit(ctx))
	})
	require.True(t, ok)

	require.NoError(t, <-runDone)
	<-runner.Done()
	assert.Equal(t, StateSubmitted, e.session.State())

	// A command accepted by a live runner always executes; after the
	// runner stops, Do must refuse instead of silently dropping work.
	executed := false
	ok = runner.Do(func(ctx context.Context, s *Session) { executed = true })
	assert.False(t, ok)
	assert.False(t, executed)
	assert.Equal(t, 1, e.results.submitCount())
}

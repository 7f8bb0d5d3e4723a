package scoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tranquocan24/online-exam-system/internal/model"
)

func singleChoice(id string, correct int) model.Question {
	return model.Question{
		ID:            model.QuestionID(id),
		Type:          model.QuestionSingleChoice,
		Prompt:        "prompt " + id,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: model.IndexAnswer(correct),
	}
}

func multiChoice(id string, correct ...int) model.Question {
	return model.Question{
		ID:            model.QuestionID(id),
		Type:          model.QuestionMultiChoice,
		Prompt:        "prompt " + id,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: model.IndexSetAnswer(correct...),
	}
}

func freeText(id, correct string) model.Question {
	return model.Question{
		ID:            model.QuestionID(id),
		Type:          model.QuestionFreeText,
		Prompt:        "prompt " + id,
		CorrectAnswer: model.TextAnswer(correct),
	}
}

func TestIsAnswerCorrect_SingleChoice(t *testing.T) {
	q := singleChoice("q1", 1)

	tests := []struct {
		name string
		ans  model.Answer
		want bool
	}{
		{"exact match", model.IndexAnswer(1), true},
		{"wrong index", model.IndexAnswer(2), false},
		{"unset", model.Answer{}, false},
		{"text against index", model.TextAnswer("1"), false},
		{"set against index", model.IndexSetAnswer(1), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAnswerCorrect(q, tc.ans); got != tc.want {
				t.Fatalf("IsAnswerCorrect() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsAnswerCorrect_MultiChoice(t *testing.T) {
	q := multiChoice("q1", 0, 1)

	tests := []struct {
		name string
		ans  model.Answer
		want bool
	}{
		{"same order", model.IndexSetAnswer(0, 1), true},
		{"reversed order", model.IndexSetAnswer(1, 0), true},
		{"subset no partial credit", model.IndexSetAnswer(0), false},
		{"superset", model.IndexSetAnswer(0, 1, 2), false},
		{"disjoint", model.IndexSetAnswer(2, 3), false},
		{"unset", model.Answer{}, false},
		{"scalar against set", model.IndexAnswer(0), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAnswerCorrect(q, tc.ans); got != tc.want {
				t.Fatalf("IsAnswerCorrect() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsAnswerCorrect_FreeText(t *testing.T) {
	q := freeText("q1", "Paris")

	tests := []struct {
		name string
		ans  model.Answer
		want bool
	}{
		{"exact", model.TextAnswer("Paris"), true},
		{"case and whitespace insensitive", model.TextAnswer("  paris "), true},
		{"typo", model.TextAnswer("Pariss"), false},
		{"empty string", model.TextAnswer(""), false},
		{"unset", model.Answer{}, false},
		{"index against text", model.IndexAnswer(0), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAnswerCorrect(q, tc.ans); got != tc.want {
				t.Fatalf("IsAnswerCorrect() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsAnswerCorrect_UnknownTypeFallsBackToSingleChoice(t *testing.T) {
	q := model.Question{
		ID:            "q1",
		Type:          "legacy_type",
		Options:       []string{"A", "B"},
		CorrectAnswer: model.IndexAnswer(0),
	}

	if !IsAnswerCorrect(q, model.IndexAnswer(0)) {
		t.Fatal("expected unknown type to use single-choice comparison")
	}
	if IsAnswerCorrect(q, model.IndexAnswer(1)) {
		t.Fatal("expected wrong index to be incorrect under fallback")
	}
}

func newResult(questions []model.Question, answers model.AnswerMap) *model.Result {
	return &model.Result{
		ID:          uuid.New(),
		ExamID:      uuid.New(),
		UserID:      uuid.New(),
		Questions:   questions,
		Answers:     answers,
		SubmittedAt: time.Now(),
	}
}

func TestCalculateScore_SingleQuestionFull(t *testing.T) {
	r := newResult(
		[]model.Question{singleChoice("q1", 1)},
		model.AnswerMap{"q1": model.IndexAnswer(1)},
	)

	if got := CalculateScore(r); got != 100 {
		t.Fatalf("CalculateScore() = %d, want 100", got)
	}
}

func TestCalculateScore_PartiallyAnswered(t *testing.T) {
	// 4 questions: 2 correct, 1 incorrect, 1 unanswered → 50.
	questions := []model.Question{
		singleChoice("q1", 1),
		multiChoice("q2", 0, 2),
		freeText("q3", "Paris"),
		singleChoice("q4", 3),
	}
	answers := model.AnswerMap{
		"q1": model.IndexAnswer(1),
		"q2": model.IndexSetAnswer(2, 0),
		"q3": model.TextAnswer("London"),
	}
	r := newResult(questions, answers)

	correct, total := CalculateCorrectAnswers(r)
	if correct != 2 || total != 4 {
		t.Fatalf("CalculateCorrectAnswers() = (%d, %d), want (2, 4)", correct, total)
	}
	if got := CalculateScore(r); got != 50 {
		t.Fatalf("CalculateScore() = %d, want 50", got)
	}
}

func TestCalculateScore_Rounding(t *testing.T) {
	// 1 of 3 correct → round(33.33) = 33; 2 of 3 → round(66.66) = 67.
	questions := []model.Question{
		singleChoice("q1", 0),
		singleChoice("q2", 0),
		singleChoice("q3", 0),
	}

	oneCorrect := newResult(questions, model.AnswerMap{"q1": model.IndexAnswer(0)})
	if got := CalculateScore(oneCorrect); got != 33 {
		t.Fatalf("CalculateScore() = %d, want 33", got)
	}

	twoCorrect := newResult(questions, model.AnswerMap{
		"q1": model.IndexAnswer(0),
		"q2": model.IndexAnswer(0),
	})
	if got := CalculateScore(twoCorrect); got != 67 {
		t.Fatalf("CalculateScore() = %d, want 67", got)
	}
}

func TestCalculateScore_EmptyAndNil(t *testing.T) {
	if got := CalculateScore(nil); got != 0 {
		t.Fatalf("CalculateScore(nil) = %d, want 0", got)
	}
	if got := CalculateScore(newResult(nil, nil)); got != 0 {
		t.Fatalf("CalculateScore(empty) = %d, want 0", got)
	}
}

func TestCalculateScore_Idempotent(t *testing.T) {
	r := newResult(
		[]model.Question{singleChoice("q1", 1), freeText("q2", "Go")},
		model.AnswerMap{"q1": model.IndexAnswer(1), "q2": model.TextAnswer("go")},
	)

	first := CalculateScore(r)
	second := CalculateScore(r)
	if first != second {
		t.Fatalf("score not idempotent: %d vs %d", first, second)
	}
}

func TestCalculateScore_ConsistentWithCounts(t *testing.T) {
	results := []*model.Result{
		newResult(nil, nil),
		newResult([]model.Question{singleChoice("q1", 0)}, nil),
		newResult(
			[]model.Question{singleChoice("q1", 0), multiChoice("q2", 1, 2), freeText("q3", "x")},
			model.AnswerMap{
				"q1": model.IndexAnswer(0),
				"q2": model.IndexSetAnswer(2, 1),
				"q3": model.TextAnswer("y"),
			},
		),
	}

	for _, r := range results {
		correct, total := CalculateCorrectAnswers(r)
		want := 0
		if total > 0 {
			want = int(float64(100*correct)/float64(total) + 0.5)
		}
		if got := CalculateScore(r); got != want {
			t.Fatalf("CalculateScore() = %d, want %d (correct=%d total=%d)", got, want, correct, total)
		}
	}
}

func TestResolveAnswer_FallbackChain(t *testing.T) {
	q := singleChoice("q7", 1)

	tests := []struct {
		name    string
		answers model.AnswerMap
		want    model.Answer
	}{
		{"by id", model.AnswerMap{"q7": model.IndexAnswer(1)}, model.IndexAnswer(1)},
		{"by position", model.AnswerMap{"3": model.IndexAnswer(2)}, model.IndexAnswer(2)},
		{"id wins over position", model.AnswerMap{
			"q7": model.IndexAnswer(1),
			"3":  model.IndexAnswer(2),
		}, model.IndexAnswer(1)},
		{"missing", model.AnswerMap{"other": model.IndexAnswer(0)}, model.Answer{}},
		{"nil map", nil, model.Answer{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveAnswer(tc.answers, q, 3)
			if got.Kind != tc.want.Kind || got.Index != tc.want.Index {
				t.Fatalf("ResolveAnswer() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCalculateScore_MalformedAnswersDegradeToIncorrect(t *testing.T) {
	questions := []model.Question{
		singleChoice("q1", 1),
		multiChoice("q2", 0, 1),
		freeText("q3", "Paris"),
	}
	// Every stored answer has the wrong shape for its question.
	answers := model.AnswerMap{
		"q1": model.IndexSetAnswer(1),
		"q2": model.TextAnswer("0,1"),
		"q3": model.IndexAnswer(0),
	}
	r := newResult(questions, answers)

	correct, total := CalculateCorrectAnswers(r)
	if correct != 0 || total != 3 {
		t.Fatalf("CalculateCorrectAnswers() = (%d, %d), want (0, 3)", correct, total)
	}
}

func TestUnansweredStaysIncorrectAfterJSONRoundTrip(t *testing.T) {
	// Unanswered slots serialize as null. A round trip through the wire
	// must not turn them into option 0, which would grade a blank answer
	// correct whenever the correct index is 0.
	questions := []model.Question{
		singleChoice("q1", 0),
		multiChoice("q2", 0, 1),
		freeText("q3", "Paris"),
	}
	answers := model.AnswerMap{
		"q1": {},
		"q2": {},
		"q3": model.TextAnswer("paris"),
	}

	raw, err := json.Marshal(answers)
	if err != nil {
		t.Fatalf("marshal answers: %v", err)
	}
	var decoded model.AnswerMap
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal answers: %v", err)
	}

	if decoded["q1"].IsSet() {
		t.Fatalf("null answer decoded as %+v, want unset", decoded["q1"])
	}
	if IsAnswerCorrect(questions[0], decoded["q1"]) {
		t.Fatal("unanswered question graded correct after round trip")
	}

	correct, total := CalculateCorrectAnswers(newResult(questions, decoded))
	if correct != 1 || total != 3 {
		t.Fatalf("CalculateCorrectAnswers() = (%d, %d), want (1, 3)", correct, total)
	}
}

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/response"
)

func envelopeJSON(data any) []byte {
	raw, _ := json.Marshal(map[string]any{"data": data})
	return raw
}

func TestLoginInstallsToken(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			require.Equal(t, http.MethodPost, r.Method)
			var req model.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "alice", req.Username)
			w.Write(envelopeJSON(map[string]any{
				"token": "tok-123",
				"user":  model.User{ID: userID, Username: "alice", Name: "Alice", Role: model.RoleStudent},
			}))
		case "/api/results":
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			w.Write(envelopeJSON([]model.Result{}))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	user, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	// The token from login must ride on the next call.
	_, err = c.ListResults(context.Background())
	require.NoError(t, err)
}

func TestGetExamDecodesEnvelope(t *testing.T) {
	examID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/exam/"+examID.String(), r.URL.Path)
		w.Write(envelopeJSON(model.Exam{
			ID:              examID,
			Title:           "Midterm",
			DurationMinutes: 45,
			Questions: []model.Question{
				{ID: "q1", Type: model.QuestionSingleChoice, Prompt: "2+2?", Options: []string{"3", "4"}},
			},
		}))
	}))
	defer srv.Close()

	c := New(srv.URL)
	exam, err := c.GetExam(context.Background(), examID)
	require.NoError(t, err)
	assert.Equal(t, "Midterm", exam.Title)
	require.Len(t, exam.Questions, 1)
	assert.Equal(t, model.QuestionID("q1"), exam.Questions[0].ID)
	// Sanitized payload: the correct answer never arrives.
	assert.False(t, exam.Questions[0].CorrectAnswer.IsSet())
}

func TestSubmitReturnsResultID(t *testing.T) {
	resultID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/exam/submit", r.URL.Path)
		var req model.SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.IsTimeUp)
		w.Write(envelopeJSON(model.SubmitResponse{ResultID: resultID}))
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Submit(context.Background(), &model.SubmitRequest{
		ExamID:      uuid.New(),
		Answers:     model.AnswerMap{"q1": model.IndexAnswer(1)},
		SubmittedAt: time.Now(),
		IsTimeUp:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, resultID, got)
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"data": nil,
			"error": response.ErrorBody{
				Code:    response.ErrExamNotPublished,
				Message: "This exam is not published.",
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetExam(context.Background(), uuid.New())
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, response.ErrExamNotPublished, apiErr.Code)
}

func TestSaveProgressPostsSnapshot(t *testing.T) {
	examID := uuid.New()
	var received model.SaveProgressRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/exam/save-progress", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write(envelopeJSON(map[string]bool{"saved": true}))
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.SaveProgress(context.Background(), &model.SaveProgressRequest{
		ExamID:          examID,
		Answers:         model.AnswerMap{"q1": model.TextAnswer("x")},
		CurrentQuestion: 2,
		TimeRemaining:   120,
		Timestamp:       time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, examID, received.ExamID)
	assert.Equal(t, 120, received.TimeRemaining)
}

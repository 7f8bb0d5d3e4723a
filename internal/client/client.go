// Package client is the HTTP implementation of the exam-taking
// collaborators: exam repository, progress store, and results repository.
// It speaks the portal's envelope format and applies request timeouts so a
// hung network call can never stall the session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/response"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx portal response.
type APIError struct {
	StatusCode int
	Code       response.ErrCode
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to the exam portal API. It satisfies session.ExamRepository,
// session.ProgressStore, and session.ResultsRepository.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken installs the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

// LoginResponse is returned by the login endpoint.
type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", model.LoginRequest{
		Username: username,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return out.User, nil
}

// GetExam fetches an exam definition by id.
func (c *Client) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	var exam model.Exam
	if err := c.do(ctx, http.MethodGet, "/api/exam/"+examID.String(), nil, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

// SaveProgress pushes an autosave snapshot. Best-effort: callers are
// expected to log and move on.
func (c *Client) SaveProgress(ctx context.Context, req *model.SaveProgressRequest) error {
	return c.do(ctx, http.MethodPost, "/api/exam/save-progress", req, nil)
}

// GetProgress fetches the caller's saved snapshot for an exam, if any.
func (c *Client) GetProgress(ctx context.Context, examID uuid.UUID) (*model.Progress, error) {
	var p model.Progress
	if err := c.do(ctx, http.MethodGet, "/api/exam/"+examID.String()+"/progress", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Submit posts the final submission and returns the stored result id.
func (c *Client) Submit(ctx context.Context, req *model.SubmitRequest) (uuid.UUID, error) {
	var out model.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/exam/submit", req, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ResultID, nil
}

// GetResult fetches a scored result together with its exam.
func (c *Client) GetResult(ctx context.Context, resultID uuid.UUID) (*model.ResultView, error) {
	var view model.ResultView
	if err := c.do(ctx, http.MethodGet, "/api/result/"+resultID.String(), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListResults fetches the caller's submissions.
func (c *Client) ListResults(ctx context.Context) ([]model.Result, error) {
	var out []model.Result
	if err := c.do(ctx, http.MethodGet, "/api/results", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ─── Teacher authoring ──────────────────────────────────────────────

// CreateExam creates a draft exam. Requires a teacher token.
func (c *Client) CreateExam(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	var exam model.Exam
	if err := c.do(ctx, http.MethodPost, "/api/teacher/exams", req, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

// UpdateExam rewrites a draft exam.
func (c *Client) UpdateExam(ctx context.Context, examID uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	var exam model.Exam
	if err := c.do(ctx, http.MethodPut, "/api/teacher/exams/"+examID.String(), req, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

// PublishExam makes a draft available to students.
func (c *Client) PublishExam(ctx context.Context, examID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/teacher/exams/"+examID.String()+"/publish", nil, nil)
}

// ListExamResults fetches every submission for one of the caller's exams.
func (c *Client) ListExamResults(ctx context.Context, examID uuid.UUID) ([]model.Result, error) {
	var out []model.Result
	if err := c.do(ctx, http.MethodGet, "/api/teacher/exams/"+examID.String()+"/results", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Code: response.ErrInternal}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: response.ErrInternal}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

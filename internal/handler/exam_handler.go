package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/tranquocan24/online-exam-system/internal/middleware"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/response"
	"github.com/tranquocan24/online-exam-system/internal/service"
	"github.com/tranquocan24/online-exam-system/internal/validator"
)

// ExamHandler handles the teacher-facing exam authoring endpoints.
type ExamHandler struct {
	exams   *service.ExamService
	results *service.ResultService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams *service.ExamService, results *service.ResultService) *ExamHandler {
	return &ExamHandler{exams: exams, results: results}
}

// Create handles POST /api/teacher/exams.
func (h *ExamHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create exam")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, exam)
}

// List handles GET /api/teacher/exams.
func (h *ExamHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	exams, err := h.exams.ListByAuthor(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	response.Success(c, http.StatusOK, exams)
}

// Get handles GET /api/teacher/exams/:exam_id.
func (h *ExamHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.exams.Get(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		h.failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Update handles PUT /api/teacher/exams/:exam_id.
func (h *ExamHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Update(c.Request.Context(), claims.UserID, examID, &req)
	if err != nil {
		h.failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Publish handles POST /api/teacher/exams/:exam_id/publish.
func (h *ExamHandler) Publish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.exams.Publish(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		h.failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Archive handles POST /api/teacher/exams/:exam_id/archive.
func (h *ExamHandler) Archive(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.exams.Archive(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		h.failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Delete handles DELETE /api/teacher/exams/:exam_id.
func (h *ExamHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	if err := h.exams.Delete(c.Request.Context(), claims.UserID, examID); err != nil {
		h.failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Results handles GET /api/teacher/exams/:exam_id/results.
func (h *ExamHandler) Results(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	results, err := h.results.ListByExam(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		h.failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}

// failExam maps authoring service errors onto the response envelope.
func (h *ExamHandler) failExam(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
	case errors.Is(err, service.ErrExamNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrExamNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrExamNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	case errors.Is(err, model.ErrInvalidQuestion):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidQuestion)
	default:
		log.Error().Err(err).Msg("Exam operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseID extracts and validates a UUID path parameter. On failure it
// writes the error response and returns ok=false.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

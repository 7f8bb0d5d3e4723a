package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/tranquocan24/online-exam-system/internal/middleware"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/response"
	"github.com/tranquocan24/online-exam-system/internal/service"
	"github.com/tranquocan24/online-exam-system/internal/validator"
)

// PortalHandler handles the student-facing exam taking endpoints.
type PortalHandler struct {
	exams    *service.ExamService
	progress *service.ProgressService
	results  *service.ResultService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	exams *service.ExamService,
	progress *service.ProgressService,
	results *service.ResultService,
) *PortalHandler {
	return &PortalHandler{exams: exams, progress: progress, results: results}
}

// GetExam handles GET /api/exam/:exam_id. The payload is sanitized: no
// correct answers leave the server while an exam is live.
func (h *PortalHandler) GetExam(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.exams.GetForTaking(c.Request.Context(), examID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamNotPublished):
			response.Fail(c, http.StatusForbidden, response.ErrExamNotPublished)
		default:
			log.Error().Err(err).Msg("Failed to load exam")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// GetProgress handles GET /api/exam/:exam_id/progress.
func (h *PortalHandler) GetProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	p, err := h.progress.Get(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoProgress) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		log.Error().Err(err).Msg("Failed to load progress")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// SaveProgress handles POST /api/exam/save-progress. Autosave traffic: the
// handler acknowledges as soon as the snapshot is in Redis.
func (h *PortalHandler) SaveProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.progress.Save(c.Request.Context(), claims.UserID, &req); err != nil {
		log.Error().Err(err).Msg("Failed to save progress")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// Submit handles POST /api/exam/submit.
func (h *PortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.results.Submit(c.Request.Context(), claims.UserID, claims.Name, &req)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamNotPublished):
			response.Fail(c, http.StatusForbidden, response.ErrExamNotPublished)
		default:
			log.Error().Err(err).Msg("Failed to submit exam")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetResult handles GET /api/result/:result_id.
func (h *PortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resultID, ok := parseID(c, "result_id")
	if !ok {
		return
	}

	view, err := h.results.GetView(c.Request.Context(), resultID, claims.UserID, claims.Role)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotResultOwner):
			response.Fail(c, http.StatusForbidden, response.ErrNotResultOwner)
		default:
			log.Error().Err(err).Msg("Failed to load result")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, view)
}

// ListResults handles GET /api/results.
func (h *PortalHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)

	results, err := h.results.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list results")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, results)
}

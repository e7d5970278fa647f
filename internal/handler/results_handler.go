package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/export"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// IdempotencyHeader carries the client-generated key of a submission.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// ResultsHandler serves the exam results API.
type ResultsHandler struct {
	resultsService *service.ResultsService
	log            zerolog.Logger
}

// NewResultsHandler creates a new ResultsHandler.
func NewResultsHandler(resultsService *service.ResultsService, log zerolog.Logger) *ResultsHandler {
	return &ResultsHandler{
		resultsService: resultsService,
		log:            log.With().Str("component", "results_handler").Logger(),
	}
}

// SubmitExam godoc
// POST /api/submit-exam
// Stores a finished exam session with its per-question answers.
func (h *ResultsHandler) SubmitExam(c *gin.Context) {
	var req model.SubmitExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrBodyTooLarge)
			return
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	if len(key) > maxIdempotencyKeyLen {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{IdempotencyHeader: "must be at most 128 characters"})
		return
	}

	res, err := h.resultsService.Submit(c.Request.Context(), key, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSubmission):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"detail": err.Error()})
		case errors.Is(err, service.ErrSubmissionInProgress):
			response.Fail(c, http.StatusConflict, response.ErrSubmissionInProgress)
		case errors.Is(err, repository.ErrDuplicateSchoolID):
			response.Fail(c, http.StatusConflict, response.ErrConflict)
		default:
			h.log.Error().Err(err).
				Str("request_id", response.RequestID(c)).
				Str("school_id", req.SchoolID).
				Msg("Failed to save exam results")
			response.Fail(c, http.StatusInternalServerError, response.ErrSaveFailed)
		}
		return
	}

	response.Success(c, http.StatusOK, model.SubmitExamResponse{
		Success:       true,
		Message:       "Exam results saved successfully",
		ExamSessionID: res.ExamSessionID,
	})
}

// StudentResults godoc
// GET /api/student-results/:schoolId
// Lists one student's exam sessions, newest first.
func (h *ResultsHandler) StudentResults(c *gin.Context) {
	schoolID := strings.TrimSpace(c.Param("schoolId"))
	if schoolID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sessions, err := h.resultsService.StudentResults(c.Request.Context(), schoolID)
	if err != nil {
		h.log.Error().Err(err).Str("school_id", schoolID).Msg("Failed to list student results")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, sessions)
}

// AllResults godoc
// GET /api/all-results
// Lists every exam session across students, newest first.
func (h *ResultsHandler) AllResults(c *gin.Context) {
	sessions, err := h.resultsService.AllResults(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list results")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, sessions)
}

// ExportResults godoc
// GET /api/all-results/export
// Downloads every exam session as an XLSX workbook, newest first.
func (h *ResultsHandler) ExportResults(c *gin.Context) {
	sessions, err := h.resultsService.AllResults(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list results for export")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteResults(&buf, sessions); err != nil {
		h.log.Error().Err(err).Int("sessions", len(sessions)).Msg("Failed to build results workbook")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// ExamDetails godoc
// GET /api/exam-details/:examSessionId
// Returns the per-question answers of one session by question number.
func (h *ResultsHandler) ExamDetails(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("examSessionId"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	answers, err := h.resultsService.ExamDetails(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("exam_session_id", id).Msg("Failed to load exam details")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, answers)
}

// Test godoc
// GET /api/test
// Reports that the server is up and whether the database answers.
func (h *ResultsHandler) Test(c *gin.Context) {
	db := "connected"
	if err := h.resultsService.Ping(c.Request.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Database ping failed")
		db = "unavailable"
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":   "Server is working!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  db,
	})
}

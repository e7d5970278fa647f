package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/export"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// stubStore is a scripted service.ResultsStore.
type stubStore struct {
	mu       sync.Mutex
	nextID   int64
	saveErr  error
	pingErr  error
	saved    []model.ExamSession
	answers  map[int64][]model.QuestionAnswer
	sessions []model.SessionSummary
}

func newStubStore() *stubStore {
	return &stubStore{answers: map[int64][]model.QuestionAnswer{}, sessions: []model.SessionSummary{}}
}

func (s *stubStore) SaveSubmission(_ context.Context, st *model.Student, es *model.ExamSession, answers []model.QuestionAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.nextID++
	es.ID = s.nextID
	for i := range answers {
		answers[i].ExamSessionID = es.ID
	}
	s.saved = append(s.saved, *es)
	s.answers[es.ID] = answers
	s.sessions = append([]model.SessionSummary{{
		ExamSessionID: es.ID, Name: st.Name, SchoolID: st.SchoolID, TotalScore: es.TotalScore,
	}}, s.sessions...)
	return nil
}

func (s *stubStore) ListBySchoolID(_ context.Context, schoolID string) ([]model.SessionSummary, error) {
	out := []model.SessionSummary{}
	for _, ss := range s.sessions {
		if ss.SchoolID == schoolID {
			out = append(out, ss)
		}
	}
	return out, nil
}

func (s *stubStore) ListAll(context.Context) ([]model.SessionSummary, error) { return s.sessions, nil }

func (s *stubStore) ListAnswers(_ context.Context, id int64) ([]model.QuestionAnswer, error) {
	if a, ok := s.answers[id]; ok {
		return a, nil
	}
	return []model.QuestionAnswer{}, nil
}

func (s *stubStore) Counts(context.Context) (int64, int64, error) {
	return 1, int64(len(s.saved)), nil
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

// keyDedup holds keys in memory; a key mapped to 0 is pending.
type keyDedup map[string]int64

func (d keyDedup) Reserve(_ context.Context, key string) (int64, bool, error) {
	if id, ok := d[key]; ok {
		return id, false, nil
	}
	d[key] = 0
	return 0, true, nil
}

func (d keyDedup) Complete(_ context.Context, key string, id int64) error {
	d[key] = id
	return nil
}

func (d keyDedup) Release(_ context.Context, key string) error {
	delete(d, key)
	return nil
}

func newTestRouter(store *stubStore, dedup service.Deduplicator) *gin.Engine {
	log := zerolog.New(io.Discard)
	h := NewResultsHandler(service.NewResultsService(store, dedup, log), log)

	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	api := r.Group("/api")
	api.POST("/submit-exam", middleware.BodyLimit(64*1024), h.SubmitExam)
	api.GET("/student-results/:schoolId", h.StudentResults)
	api.GET("/all-results", h.AllResults)
	api.GET("/all-results/export", h.ExportResults)
	api.GET("/exam-details/:examSessionId", h.ExamDetails)
	api.GET("/test", h.Test)
	return r
}

const validBody = `{
	"studentName": "Ann",
	"schoolId": "S1",
	"answers": [2, -1],
	"results": {"score": 50, "correctAnswers": 1, "totalQuestions": 2, "unansweredQuestions": 1, "timeTaken": 42, "answers": [2, -1]},
	"questions": [
		{"id": 1, "question": "Capital of France?", "options": ["London", "Berlin", "Paris", "Madrid"], "correctAnswer": 2},
		{"id": 2, "question": "Red planet?", "options": ["Venus", "Mars", "Jupiter", "Saturn"], "correctAnswer": 1}
	],
	"timeSpent": [5, 37]
}`

func do(r *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Error)
	return body
}

func TestSubmitExam_Success(t *testing.T) {
	store := newStubStore()
	r := newTestRouter(store, nil)

	w := do(r, http.MethodPost, "/api/submit-exam", validBody)
	require.Equal(t, http.StatusOK, w.Code)

	var body model.SubmitExamResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.NotEmpty(t, body.Message)
	require.Equal(t, int64(1), body.ExamSessionID)

	require.Len(t, store.saved, 1)
	require.Equal(t, 50, store.saved[0].TotalScore)
	answers := store.answers[1]
	require.True(t, answers[0].IsCorrect)
	require.False(t, answers[1].IsCorrect)
	require.Equal(t, 37, answers[1].TimeSpent)
}

func TestSubmitExam_ValidationErrors(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"missing school id": {
			body:  strings.Replace(validBody, `"schoolId": "S1",`, "", 1),
			field: "schoolId",
		},
		"three options": {
			body:  strings.Replace(validBody, `"London", "Berlin", "Paris", "Madrid"`, `"London", "Berlin", "Paris"`, 1),
			field: "questions[0].options",
		},
		"answer out of range": {
			body:  strings.Replace(validBody, `"answers": [2, -1],`, `"answers": [7, -1],`, 1),
			field: "answers[0]",
		},
		"time taken beyond a day": {
			body:  strings.Replace(validBody, `"timeTaken": 42`, `"timeTaken": 1099511627776`, 1),
			field: "results.timeTaken",
		},
		"time spent beyond a day": {
			body:  strings.Replace(validBody, `"timeSpent": [5, 37]`, `"timeSpent": [5, 8589934592]`, 1),
			field: "timeSpent[1]",
		},
		"malformed json": {
			body:  `{"studentName": `,
			field: "detail",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := newStubStore()
			w := do(newTestRouter(store, nil), http.MethodPost, "/api/submit-exam", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			body := decodeError(t, w)
			require.Equal(t, response.ErrValidation, body.Code)
			require.Contains(t, body.Fields, tc.field)
			require.Empty(t, store.saved)
		})
	}
}

func TestSubmitExam_AnswerCountMismatch(t *testing.T) {
	body := strings.Replace(validBody, `"answers": [2, -1],`, `"answers": [2],`, 1)
	w := do(newTestRouter(newStubStore(), nil), http.MethodPost, "/api/submit-exam", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, response.ErrValidation, decodeError(t, w).Code)
}

func TestSubmitExam_StoreFailure(t *testing.T) {
	store := newStubStore()
	store.saveErr = errors.New("connection reset")
	w := do(newTestRouter(store, nil), http.MethodPost, "/api/submit-exam", validBody)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	require.Equal(t, response.ErrSaveFailed, body.Code)
	require.NotContains(t, w.Body.String(), "connection reset")
	require.NotContains(t, w.Body.String(), `"success"`)
}

func TestSubmitExam_DuplicateSchoolID(t *testing.T) {
	store := newStubStore()
	store.saveErr = fmt.Errorf("upsert student: %w", repository.ErrDuplicateSchoolID)
	w := do(newTestRouter(store, nil), http.MethodPost, "/api/submit-exam", validBody)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, response.ErrConflict, decodeError(t, w).Code)
}

func TestSubmitExam_Idempotent(t *testing.T) {
	store := newStubStore()
	dedup := keyDedup{}
	r := newTestRouter(store, dedup)

	first := do(r, http.MethodPost, "/api/submit-exam", validBody, IdempotencyHeader, "k-1")
	second := do(r, http.MethodPost, "/api/submit-exam", validBody, IdempotencyHeader, "k-1")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Len(t, store.saved, 1)

	dedup["k-2"] = 0
	w := do(r, http.MethodPost, "/api/submit-exam", validBody, IdempotencyHeader, "k-2")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, response.ErrSubmissionInProgress, decodeError(t, w).Code)
}

func TestSubmitExam_BodyTooLarge(t *testing.T) {
	body := strings.Replace(validBody, `"Ann"`, `"`+strings.Repeat("a", 70*1024)+`"`, 1)
	w := do(newTestRouter(newStubStore(), nil), http.MethodPost, "/api/submit-exam", body)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Equal(t, response.ErrBodyTooLarge, decodeError(t, w).Code)
}

func TestReadEndpoints(t *testing.T) {
	store := newStubStore()
	r := newTestRouter(store, nil)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/submit-exam", validBody).Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/submit-exam", validBody).Code)

	w := do(r, http.MethodGet, "/api/student-results/S1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sessions []model.SessionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	require.Len(t, sessions, 2)
	require.Equal(t, int64(2), sessions[0].ExamSessionID)

	w = do(r, http.MethodGet, "/api/student-results/NOPE", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	w = do(r, http.MethodGet, "/api/all-results", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	require.Len(t, sessions, 2)

	w = do(r, http.MethodGet, "/api/exam-details/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var answers []model.QuestionAnswer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answers))
	require.Len(t, answers, 2)
	require.Equal(t, 1, answers[0].QuestionNumber)
	require.Equal(t, 2, answers[1].QuestionNumber)

	w = do(r, http.MethodGet, "/api/exam-details/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, response.ErrInvalidID, decodeError(t, w).Code)
}

func TestExportResults(t *testing.T) {
	store := newStubStore()
	r := newTestRouter(store, nil)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/submit-exam", validBody).Code)

	w := do(r, http.MethodGet, "/api/all-results/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "S1", rows[1][2])
}

func TestTestEndpoint(t *testing.T) {
	store := newStubStore()
	r := newTestRouter(store, nil)

	w := do(r, http.MethodGet, "/api/test", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Server is working!", body["message"])
	require.Equal(t, "connected", body["database"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	require.NoError(t, err)

	store.pingErr = errors.New("down")
	w = do(r, http.MethodGet, "/api/test", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "unavailable", body["database"])
}

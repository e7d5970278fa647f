package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFailWithFields(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"schoolId": "required"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, ErrValidation, body.Code)
	require.Equal(t, GetMessage(ErrValidation), body.Error)
	require.Equal(t, "required", body.Fields["schoolId"])
	require.Equal(t, "req-1", body.RequestID)
}

func TestRequestIDGenerated(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { Fail(c, http.StatusInternalServerError, ErrInternal) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
	require.Contains(t, w.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestGetMessageDefault(t *testing.T) {
	require.Equal(t, "An unexpected error occurred.", GetMessage("SOMETHING_ELSE"))
}

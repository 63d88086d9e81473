package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc, headers map[string]string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSuccessEnvelope(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, http.StatusOK, gin.H{"hello": "world"})
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Nil(t, body.Error)
	assert.NotEmpty(t, body.Metadata.RequestID)
	assert.NotEmpty(t, body.Metadata.Timestamp)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "world", data["hello"])
}

func TestFailEnvelopeCarriesCodeAndMessage(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Fail(c, http.StatusConflict, ErrAlreadySubmitted)
	}, nil)

	require.Equal(t, http.StatusConflict, w.Code)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.NotNil(t, body.Error)
	assert.Equal(t, ErrAlreadySubmitted, body.Error.Code)
	assert.Equal(t, GetMessage(ErrAlreadySubmitted), body.Error.Message)
	assert.Empty(t, body.Error.Fields)
}

func TestFailWithFields(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{
			"exam_code": "exam_code is required",
		})
	}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.NotNil(t, body.Error)
	assert.Equal(t, "exam_code is required", body.Error.Fields["exam_code"])
}

func TestRequestIDPropagation(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, http.StatusOK, gin.H{})
	}, map[string]string{"X-Request-ID": "req-abc-123"})

	assert.Equal(t, "req-abc-123", w.Header().Get("X-Request-ID"))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-abc-123", body.Metadata.RequestID)
}

func TestPaginationEnvelope(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		SuccessWithPagination(c, http.StatusOK, gin.H{"items": []int{1, 2, 3}}, &Pagination{
			Page:       2,
			PerPage:    3,
			TotalItems: 10,
			TotalPages: 4,
		})
	}, nil)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.NotNil(t, body.Pagination)
	assert.Equal(t, 2, body.Pagination.Page)
	assert.Equal(t, 4, body.Pagination.TotalPages)
}

func TestEveryErrorCodeHasMessage(t *testing.T) {
	codes := []ErrCode{
		ErrInvalidCredentials, ErrLoginActive, ErrLoginInvalidated,
		ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired,
		ErrForbidden, ErrStudentAccessOnly, ErrTeacherAccessOnly,
		ErrValidation, ErrInvalidID, ErrInvalidPayload,
		ErrNotFound, ErrConflict, ErrActionForbidden,
		ErrExamNotAvailable, ErrInvalidExamCode, ErrNoQuestions,
		ErrNotExamAuthor, ErrOtherExamActive, ErrAlreadySubmitted,
		ErrSessionNotActive, ErrSessionTerminated, ErrDeviceMismatch,
		ErrSubmitInFlight, ErrRateLimitExceeded, ErrInternal,
	}
	for _, code := range codes {
		assert.NotEmpty(t, GetMessage(code), "message missing for %s", code)
	}
}

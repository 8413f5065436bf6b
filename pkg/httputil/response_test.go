package httputil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/followup-api/pkg/errors"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{errors.NotFound("patient", nil), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", errors.NotFound("follow-up", nil)), http.StatusNotFound},
		{errors.Validation("age", "age must be at most 150"), http.StatusBadRequest},
		{errors.BadRequest("invalid id", nil), http.StatusBadRequest},
		{errors.Store("insert patient", fmt.Errorf("connection refused")), http.StatusServiceUnavailable},
		{errors.Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), "%v", tt.err)
	}
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "internal server error", Message(fmt.Errorf("pq: password authentication failed")))
	assert.Equal(t, "store failure during insert patient", Message(errors.Store("insert patient", fmt.Errorf("timeout"))))
	assert.Equal(t, "age", Field(fmt.Errorf("x: %w", errors.Validation("age", "age is required"))))
}

func TestParseHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?pending=true&bad=maybe", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	_, err := ParseUUIDParam(c, "id")
	assert.Equal(t, errors.ErrBadRequest, errors.CodeOf(err))

	v, err := ParseBoolQuery(c, "pending")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, *v)

	v, err = ParseBoolQuery(c, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = ParseBoolQuery(c, "bad")
	assert.Error(t, err)
}

func TestBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	c.Request.Header.Set("Content-Type", "application/json")

	var body struct {
		Name string `json:"name"`
	}
	err := BindJSON(c, &body)
	assert.Equal(t, errors.ErrBadRequest, errors.CodeOf(err))
}

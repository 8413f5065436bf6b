package httputil

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/pkg/errors"
)

// StatusCode maps an error to the HTTP status returned to clients.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}

	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest, errors.ErrValidation:
		return http.StatusBadRequest
	case errors.ErrStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for err. Internal details of store
// and unexpected failures are never exposed.
func Message(err error) string {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return "internal server error"
	}
	return appErr.Message
}

// Field returns the offending field of a validation error, if any.
func Field(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// ParseUUIDParam reads a path parameter as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.BadRequest("invalid "+name, err)
	}
	return id, nil
}

// ParseBoolQuery reads an optional boolean query parameter.
func ParseBoolQuery(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.BadRequest("invalid "+name+" query parameter", err)
	}
	return &v, nil
}

// BindJSON decodes the request body into obj. Decoding failures become
// BadRequest errors; validation is left to the services.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		var maxBytes *http.MaxBytesError
		if stderrors.As(err, &maxBytes) {
			return err
		}
		return errors.BadRequest("invalid request body: "+err.Error(), err)
	}
	return nil
}

package server

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries list metadata.
type Meta struct {
	Total int    `json:"total"`
	Query string `json:"query,omitempty"`
}

// RespondWithError writes err as an error envelope. Errors that are not
// AppErrors become INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

func RespondOKWithMeta(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: meta})
}

func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}

func RespondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, DataResponse{Data: data})
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BindJSON decodes the request body into v. Malformed JSON is INVALID_INPUT
// and an oversized body is 413.
func BindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.New(errors.ErrCodeInvalidInput, "Request body is too large.", http.StatusRequestEntityTooLarge)
		}
		return errors.InvalidInput("body", err.Error()).WithCause(err)
	}
	return nil
}

package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parkfinder/service-parking/internal/domain"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a 200 with data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 validation error.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Error: &ErrorBody{Code: string(domain.CodeValidation), Message: message},
	})
}

// Error maps err to an HTTP status and writes it. Untyped errors become 500
// with a generic message so internals do not leak.
func Error(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status := StatusFor(code)
	message := "internal server error"
	if code != "" {
		message = err.Error()
	} else {
		code = "INTERNAL_ERROR"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Envelope{Error: &ErrorBody{Code: string(code), Message: message}})
}

// StatusFor returns the HTTP status for a domain error code.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict, domain.CodeInvalidState:
		return http.StatusConflict
	case domain.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

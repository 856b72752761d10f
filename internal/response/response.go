// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-api/internal/apperr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope represents a standard API response
type Envelope struct {
	Status    string            `json:"status"`
	Data      any               `json:"data,omitempty"`
	Message   string            `json:"message,omitempty"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Error     string            `json:"error,omitempty"` // dev mode only
	Timestamp time.Time         `json:"timestamp"`
}

// OK sends a 200 success response
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Status: StatusSuccess, Data: data, Timestamp: time.Now().UTC()})
}

// Created sends a 201 created response
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Status: StatusSuccess, Data: data, Timestamp: time.Now().UTC()})
}

// Message sends a 200 response carrying only a message.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Envelope{Status: StatusSuccess, Message: message, Timestamp: time.Now().UTC()})
}

// Error renders err and aborts the handler chain. Errors that are not
// *apperr.Error are reported as Internal; their text only appears in debug mode.
func Error(c *gin.Context, err error) {
	e := apperr.As(err)
	_ = c.Error(err)

	env := Envelope{
		Status:    StatusError,
		Message:   e.Message,
		Code:      e.ErrorCode(),
		Fields:    e.Fields,
		Timestamp: time.Now().UTC(),
	}
	if gin.IsDebugging() && e.Err != nil {
		env.Error = e.Err.Error()
	}
	c.AbortWithStatusJSON(apperr.Status(e.Kind), env)
}

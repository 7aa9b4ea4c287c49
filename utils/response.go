package utils

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the uniform body every auction endpoint returns: the HTTP
// status echoed, a short message, and either the payload or the error.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSONResponse sends a payload wrapped in the standard envelope.
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// JSONError sends an error wrapped in the standard envelope.
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, Envelope{
		Status:  status,
		Message: message,
		Error:   err.Error(),
	})
}

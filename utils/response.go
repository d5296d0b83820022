package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends the {status, message, data} envelope
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends the {status, message, error} envelope. A nil err repeats the message.
func JSONError(c *gin.Context, status int, err error, message string) {
	detail := message
	if err != nil {
		detail = err.Error()
	}
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   detail,
	})
}

// AbortJSONError sends an error envelope and stops the handler chain
func AbortJSONError(c *gin.Context, status int, err error, message string) {
	JSONError(c, status, err, message)
	c.Abort()
}

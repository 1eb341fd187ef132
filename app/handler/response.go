package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// All endpoints answer with the same envelope: code 0 on success, an error
// code mirroring the HTTP status otherwise.

func success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": message,
		"data":    data,
	})
}

func fail(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"code":    statusCode,
		"message": message,
		"data":    nil,
	})
}

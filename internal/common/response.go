package common

import (
	"github.com/gin-gonic/gin"
)

// OK writes data as the bare JSON body of a 200 response.
func OK(c *gin.Context, data any) {
	c.JSON(200, data)
}

// Fail writes the error envelope and aborts the handler chain.
func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

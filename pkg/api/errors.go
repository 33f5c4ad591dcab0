package api

import "github.com/gin-gonic/gin"

// Error codes returned in the JSON error body.
const (
	CodeNotConnected   = "NOT_CONNECTED"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeUpstreamError  = "UPSTREAM_ERROR"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abortError(ctx *gin.Context, status int, code, message string) {
	ctx.AbortWithStatusJSON(status, gin.H{"error": Error{Code: code, Message: message}})
}

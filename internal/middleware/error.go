package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
)

// WriteError writes the JSON error envelope for err. AppErrors are returned
// with their code, message and kind; anything else is logged and reported as
// a generic internal error so details never leak.
func WriteError(c *gin.Context, err error) {
	requestID := RequestID(c)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Get().Errorw("unexpected error",
			"request_id", requestID,
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		appErr = apperrors.ErrInternalServer
	} else if appErr.Internal != nil {
		logger.Get().Errorw("app error",
			"request_id", requestID,
			"code", appErr.Code,
			"internal", appErr.Internal.Error(),
			"path", c.Request.URL.Path,
		)
	}

	status := appErr.StatusCode
	if status == 0 {
		status = apperrors.StatusFor(appErr.Kind)
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":       appErr.Code,
			"message":    appErr.Message,
			"kind":       appErr.Kind,
			"request_id": requestID,
		},
	})
}

func abortWithError(c *gin.Context, err error) {
	WriteError(c, err)
	c.Abort()
}

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into the JSON error envelope, unless a response was already written.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// Recovery turns a panic into a logged INTERNAL error response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Get().Errorw("panic recovered",
			"request_id", RequestID(c),
			"panic", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":       apperrors.ErrInternalServer.Code,
				"message":    apperrors.ErrInternalServer.Message,
				"kind":       apperrors.ErrInternalServer.Kind,
				"request_id": RequestID(c),
			},
		})
	})
}

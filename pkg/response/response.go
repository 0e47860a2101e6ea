package response

import (
	"errors"
	"net/http"

	apperrors "CrowdGuard/pkg/errors"
	"CrowdGuard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// List writes the {count, results} envelope. extra keys are merged into the envelope.
func List[T any](c *gin.Context, results []T, extra gin.H) {
	if results == nil {
		results = []T{}
	}
	body := gin.H{"count": len(results), "results": results}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Detail writes the {detail: message} envelope.
func Detail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}

func NotFound(c *gin.Context) {
	Detail(c, http.StatusNotFound, "Not found.")
}

// Error reports err with the status it carries. Validation errors become a field-keyed
// map; anything unclassified is a 500 carrying the error text.
func Error(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	var e *apperrors.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		c.AbortWithStatusJSON(code, e.Fields)
		return
	}
	if code >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}
	Detail(c, code, apperrors.GetMessage(err))
}

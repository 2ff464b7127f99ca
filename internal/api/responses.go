package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helmcloud/k8s-clusterview/internal/collector"
)

type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error: message,
		Code:  "BAD_REQUEST",
	})
}

func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, APIError{
		Error: message,
		Code:  "NOT_FOUND",
	})
}

func respondServiceUnavailable(c *gin.Context, message, code string) {
	c.JSON(http.StatusServiceUnavailable, APIError{
		Error: message,
		Code:  code,
	})
}

func respondInternalError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	log.Errorw("Failed to "+operation, "error", err)
	c.JSON(http.StatusInternalServerError, APIError{
		Error: "failed to " + operation,
		Code:  "INTERNAL_ERROR",
	})
}

// respondFetchError reports a failed snapshot fetch when nothing can be
// served instead.
func respondFetchError(c *gin.Context, err error) {
	c.JSON(http.StatusBadGateway, APIError{
		Error: err.Error(),
		Code:  fetchErrorCode(err),
	})
}

func fetchErrorCode(err error) string {
	switch {
	case errors.Is(err, collector.ErrClusterListUnavailable):
		return "CLUSTER_LIST_UNAVAILABLE"
	case errors.Is(err, collector.ErrNoClusterAvailable):
		return "NO_CLUSTER_AVAILABLE"
	case errors.Is(err, collector.ErrClusterUnreachable):
		return "CLUSTER_UNREACHABLE"
	default:
		return "FETCH_FAILED"
	}
}

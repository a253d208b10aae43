package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"EmergencyMap-App/internal/domain/model"
)

// statusFor はドメインエラーをHTTPステータスに対応付ける
func statusFor(err error) int {
	var validationErr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrRouteNotFound), errors.Is(err, model.ErrRegionNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr), errors.Is(err, model.ErrInvalidRegion):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "リクエストの形式が正しくありません",
		"details": err.Error(),
	})
}

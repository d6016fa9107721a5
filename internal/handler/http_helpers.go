package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/ratelimit"
	"github.com/bongbari/internal/service"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, language string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  service.KindValidation,
			"error": locale.Message(language, locale.MsgInvalidRequest),
		})
		return false
	}
	return true
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindAlreadyResolved:
		return http.StatusConflict
	case service.KindContentBlocked:
		return http.StatusUnprocessableEntity
	case service.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}

// errorMessage localizes a service error. Store failures always render as
// the generic retry message.
func errorMessage(language string, err *service.Error) string {
	switch err.Kind {
	case service.KindStoreUnavailable:
		return locale.Message(language, locale.MsgTryAgain)
	case service.KindRateLimited:
		return locale.Message(language, locale.MsgRateLimited, locale.FormatWait(language, err.RetryAfter))
	}
	return locale.Message(language, err.Message, err.Args...)
}

// respondServiceError writes {code, error} with the status for the error
// kind and logs store failures with their cause.
func (a *API) respondServiceError(c *gin.Context, language string, err error) {
	typed := service.AsError(err)
	if typed.Kind == service.KindStoreUnavailable {
		a.log.WithFields(requestFields(c)).Errorf("request failed: %v", err)
	}
	if typed.Kind == service.KindRateLimited {
		c.Header("Retry-After", strconv.FormatInt(retryAfterSeconds(typed), 10))
	}
	c.JSON(statusForKind(typed.Kind), gin.H{
		"code":  typed.Kind,
		"error": errorMessage(language, typed),
	})
}

func retryAfterSeconds(err *service.Error) int64 {
	return ratelimit.CeilSeconds(err.RetryAfter)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/bongbari/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// DeviceHeader carries the device id in both directions.
	DeviceHeader = "X-Device-Id"
	// DeviceCookieName persists the device id in browsers.
	DeviceCookieName   = "bb_device_id"
	deviceCookieMaxAge = 365 * 24 * 60 * 60
	deviceContextKey   = "__device_id"
)

// DeviceMiddleware makes sure every request has a device id: the
// X-Device-Id header first, then the cookie, else a freshly issued uuid.
// The id is only used for rate limiting, never for authorization.
func (a *API) DeviceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := a.ensureDeviceID(c)
		c.Set(deviceContextKey, id)
		c.Header(DeviceHeader, id)
		c.Next()
	}
}

func (a *API) ensureDeviceID(c *gin.Context) string {
	if id := validDeviceID(c.GetHeader(DeviceHeader)); id != "" {
		if cookie, err := c.Cookie(DeviceCookieName); err != nil || cookie != id {
			a.setDeviceCookie(c, id)
		}
		return id
	}
	if cookie, err := c.Cookie(DeviceCookieName); err == nil {
		if id := validDeviceID(cookie); id != "" {
			return id
		}
	}

	id := uuid.NewString()
	a.setDeviceCookie(c, id)
	return id
}

func (a *API) setDeviceCookie(c *gin.Context, id string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: false,
		Secure:   a.secureCookies || c.Request.TLS != nil,
		MaxAge:   deviceCookieMaxAge,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})
}

func validDeviceID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > service.MaxDeviceIDLength {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e || r == ';' || r == ',' || r == '"' || r == '\\' {
			return ""
		}
	}
	return id
}

func deviceID(c *gin.Context) string {
	if value, ok := c.Get(deviceContextKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return validDeviceID(c.GetHeader(DeviceHeader))
}

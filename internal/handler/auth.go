package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// CSRFHeader must echo the session's token on mutating cookie requests.
	CSRFHeader = "X-CSRF-Token"

	sessionKeyUser  = "admin_user"
	sessionKeyToken = "admin_token"
	sessionKeyCSRF  = "csrf_token"

	actorContextKey      = "__admin_actor"
	viaSessionContextKey = "__admin_via_session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTP     string `json:"totp"`
}

// AdminLogin checks credentials, stores the token in the cookie session and
// returns it for bearer use as well.
func (a *API) AdminLogin(c *gin.Context) {
	language := requestLanguage(c, "")
	var req loginRequest
	if !bindJSON(c, &req, language) {
		return
	}

	result, err := a.auth.Login(c.Request.Context(), req.Username, req.Password, req.TOTP)
	if err != nil {
		a.respondServiceError(c, language, err)
		return
	}

	csrf, err := service.NewCSRFToken()
	if err != nil {
		a.respondServiceError(c, language, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKeyUser, result.Username)
	session.Set(sessionKeyToken, result.Token)
	session.Set(sessionKeyCSRF, csrf)
	if err := session.Save(); err != nil {
		a.respondServiceError(c, language, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":  result.Username,
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.UTC().Format(time.RFC3339),
		"csrfToken": csrf,
	})
}

// AdminLogout clears the cookie session.
func (a *API) AdminLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		a.respondServiceError(c, requestLanguage(c, ""), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CSRFToken returns the session's CSRF token, minting one if the session
// predates it.
func (a *API) CSRFToken(c *gin.Context) {
	language := requestLanguage(c, "")
	if !authenticatedViaSession(c) {
		respondError(c, http.StatusUnauthorized, locale.Message(language, locale.MsgUnauthorized))
		return
	}

	session := sessions.Default(c)
	token, _ := session.Get(sessionKeyCSRF).(string)
	if token == "" {
		fresh, err := service.NewCSRFToken()
		if err != nil {
			a.respondServiceError(c, language, err)
			return
		}
		session.Set(sessionKeyCSRF, fresh)
		if err := session.Save(); err != nil {
			a.respondServiceError(c, language, err)
			return
		}
		token = fresh
	}
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}

// AdminAuth accepts a bearer token or the token kept in the cookie session.
// Cookie-authenticated requests that change state must carry the CSRF
// header.
func (a *API) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		language := requestLanguage(c, "")
		tokens := a.auth.Tokens()

		if bearer, ok := service.ExtractBearerToken(c.GetHeader("Authorization")); ok {
			claims, err := tokens.Parse(bearer)
			if err != nil {
				a.abortUnauthorized(c, language, "invalid bearer token")
				return
			}
			c.Set(actorContextKey, claims.Subject)
			c.Next()
			return
		}

		session := sessions.Default(c)
		stored, _ := session.Get(sessionKeyToken).(string)
		if stored == "" {
			a.abortUnauthorized(c, language, "no credentials")
			return
		}
		claims, err := tokens.Parse(stored)
		if err != nil {
			a.abortUnauthorized(c, language, "expired session token")
			return
		}

		if !isSafeMethod(c.Request.Method) {
			expected, _ := session.Get(sessionKeyCSRF).(string)
			given := c.GetHeader(CSRFHeader)
			if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(given)) != 1 {
				a.log.WithFields(requestFields(c)).Warnf("csrf token mismatch")
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"code":  service.KindUnauthorized,
					"error": locale.Message(language, locale.MsgUnauthorized),
				})
				return
			}
		}

		c.Set(actorContextKey, claims.Subject)
		c.Set(viaSessionContextKey, true)
		c.Next()
	}
}

func (a *API) abortUnauthorized(c *gin.Context, language, reason string) {
	a.log.WithFields(requestFields(c)).Warnf("admin auth rejected: %s", reason)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":  service.KindUnauthorized,
		"error": locale.Message(language, locale.MsgUnauthorized),
	})
}

func adminActor(c *gin.Context) string {
	if value, ok := c.Get(actorContextKey); ok {
		if actor, ok := value.(string); ok {
			return actor
		}
	}
	return ""
}

func authenticatedViaSession(c *gin.Context) bool {
	value, ok := c.Get(viaSessionContextKey)
	if !ok {
		return false
	}
	via, _ := value.(bool)
	return via
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

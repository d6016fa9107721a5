package router

import (
	"net/http"
	"strings"

	"github.com/bongbari/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

const sessionName = "bongbari_session"

// Options configures the engine beyond the handler set.
type Options struct {
	SessionSecret string
	SecureCookies bool
	// SessionMaxAge is the admin session cookie lifetime in seconds.
	SessionMaxAge int
}

// SetupRouter wires middleware and routes onto a fresh gin engine.
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger())

	secret := opts.SessionSecret
	if strings.TrimSpace(secret) == "" {
		secret = "bongbari-dev-secret"
	}
	maxAge := opts.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 12 * 60 * 60
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(api.LocaleMiddleware())
	api.SetSecureCookies(opts.SecureCookies)

	r.GET("/healthz", api.Healthz)

	public := r.Group("")
	public.Use(api.DeviceMiddleware())
	{
		public.POST("/moderate-preview", api.ModeratePreview)
		public.POST("/submit-story", api.SubmitStory)
		public.GET("/stories", api.ListStories)
		public.GET("/stories/:postId", api.GetStory)
		public.POST("/chatbot", api.Chatbot)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/login", api.AdminLogin)

		auth := admin.Group("")
		auth.Use(api.AdminAuth())
		{
			auth.POST("/logout", api.AdminLogout)
			auth.GET("/csrf-token", api.CSRFToken)
			auth.GET("/list-pending", api.ListPending)
			auth.GET("/posts/:postId/audit", api.PostAudit)
			auth.GET("/stats", api.Stats)
			auth.POST("/publish", api.Publish)
			auth.POST("/reject", api.Reject)
			auth.POST("/delete", api.Delete)
			auth.GET("/settings", api.GetSettings)
			auth.POST("/settings", api.UpdateSettings)
		}
	}

	return r
}

// WithCORS wraps the engine for the SPA frontend. Credentials are only
// allowed for an explicit origin list.
func WithCORS(next http.Handler, origins []string) http.Handler {
	allowed := make([]string, 0, len(origins))
	wildcard := len(origins) == 0
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			wildcard = true
			continue
		}
		allowed = append(allowed, origin)
	}
	if wildcard {
		allowed = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"Accept-Language",
			handler.CSRFHeader,
			handler.DeviceHeader,
		},
		ExposedHeaders:   []string{"Retry-After", handler.DeviceHeader},
		AllowCredentials: !wildcard,
		MaxAge:           600,
	}).Handler(next)
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bongbari/internal/config"
	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/handler"
	"github.com/bongbari/internal/logger"
	"github.com/bongbari/internal/moderation"
	"github.com/bongbari/internal/ratelimit"
	"github.com/bongbari/internal/router"
	"github.com/bongbari/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	appLog := logger.New(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	gdb, err := db.Open(db.Options{URL: cfg.DatabaseURL, Path: cfg.DatabasePath, Silent: cfg.GinMode == gin.ReleaseMode})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	if err := db.EnsureUser(gdb, cfg.AdminUserName, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	store, closeStore := rateLimitStore(cfg, gdb, appLog)
	defer closeStore()

	lexicon := moderation.DefaultLexicon()
	if cfg.LexiconPath != "" {
		if lexicon, err = moderation.LoadLexicon(cfg.LexiconPath); err != nil {
			log.Fatalf("failed to load lexicon: %v", err)
		}
	}

	settings := service.NewSettingService(gdb, service.Policy{
		AutoPublishClean: cfg.AutoPublishClean,
		ChatbotEnabled:   cfg.OpenAIAPIKey != "",
	})
	limiter := ratelimit.NewLimiter(store, ratelimit.Policy{
		MaxSubmissions: cfg.RateLimit.MaxSubmissions,
		Window:         cfg.RateLimit.Window,
		Cooldown:       cfg.RateLimit.Cooldown,
	})
	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminTokenTTL)

	api := handler.NewAPI(handler.Services{
		Submissions: service.NewSubmissionService(gdb, moderation.NewClassifier(lexicon), limiter, settings, appLog),
		Queue:       service.NewQueueService(gdb, appLog),
		Stories:     service.NewStoryService(gdb),
		Auth:        service.NewAuthService(gdb, tokens, appLog),
		Settings:    settings,
		Chat:        service.NewChatService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, settings, appLog),
	}, appLog)

	engine := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.GinMode == gin.ReleaseMode,
		SessionMaxAge: int(cfg.AdminTokenTTL.Seconds()),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.WithCORS(engine, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		appLog.Infof("listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Errorf("shutdown failed: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}
}

// rateLimitStore prefers Redis when configured and falls back to the SQL
// table when Redis is unset or unreachable at startup.
func rateLimitStore(cfg config.AppConfig, gdb *gorm.DB, appLog logger.Logger) (ratelimit.Store, func()) {
	if cfg.RedisURL == "" {
		return ratelimit.NewGormStore(gdb), func() {}
	}

	store, err := ratelimit.NewRedisStoreFromURL(cfg.RedisURL)
	if err != nil {
		appLog.Warnf("invalid REDIS_URL, using database rate limits: %v", err)
		return ratelimit.NewGormStore(gdb), func() {}
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		appLog.Warnf("redis unreachable, using database rate limits: %v", err)
		_ = store.Close()
		return ratelimit.NewGormStore(gdb), func() {}
	}
	return store, func() { _ = store.Close() }
}

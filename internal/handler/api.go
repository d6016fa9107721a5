package handler

import (
	"github.com/bongbari/internal/logger"
	"github.com/bongbari/internal/service"
)

// Services are the dependencies the HTTP layer calls into.
type Services struct {
	Submissions *service.SubmissionService
	Queue       *service.QueueService
	Stories     *service.StoryService
	Auth        *service.AuthService
	Settings    *service.SettingService
	Chat        *service.ChatService
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	submissions   *service.SubmissionService
	queue         *service.QueueService
	stories       *service.StoryService
	auth          *service.AuthService
	settings      *service.SettingService
	chat          *service.ChatService
	log           logger.Logger
	secureCookies bool
}

// NewAPI constructs a handler set with shared services.
func NewAPI(svc Services, log logger.Logger) *API {
	return &API{
		submissions: svc.Submissions,
		queue:       svc.Queue,
		stories:     svc.Stories,
		auth:        svc.Auth,
		settings:    svc.Settings,
		chat:        svc.Chat,
		log:         logger.OrNop(log),
	}
}

// SetSecureCookies forces the Secure flag on cookies the handlers issue,
// for deployments behind a TLS-terminating proxy.
func (a *API) SetSecureCookies(secure bool) {
	a.secureCookies = secure
}

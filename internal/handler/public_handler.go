package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/moderation"
	"github.com/bongbari/internal/service"
	"github.com/gin-gonic/gin"
)

type previewRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type submitRequest struct {
	Name            string          `json:"name"`
	IsAnonymous     bool            `json:"isAnonymous"`
	Lang            string          `json:"lang"`
	Text            string          `json:"text"`
	ClientTimestamp *int64          `json:"clientTimestamp"`
	Verdict         json.RawMessage `json:"verdict"`
}

type chatRequest struct {
	Message string `json:"message"`
	Lang    string `json:"lang"`
}

// Healthz reports liveness.
func (a *API) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ModeratePreview classifies a draft without storing it.
func (a *API) ModeratePreview(c *gin.Context) {
	var req previewRequest
	if !bindJSON(c, &req, requestLanguage(c, "")) {
		return
	}
	language := requestLanguage(c, req.Lang)

	verdict, err := a.submissions.Preview(req.Text)
	if err != nil {
		a.respondServiceError(c, language, err)
		return
	}

	switch verdict.Status {
	case moderation.StatusSevereBlock:
		c.JSON(http.StatusOK, gin.H{
			"status":  verdict.Status,
			"message": locale.Message(language, locale.MsgSensitiveContent),
		})
	case moderation.StatusReviewSuggested:
		c.JSON(http.StatusOK, gin.H{
			"status":  verdict.Status,
			"reason":  verdict.Reason,
			"flags":   verdict.Flags,
			"message": locale.Message(language, locale.MsgReviewSuggested),
		})
	default:
		c.JSON(http.StatusOK, gin.H{"status": verdict.Status})
	}
}

// SubmitStory runs a story through the submission gateway.
func (a *API) SubmitStory(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req, requestLanguage(c, "")) {
		return
	}
	language := requestLanguage(c, req.Lang)

	input := service.StorySubmission{
		Text:          req.Text,
		AuthorName:    req.Name,
		IsAnonymous:   req.IsAnonymous,
		Language:      language,
		DeviceID:      deviceID(c),
		ClientVerdict: strings.TrimSpace(string(req.Verdict)),
	}
	if req.ClientTimestamp != nil {
		input.ClientTimestamp = strconv.FormatInt(*req.ClientTimestamp, 10)
	}

	result, err := a.submissions.Submit(c.Request.Context(), input)
	if err != nil {
		switch service.KindOf(err) {
		case service.KindRateLimited:
			typed := service.AsError(err)
			seconds := retryAfterSeconds(typed)
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":        service.SubmitRateLimited,
				"code":          service.KindRateLimited,
				"retryAfterSec": seconds,
				"message":       errorMessage(language, typed),
			})
		case service.KindContentBlocked:
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"status":  service.SubmitBlocked,
				"code":    service.KindContentBlocked,
				"message": locale.Message(language, result.MessageKey),
			})
		default:
			a.respondServiceError(c, language, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  result.Status,
		"postId":  result.PostID,
		"message": locale.Message(language, result.MessageKey),
	})
}

// ListStories returns a page of published stories.
func (a *API) ListStories(c *gin.Context) {
	language := requestLanguage(c, "")
	result, err := a.stories.ListPublished(c.Request.Context(), service.StoryFilter{
		Page:     parseIntQuery(c, "page", 1),
		PerPage:  parseIntQuery(c, "perPage", 0),
		Language: c.Query("lang"),
	})
	if err != nil {
		a.respondServiceError(c, language, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stories":    result.Stories,
		"page":       result.Page,
		"perPage":    result.PerPage,
		"totalPages": result.TotalPages,
		"total":      result.Total,
	})
}

// GetStory returns one published story with its rendered HTML.
func (a *API) GetStory(c *gin.Context) {
	story, err := a.stories.Get(c.Request.Context(), c.Param("postId"))
	if err != nil {
		a.respondServiceError(c, requestLanguage(c, ""), err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// Chatbot answers a chat message.
func (a *API) Chatbot(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req, requestLanguage(c, "")) {
		return
	}
	language := requestLanguage(c, req.Lang)

	reply, err := a.chat.Reply(c.Request.Context(), service.ChatRequest{Message: req.Message, Language: language})
	if err != nil {
		a.respondServiceError(c, language, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

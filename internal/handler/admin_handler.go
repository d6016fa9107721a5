package handler

import (
	"net/http"
	"strings"

	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/service"
	"github.com/gin-gonic/gin"
)

type moderationRequest struct {
	PostID  string   `json:"postId"`
	PostIDs []string `json:"postIds"`
	Text    *string  `json:"text"`
	Reason  string   `json:"reason"`
}

func (r moderationRequest) bulk() bool {
	return len(r.PostIDs) > 0
}

func (r moderationRequest) valid() bool {
	if r.bulk() {
		return r.Text == nil && len(service.UniquePostIDs(r.PostIDs)) > 0
	}
	return strings.TrimSpace(r.PostID) != ""
}

// ListPending lists queue entries oldest first.
func (a *API) ListPending(c *gin.Context) {
	posts, err := a.queue.ListPending(c.Request.Context(), service.PendingFilter{
		Search: c.Query("search"),
		Term:   c.Query("term"),
		Status: c.Query("status"),
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		a.respondServiceError(c, requestLanguage(c, ""), err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// PostAudit returns the moderation trail of one post.
func (a *API) PostAudit(c *gin.Context) {
	entries, err := a.queue.Audit(c.Request.Context(), c.Param("postId"))
	if err != nil {
		a.respondServiceError(c, requestLanguage(c, ""), err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Stats returns queue counters for the dashboard.
func (a *API) Stats(c *gin.Context) {
	counts, err := a.queue.Counts(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, requestLanguage(c, ""), err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Publish approves one post, optionally with edited text, or a batch.
func (a *API) Publish(c *gin.Context) {
	language := requestLanguage(c, "")
	req, ok := a.bindModeration(c, language)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if req.bulk() {
		a.respondBulk(c, language, a.queue.BulkPublish(ctx, req.PostIDs, adminActor(c)))
		return
	}

	story, err := a.queue.Publish(ctx, req.PostID, req.Text, adminActor(c))
	if err != nil {
		a.respondServiceError(c, language, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "story": story})
}

// Reject rejects one post or a batch with a shared reason.
func (a *API) Reject(c *gin.Context) {
	language := requestLanguage(c, "")
	req, ok := a.bindModeration(c, language)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if req.bulk() {
		// Every item shares the reason, so check it before touching the batch.
		if _, err := service.ValidateReason(req.Reason); err != nil {
			a.respondServiceError(c, language, err)
			return
		}
		a.respondBulk(c, language, a.queue.BulkReject(ctx, req.PostIDs, req.Reason, adminActor(c)))
		return
	}

	if err := a.queue.Reject(ctx, req.PostID, req.Reason, adminActor(c)); err != nil {
		a.respondServiceError(c, language, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete removes one queue entry or a batch.
func (a *API) Delete(c *gin.Context) {
	language := requestLanguage(c, "")
	req, ok := a.bindModeration(c, language)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if req.bulk() {
		a.respondBulk(c, language, a.queue.BulkDelete(ctx, req.PostIDs, adminActor(c)))
		return
	}

	if err := a.queue.Delete(ctx, req.PostID, adminActor(c)); err != nil {
		a.respondServiceError(c, language, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetSettings returns the runtime policy.
func (a *API) GetSettings(c *gin.Context) {
	policy, err := a.settings.GetPolicy(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, requestLanguage(c, ""), err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

// UpdateSettings changes the runtime policy.
func (a *API) UpdateSettings(c *gin.Context) {
	language := requestLanguage(c, "")
	var input service.PolicyInput
	if !bindJSON(c, &input, language) {
		return
	}

	policy, err := a.settings.UpdatePolicy(c.Request.Context(), input)
	if err != nil {
		a.respondServiceError(c, language, err)
		return
	}
	a.log.WithFields(requestFields(c)).Infof("policy updated auto_publish_clean=%t chatbot=%t", policy.AutoPublishClean, policy.ChatbotEnabled)
	c.JSON(http.StatusOK, policy)
}

func (a *API) bindModeration(c *gin.Context, language string) (moderationRequest, bool) {
	var req moderationRequest
	if !bindJSON(c, &req, language) {
		return req, false
	}
	if !req.valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  service.KindValidation,
			"error": locale.Message(language, locale.MsgInvalidRequest),
		})
		return req, false
	}
	return req, true
}

// respondBulk answers 200 when every item succeeded and 207 otherwise.
func (a *API) respondBulk(c *gin.Context, language string, result service.BulkResult) {
	failed := make([]gin.H, 0, len(result.Failed))
	for _, failure := range result.Failed {
		if failure.Err.Kind == service.KindStoreUnavailable {
			a.log.WithFields(requestFields(c)).Errorf("bulk item %s failed: %v", failure.PostID, failure.Err)
		}
		failed = append(failed, gin.H{
			"postId": failure.PostID,
			"code":   failure.Err.Kind,
			"error":  errorMessage(language, failure.Err),
		})
	}

	status := http.StatusOK
	if len(failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"succeeded": result.Succeeded, "failed": failed})
}

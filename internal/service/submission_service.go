package service

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/logger"
	"github.com/bongbari/internal/moderation"
	"github.com/bongbari/internal/ratelimit"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmitStatus is the outcome reported to the submitting reader.
type SubmitStatus string

const (
	SubmitPublished     SubmitStatus = "published"
	SubmitPendingReview SubmitStatus = "pending_review"
	SubmitBlocked       SubmitStatus = "blocked"
	SubmitRateLimited   SubmitStatus = "rate_limited"
)

// ActorSystem is recorded on audit rows written without an admin.
const ActorSystem = "system"

// SubmitResult describes what happened to a submission. MessageKey is a
// locale message key.
type SubmitResult struct {
	Status     SubmitStatus
	PostID     string
	MessageKey string
	Flags      []string
	RetryAfter time.Duration
}

// SubmissionService is the server-side gate every story passes through.
type SubmissionService struct {
	db         *gorm.DB
	classifier *moderation.Classifier
	limiter    *ratelimit.Limiter
	policy     PolicySource
	log        logger.Logger
	now        func() time.Time
	newID      func(time.Time) string
}

// NewSubmissionService wires the gateway.
func NewSubmissionService(gdb *gorm.DB, classifier *moderation.Classifier, limiter *ratelimit.Limiter, policy PolicySource, log logger.Logger) *SubmissionService {
	return &SubmissionService{
		db:         gdb,
		classifier: classifier,
		limiter:    limiter,
		policy:     policy,
		log:        logger.OrNop(log),
		now:        time.Now,
		newID:      NewPostID,
	}
}

// SetClock swaps the time source.
func (s *SubmissionService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetIDGenerator swaps the post id generator.
func (s *SubmissionService) SetIDGenerator(gen func(time.Time) string) {
	if gen != nil {
		s.newID = gen
	}
}

// NewPostID returns "<unix-ms base36>-<8 hex chars>".
func NewPostID(now time.Time) string {
	random := uuid.New()
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + hex.EncodeToString(random[:4])
}

// Preview classifies text after applying the submission length rules.
// Nothing is stored and the rate limit is not consulted.
func (s *SubmissionService) Preview(text string) (moderation.Verdict, error) {
	clean, err := validateStoryText(text)
	if err != nil {
		return moderation.Verdict{}, err
	}
	return s.classifier.Classify(clean), nil
}

// Submit validates, rate limits, classifies and stores a story, in that
// order. Each step short-circuits the rest.
func (s *SubmissionService) Submit(ctx context.Context, input StorySubmission) (SubmitResult, error) {
	valid, err := ValidateSubmission(input)
	if err != nil {
		return SubmitResult{}, err
	}

	log := s.log.WithFields(logger.Fields{"device": valid.DeviceID})
	if input.ClientVerdict != "" || input.ClientTimestamp != "" {
		log.Debugf("client hints verdict=%q timestamp=%q", input.ClientVerdict, input.ClientTimestamp)
	}

	decision, err := s.limiter.Allow(ctx, valid.DeviceID)
	if err != nil {
		if errors.Is(err, ratelimit.ErrInvalidDevice) {
			return SubmitResult{}, newError(KindValidation, locale.MsgInvalidRequest)
		}
		log.Errorf("rate limit check failed: %v", err)
		return SubmitResult{}, storeError("rate limit check", err)
	}
	if !decision.Allowed {
		log.Infof("submission rate limited for %s", decision.RetryAfter)
		return SubmitResult{Status: SubmitRateLimited, MessageKey: locale.MsgRateLimited, RetryAfter: decision.RetryAfter},
			&Error{Kind: KindRateLimited, Message: locale.MsgRateLimited, RetryAfter: decision.RetryAfter}
	}

	verdict := s.classifier.Classify(valid.Text)
	switch verdict.Status {
	case moderation.StatusSevereBlock:
		log.Infof("submission blocked, %d severe terms", len(verdict.Flags))
		return SubmitResult{Status: SubmitBlocked, MessageKey: locale.MsgSensitiveContent, Flags: verdict.Flags},
			newError(KindContentBlocked, locale.MsgSensitiveContent)
	case moderation.StatusReviewSuggested:
		return s.enqueue(ctx, log, valid, verdict.Flags)
	}

	policy, err := s.policy.GetPolicy(ctx)
	if err != nil {
		log.Errorf("load policy failed: %v", err)
		return SubmitResult{}, AsError(err)
	}
	if !policy.AutoPublishClean {
		return s.enqueue(ctx, log, valid, nil)
	}
	return s.publishDirect(ctx, log, valid)
}

func (s *SubmissionService) enqueue(ctx context.Context, log logger.Logger, valid ValidSubmission, flags []string) (SubmitResult, error) {
	now := s.now().UTC()
	post := db.PendingPost{
		PostID:           s.newID(now),
		Text:             valid.Text,
		Author:           valid.Author,
		Language:         valid.Language,
		DeviceID:         valid.DeviceID,
		FlaggedTerms:     db.StringList(flags),
		ModerationStatus: db.ModerationPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return tx.Create(&db.ModerationAudit{
			PostID:    post.PostID,
			Action:    db.AuditActionSubmit,
			Actor:     ActorSystem,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		log.Errorf("enqueue submission failed: %v", err)
		return SubmitResult{}, storeError("enqueue submission", err)
	}

	log.WithFields(logger.Fields{"post_id": post.PostID}).Infof("submission queued with %d flags", len(flags))
	return SubmitResult{Status: SubmitPendingReview, PostID: post.PostID, MessageKey: locale.MsgPendingReview, Flags: flags}, nil
}

func (s *SubmissionService) publishDirect(ctx context.Context, log logger.Logger, valid ValidSubmission) (SubmitResult, error) {
	now := s.now().UTC()
	story := db.Story{
		PostID:      s.newID(now),
		Text:        valid.Text,
		Author:      valid.Author,
		Language:    valid.Language,
		Source:      db.StorySourceAuto,
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&story).Error; err != nil {
			return err
		}
		return tx.Create(&db.ModerationAudit{
			PostID:    story.PostID,
			Action:    db.AuditActionPublish,
			Actor:     ActorSystem,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		log.Errorf("publish submission failed: %v", err)
		return SubmitResult{}, storeError("publish submission", err)
	}

	log.WithFields(logger.Fields{"post_id": story.PostID}).Infof("submission auto-published")
	return SubmitResult{Status: SubmitPublished, PostID: story.PostID, MessageKey: locale.MsgPublished}, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/logger"
	"gorm.io/gorm"
)

const (
	defaultPendingLimit = 50
	maxPendingLimit     = 200
	// StatusFilterAll lists queue entries in every state.
	StatusFilterAll = "all"
)

// PendingFilter narrows the moderation queue listing.
type PendingFilter struct {
	Search string
	Term   string
	Status string
	Limit  int
	Offset int
}

// QueueCounts summarizes the queue for the admin dashboard.
type QueueCounts struct {
	Pending   int64 `json:"pending"`
	Published int64 `json:"published"`
	Rejected  int64 `json:"rejected"`
	Stories   int64 `json:"stories"`
}

// BulkFailure is one item that failed inside a bulk action.
type BulkFailure struct {
	PostID string
	Err    *Error
}

// BulkResult aggregates a bulk action. Items are processed independently.
type BulkResult struct {
	Succeeded []string
	Failed    []BulkFailure
}

// QueueService drives admin review of pending submissions.
type QueueService struct {
	db  *gorm.DB
	log logger.Logger
	now func() time.Time
}

// NewQueueService creates a QueueService instance.
func NewQueueService(gdb *gorm.DB, log logger.Logger) *QueueService {
	return &QueueService{db: gdb, log: logger.OrNop(log), now: time.Now}
}

// SetClock swaps the time source.
func (s *QueueService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListPending returns queue entries oldest first. The default status is
// pending; "all" disables the status filter.
func (s *QueueService) ListPending(ctx context.Context, filter PendingFilter) ([]db.PendingPost, error) {
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	switch status {
	case "":
		status = db.ModerationPending
	case StatusFilterAll, db.ModerationPending, db.ModerationPublished, db.ModerationRejected:
	default:
		return nil, newError(KindValidation, locale.MsgInvalidRequest)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	if limit > maxPendingLimit {
		limit = maxPendingLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&db.PendingPost{})
	if status != StatusFilterAll {
		query = query.Where("moderation_status = ?", status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := containsPattern(search)
		query = query.Where(`(text LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\')`, like, like)
	}
	if term := strings.TrimSpace(filter.Term); term != "" {
		query = query.Where(`flagged_terms LIKE ? ESCAPE '\'`, containsPattern(term))
	}

	posts := make([]db.PendingPost, 0)
	if err := query.Order("created_at asc, id asc").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		return nil, storeError("list pending", err)
	}
	return posts, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches value literally anywhere in a LIKE column.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

// Get fetches one queue entry in any state.
func (s *QueueService) Get(ctx context.Context, postID string) (*db.PendingPost, error) {
	var post db.PendingPost
	if err := s.db.WithContext(ctx).Where("post_id = ?", strings.TrimSpace(postID)).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, locale.MsgNotFound)
		}
		return nil, storeError("load pending post", err)
	}
	return &post, nil
}

// Publish approves a pending entry and copies it into the public store.
// overrideText, when given, replaces the submitted text in the public copy
// and the audit row records the edit.
func (s *QueueService) Publish(ctx context.Context, postID string, overrideText *string, actor string) (*db.Story, error) {
	id := strings.TrimSpace(postID)

	var override string
	edited := false
	if overrideText != nil {
		clean, err := validateStoryText(*overrideText)
		if err != nil {
			return nil, err
		}
		override = clean
		edited = true
	}

	now := s.now().UTC()
	var story db.Story
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post db.PendingPost
		if err := tx.Where("post_id = ?", id).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, locale.MsgNotFound)
			}
			return err
		}

		result := tx.Model(&db.PendingPost{}).
			Where("post_id = ? AND moderation_status = ?", id, db.ModerationPending).
			Updates(map[string]interface{}{
				"moderation_status": db.ModerationPublished,
				"resolved_by":       actor,
				"resolved_at":       now,
				"updated_at":        now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return newError(KindAlreadyResolved, locale.MsgAlreadyResolved)
		}

		text := post.Text
		if edited {
			text = override
		}
		story = db.Story{
			PostID:      post.PostID,
			Text:        text,
			Author:      post.Author,
			Language:    post.Language,
			Edited:      edited && override != post.Text,
			Source:      db.StorySourceReview,
			PublishedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(&story).Error; err != nil {
			return err
		}

		return tx.Create(&db.ModerationAudit{
			PostID:    id,
			Action:    db.AuditActionPublish,
			Actor:     actor,
			Edited:    story.Edited,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, s.wrap("publish", id, err)
	}

	s.log.WithFields(logger.Fields{"post_id": id, "actor": actor}).Infof("post published edited=%t", story.Edited)
	return &story, nil
}

// Reject marks a pending entry rejected with a mandatory reason.
func (s *QueueService) Reject(ctx context.Context, postID, reason, actor string) error {
	id := strings.TrimSpace(postID)
	clean, err := ValidateReason(reason)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.PendingPost{}).
			Where("post_id = ? AND moderation_status = ?", id, db.ModerationPending).
			Updates(map[string]interface{}{
				"moderation_status": db.ModerationRejected,
				"rejection_reason":  clean,
				"resolved_by":       actor,
				"resolved_at":       now,
				"updated_at":        now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return resolveMiss(tx, id)
		}

		return tx.Create(&db.ModerationAudit{
			PostID:    id,
			Action:    db.AuditActionReject,
			Actor:     actor,
			Reason:    clean,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return s.wrap("reject", id, err)
	}

	s.log.WithFields(logger.Fields{"post_id": id, "actor": actor}).Infof("post rejected")
	return nil
}

// Delete removes a queue entry in any state. A story already published from
// it stays public.
func (s *QueueService) Delete(ctx context.Context, postID, actor string) error {
	id := strings.TrimSpace(postID)
	now := s.now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("post_id = ?", id).Delete(&db.PendingPost{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return newError(KindNotFound, locale.MsgNotFound)
		}

		return tx.Create(&db.ModerationAudit{
			PostID:    id,
			Action:    db.AuditActionDelete,
			Actor:     actor,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return s.wrap("delete", id, err)
	}

	s.log.WithFields(logger.Fields{"post_id": id, "actor": actor}).Infof("post deleted from queue")
	return nil
}

// BulkPublish publishes each id without edits.
func (s *QueueService) BulkPublish(ctx context.Context, postIDs []string, actor string) BulkResult {
	return s.bulk(postIDs, func(id string) error {
		_, err := s.Publish(ctx, id, nil, actor)
		return err
	})
}

// BulkReject rejects each id with the same reason. An invalid reason fails
// every item.
func (s *QueueService) BulkReject(ctx context.Context, postIDs []string, reason, actor string) BulkResult {
	return s.bulk(postIDs, func(id string) error {
		return s.Reject(ctx, id, reason, actor)
	})
}

// BulkDelete deletes each id.
func (s *QueueService) BulkDelete(ctx context.Context, postIDs []string, actor string) BulkResult {
	return s.bulk(postIDs, func(id string) error {
		return s.Delete(ctx, id, actor)
	})
}

func (s *QueueService) bulk(postIDs []string, op func(id string) error) BulkResult {
	result := BulkResult{Succeeded: make([]string, 0, len(postIDs)), Failed: make([]BulkFailure, 0)}
	for _, id := range UniquePostIDs(postIDs) {
		if err := op(id); err != nil {
			result.Failed = append(result.Failed, BulkFailure{PostID: id, Err: AsError(err)})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}

// UniquePostIDs trims ids and drops blanks and repeats, keeping order.
func UniquePostIDs(postIDs []string) []string {
	seen := make(map[string]struct{}, len(postIDs))
	out := make([]string, 0, len(postIDs))
	for _, raw := range postIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Audit returns the trail for postID, oldest first. The trail outlives a
// deleted queue entry.
func (s *QueueService) Audit(ctx context.Context, postID string) ([]db.ModerationAudit, error) {
	entries := make([]db.ModerationAudit, 0)
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", strings.TrimSpace(postID)).
		Order("created_at asc, id asc").
		Find(&entries).Error; err != nil {
		return nil, storeError("load audit", err)
	}
	if len(entries) == 0 {
		return nil, newError(KindNotFound, locale.MsgNotFound)
	}
	return entries, nil
}

// Counts tallies queue entries per state and public stories.
func (s *QueueService) Counts(ctx context.Context) (QueueCounts, error) {
	type row struct {
		ModerationStatus string
		Total            int64
	}

	var rows []row
	if err := s.db.WithContext(ctx).Model(&db.PendingPost{}).
		Select("moderation_status, COUNT(*) AS total").
		Group("moderation_status").
		Scan(&rows).Error; err != nil {
		return QueueCounts{}, storeError("count queue", err)
	}

	var counts QueueCounts
	for _, r := range rows {
		switch r.ModerationStatus {
		case db.ModerationPending:
			counts.Pending = r.Total
		case db.ModerationPublished:
			counts.Published = r.Total
		case db.ModerationRejected:
			counts.Rejected = r.Total
		}
	}

	if err := s.db.WithContext(ctx).Model(&db.Story{}).Count(&counts.Stories).Error; err != nil {
		return QueueCounts{}, storeError("count stories", err)
	}
	return counts, nil
}

// resolveMiss explains why a conditional update touched no row.
func resolveMiss(tx *gorm.DB, postID string) error {
	var count int64
	if err := tx.Model(&db.PendingPost{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return newError(KindNotFound, locale.MsgNotFound)
	}
	return newError(KindAlreadyResolved, locale.MsgAlreadyResolved)
}

func (s *QueueService) wrap(op, postID string, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	s.log.WithFields(logger.Fields{"post_id": postID}).Errorf("%s failed: %v", op, err)
	return storeError(op, err)
}

package service

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/locale"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"
)

const (
	defaultStoriesPerPage = 10
	maxStoriesPerPage     = 50
)

// StoryFilter selects a page of public stories.
type StoryFilter struct {
	Page     int
	PerPage  int
	Language string
}

// RenderedStory is a public story with its sanitized HTML body.
type RenderedStory struct {
	db.Story
	HTML string `json:"html"`
}

// StoryListResult is one page of public stories, newest first.
type StoryListResult struct {
	Stories    []RenderedStory
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// StoryService reads the public content store. It never touches the
// moderation queue.
type StoryService struct {
	db        *gorm.DB
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewStoryService creates a StoryService instance.
func NewStoryService(gdb *gorm.DB) *StoryService {
	return &StoryService{
		db: gdb,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// ListPublished returns a page of stories.
func (s *StoryService) ListPublished(ctx context.Context, filter StoryFilter) (*StoryListResult, error) {
	result := &StoryListResult{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = defaultStoriesPerPage
	}
	if result.PerPage > maxStoriesPerPage {
		result.PerPage = maxStoriesPerPage
	}

	lang := locale.NormalizeLanguage(filter.Language)
	scoped := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&db.Story{})
		if lang != "" {
			query = query.Where("language = ?", lang)
		}
		return query
	}

	if err := scoped().Count(&result.Total).Error; err != nil {
		return nil, storeError("count stories", err)
	}

	var stories []db.Story
	offset := (result.Page - 1) * result.PerPage
	if err := scoped().Order("published_at desc, id desc").Limit(result.PerPage).Offset(offset).Find(&stories).Error; err != nil {
		return nil, storeError("list stories", err)
	}

	result.Stories = make([]RenderedStory, 0, len(stories))
	for _, story := range stories {
		result.Stories = append(result.Stories, s.Render(story))
	}

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}
	return result, nil
}

// Get fetches one public story.
func (s *StoryService) Get(ctx context.Context, postID string) (*RenderedStory, error) {
	var story db.Story
	if err := s.db.WithContext(ctx).Where("post_id = ?", strings.TrimSpace(postID)).First(&story).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, locale.MsgNotFound)
		}
		return nil, storeError("load story", err)
	}
	rendered := s.Render(story)
	return &rendered, nil
}

// Render converts the story text to sanitized HTML. Conversion failures
// fall back to the sanitized raw text.
func (s *StoryService) Render(story db.Story) RenderedStory {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(story.Text), &buf); err != nil {
		return RenderedStory{Story: story, HTML: s.sanitizer.Sanitize(strings.ReplaceAll(story.Text, "\n", "<br>"))}
	}
	return RenderedStory{Story: story, HTML: s.sanitizer.Sanitize(buf.String())}
}

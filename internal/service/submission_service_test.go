package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/moderation"
	"github.com/bongbari/internal/ratelimit"
)

var generousLimit = ratelimit.Policy{MaxSubmissions: 100, Window: time.Hour, Cooldown: time.Hour}

func countRows(t *testing.T, svc *SubmissionService, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := svc.db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestSubmitCleanStoryAutoPublishes(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newTestSubmissionService(t, gdb, Policy{AutoPublishClean: true}, generousLimit)

	result, err := svc.Submit(context.Background(), StorySubmission{
		Text:       "আজ বাজারে গিয়ে ইলিশের দাম শুনে ফিরে এলাম।",
		AuthorName: "  Rina ",
		DeviceID:   "device-1",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Status != SubmitPublished {
		t.Fatalf("expected published, got %s", result.Status)
	}
	if result.MessageKey != locale.MsgPublished {
		t.Fatalf("unexpected message key %s", result.MessageKey)
	}

	var story db.Story
	if err := gdb.Where("post_id = ?", result.PostID).First(&story).Error; err != nil {
		t.Fatalf("story not stored: %v", err)
	}
	if story.Author == nil || *story.Author != "Rina" {
		t.Fatalf("expected trimmed author, got %v", story.Author)
	}
	if story.Language != locale.LanguageBengali || story.Source != db.StorySourceAuto {
		t.Fatalf("unexpected story fields: %+v", story)
	}
	if got := countRows(t, svc, &db.PendingPost{}); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}
}

func TestSubmitCleanStoryQueuedWhenAutoPublishOff(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newTestSubmissionService(t, gdb, Policy{AutoPublishClean: false}, generousLimit)

	result, err := svc.Submit(context.Background(), StorySubmission{Text: "A calm story.", Language: "en", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Status != SubmitPendingReview {
		t.Fatalf("expected pending_review, got %s", result.Status)
	}

	var post db.PendingPost
	if err := gdb.Where("post_id = ?", result.PostID).First(&post).Error; err != nil {
		t.Fatalf("pending post not stored: %v", err)
	}
	if len(post.FlaggedTerms) != 0 || post.Author != nil || post.Language != locale.LanguageEnglish {
		t.Fatalf("unexpected pending post: %+v", post)
	}
	if got := countRows(t, svc, &db.Story{}); got != 0 {
		t.Fatalf("expected no public story, got %d", got)
	}
}

func TestSubmitCautionStoryGoesToQueueWithFlags(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newTestSubmissionService(t, gdb, Policy{AutoPublishClean: true}, generousLimit)

	result, err := svc.Submit(context.Background(), StorySubmission{Text: "Damn, the rickshaw left without me.", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Status != SubmitPendingReview {
		t.Fatalf("expected pending_review, got %s", result.Status)
	}
	if len(result.Flags) != 1 || result.Flags[0] != "damn" {
		t.Fatalf("unexpected flags %v", result.Flags)
	}

	queue := NewQueueService(gdb, nil)
	pending, err := queue.ListPending(context.Background(), PendingFilter{})
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].PostID != result.PostID {
		t.Fatalf("expected the post in the queue, got %+v", pending)
	}
	if len(pending[0].FlaggedTerms) != 1 || pending[0].FlaggedTerms[0] != "damn" {
		t.Fatalf("flagged terms not stored: %v", pending[0].FlaggedTerms)
	}
	if pending[0].ModerationStatus != db.ModerationPending || pending[0].RejectionReason != nil {
		t.Fatalf("unexpected state %+v", pending[0])
	}

	audit, err := queue.Audit(context.Background(), result.PostID)
	if err != nil || len(audit) != 1 || audit[0].Action != db.AuditActionSubmit {
		t.Fatalf("expected submit audit row, got %+v (%v)", audit, err)
	}
}

func TestSubmitSevereStoryIsBlockedAndNeverStored(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newTestSubmissionService(t, gdb, Policy{AutoPublishClean: true}, generousLimit)

	result, err := svc.Submit(context.Background(), StorySubmission{Text: "damn, I will kill you", DeviceID: "device-1"})
	requireKind(t, err, KindContentBlocked)
	if result.Status != SubmitBlocked || result.MessageKey != locale.MsgSensitiveContent {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.PostID != "" {
		t.Fatalf("blocked submission must not get an id")
	}
	if got := countRows(t, svc, &db.PendingPost{}); got != 0 {
		t.Fatalf("blocked story queued")
	}
	if got := countRows(t, svc, &db.Story{}); got != 0 {
		t.Fatalf("blocked story published")
	}
}

func TestSubmitLengthBoundary(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newTestSubmissionService(t, gdb, Policy{AutoPublishClean: true}, ratelimit.Policy{MaxSubmissions: 1, Window: time.Hour, Cooldown: time.Hour})

	tooLong := "kill you " + strings.Repeat("ক", 992)
	if _, err := svc.Submit(context.Background(), StorySubmission{Text: tooLong, DeviceID: "device-1"}); err == nil {
		t.Fatalf("expected validation error")
	} else {
		requireKind(t, err, KindValidation)
	}

	exact := strings.Repeat("ক", MaxStoryRunes)
	result, err := svc.Submit(context.Background(), StorySubmission{Text: exact, DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("1000 characters must be accepted and not rate limited: %v", err)
	}
	if result.Status != SubmitPublished {
		t.Fatalf("expected published, got %s", result.Status)
	}
}

func TestSubmitRateLimitsAfterThreshold(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newTestSubmissionService(t, gdb, Policy{AutoPublishClean: true}, ratelimit.Policy{MaxSubmissions: 3, Window: time.Hour, Cooldown: 6 * time.Hour})

	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(context.Background(), StorySubmission{Text: "a short story", DeviceID: "device-1"}); err != nil {
			t.Fatalf("submission %d failed: %v", i+1, err)
		}
	}

	result, err := svc.Submit(context.Background(), StorySubmission{Text: "a short story", DeviceID: "device-1"})
	requireKind(t, err, KindRateLimited)
	if result.Status != SubmitRateLimited {
		t.Fatalf("expected rate_limited status, got %s", result.Status)
	}
	typed := AsError(err)
	if typed.RetryAfter <= 0 || typed.RetryAfter != result.RetryAfter {
		t.Fatalf("expected positive retry after, got %s", typed.RetryAfter)
	}
	if got := countRows(t, svc, &db.Story{}); got != 3 {
		t.Fatalf("expected 3 stories, got %d", got)
	}

	if _, err := svc.Submit(context.Background(), StorySubmission{Text: "a short story", DeviceID: "device-2"}); err != nil {
		t.Fatalf("other devices must not be limited: %v", err)
	}
}

func TestValidateSubmission(t *testing.T) {
	cases := []struct {
		name    string
		input   StorySubmission
		kind    ErrorKind
		text    string
		author  string
		anon    bool
		lang    string
		wantErr bool
	}{
		{name: "empty", input: StorySubmission{Text: "   ", DeviceID: "d"}, wantErr: true, kind: KindValidation},
		{name: "markup only", input: StorySubmission{Text: "<b></b>", DeviceID: "d"}, wantErr: true, kind: KindValidation},
		{name: "author too long", input: StorySubmission{Text: "hi", AuthorName: strings.Repeat("n", 61), DeviceID: "d"}, wantErr: true, kind: KindValidation},
		{name: "missing device", input: StorySubmission{Text: "hi"}, wantErr: true, kind: KindValidation},
		{name: "author at limit", input: StorySubmission{Text: "hi", AuthorName: strings.Repeat("ন", 60), DeviceID: "d"}, text: "hi", author: strings.Repeat("ন", 60), lang: "bn"},
		{name: "anonymous derived", input: StorySubmission{Text: "hi", IsAnonymous: false, DeviceID: "d", Language: "EN"}, text: "hi", anon: true, lang: "en"},
		{name: "strips tags", input: StorySubmission{Text: "<script>alert(1)</script><b>hello</b> world", AuthorName: "<i>Rumi</i>", DeviceID: "d"}, text: "hello world", author: "Rumi", lang: "bn"},
		{name: "keeps comparison", input: StorySubmission{Text: "3 < 5 & 6 > 2", DeviceID: "d"}, text: "3 < 5 & 6 > 2", anon: true, lang: "bn"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateSubmission(tc.input)
			if tc.wantErr {
				requireKind(t, err, tc.kind)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Text != tc.text {
				t.Fatalf("text: want %q, got %q", tc.text, got.Text)
			}
			if tc.author == "" {
				if got.Author != nil {
					t.Fatalf("expected no author, got %q", *got.Author)
				}
			} else if got.Author == nil || *got.Author != tc.author {
				t.Fatalf("author: want %q, got %v", tc.author, got.Author)
			}
			if got.IsAnonymous != (tc.author == "") {
				t.Fatalf("isAnonymous must follow the author name")
			}
			if got.Language != tc.lang {
				t.Fatalf("language: want %s, got %s", tc.lang, got.Language)
			}
		})
	}
}

func TestPreviewMatchesSubmitClassification(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newTestSubmissionService(t, gdb, Policy{AutoPublishClean: true}, generousLimit)

	verdict, err := svc.Preview("  politics at the tea stall  ")
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if verdict.Status != moderation.StatusReviewSuggested {
		t.Fatalf("expected review_suggested, got %s", verdict.Status)
	}

	if _, err := svc.Preview(""); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error for empty preview, got %v", err)
	}
	if _, err := svc.Preview(strings.Repeat("a", MaxStoryRunes+1)); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error for long preview, got %v", err)
	}
	if got := countRows(t, svc, &db.PendingPost{}); got != 0 {
		t.Fatalf("preview must not store anything")
	}
}

func TestSubmitUsesInjectedClockAndIDs(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newTestSubmissionService(t, gdb, Policy{AutoPublishClean: false}, generousLimit)
	fixed := time.Date(2025, 4, 14, 6, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return fixed })
	svc.SetIDGenerator(func(time.Time) string { return "fixed-id" })

	result, err := svc.Submit(context.Background(), StorySubmission{Text: "Pohela Boishakh story", DeviceID: "device-1", ClientTimestamp: "1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.PostID != "fixed-id" {
		t.Fatalf("expected injected id, got %s", result.PostID)
	}

	var post db.PendingPost
	if err := gdb.Where("post_id = ?", "fixed-id").First(&post).Error; err != nil {
		t.Fatalf("load post: %v", err)
	}
	if !post.CreatedAt.Equal(fixed) {
		t.Fatalf("createdAt must come from the server clock, got %s", post.CreatedAt)
	}
}

func TestNewPostIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-z]+-[0-9a-f]{8}$`)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	first := NewPostID(now)
	second := NewPostID(now)
	if !pattern.MatchString(first) {
		t.Fatalf("unexpected id format %q", first)
	}
	if first == second {
		t.Fatalf("ids must be unique, got %q twice", first)
	}
}

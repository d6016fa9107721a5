package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bongbari/internal/config"
	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/moderation"
	"github.com/bongbari/internal/ratelimit"
	"github.com/bongbari/internal/service"
)

type sampleStory struct {
	author string
	lang   string
	text   string
}

// Clean samples auto-publish; the flagged ones land in the review queue.
var sampleStories = []sampleStory{
	{author: "Rina", lang: "bn", text: "আজ বাজারে গিয়ে ইলিশের দাম শুনে সোজা বাড়ি ফিরে এলাম।"},
	{author: "", lang: "bn", text: "মা বলল এক কাপ চা, বাবা বলল দুই কাপ, শেষে পুরো কেটলি শেষ।"},
	{author: "Tapas", lang: "en", text: "My uncle explained **cricket** to the neighbour's cat for an hour."},
	{author: "Mou", lang: "en", text: "The load-shedding started right when the match went to a super over."},
	{author: "", lang: "en", text: "Damn, the rickshaw-wala knew a shortcut nobody else did."},
	{author: "Bappa", lang: "bn", text: "চায়ের দোকানে আবার রাজনীতি নিয়ে তর্ক, চা ঠান্ডা।"},
}

// seedStories pushes every sample through the submission gateway so the
// stored rows look like real traffic.
func seedStories(ctx context.Context, svc *service.SubmissionService) (published, pending int, err error) {
	for i, sample := range sampleStories {
		result, err := svc.Submit(ctx, service.StorySubmission{
			Text:        sample.text,
			AuthorName:  sample.author,
			IsAnonymous: sample.author == "",
			Language:    sample.lang,
			DeviceID:    fmt.Sprintf("seed-device-%d", i),
		})
		if err != nil {
			return published, pending, fmt.Errorf("seed story %d: %w", i, err)
		}
		switch result.Status {
		case service.SubmitPublished:
			published++
		case service.SubmitPendingReview:
			pending++
		}
	}
	return published, pending, nil
}

func main() {
	cfg := config.Load()
	if err := db.Init(db.Options{URL: cfg.DatabaseURL, Path: cfg.DatabasePath, Silent: true}); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Policy{MaxSubmissions: 100, Window: time.Hour, Cooldown: time.Minute})
	settings := service.NewSettingService(db.DB, service.Policy{AutoPublishClean: true})
	svc := service.NewSubmissionService(db.DB, moderation.NewClassifier(moderation.DefaultLexicon()), limiter, settings, nil)

	published, pending, err := seedStories(context.Background(), svc)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	fmt.Printf("seeded %d published stories and %d pending reviews\n", published, pending)
}

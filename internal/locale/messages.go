package locale

import (
	"fmt"
	"time"
)

// Message keys for user-facing text.
const (
	MsgTextRequired     = "text_required"
	MsgTextTooLong      = "text_too_long"
	MsgAuthorTooLong    = "author_too_long"
	MsgReasonRequired   = "reason_required"
	MsgInvalidRequest   = "invalid_request"
	MsgSensitiveContent = "sensitive_content"
	MsgReviewSuggested  = "review_suggested"
	MsgRateLimited      = "rate_limited"
	MsgTryAgain         = "try_again"
	MsgPublished        = "published"
	MsgPendingReview    = "pending_review"
	MsgUnauthorized     = "unauthorized"
	MsgNotFound         = "not_found"
	MsgAlreadyResolved  = "already_resolved"
)

type translation struct {
	english string
	bengali string
}

var catalog = map[string]translation{
	MsgTextRequired:     {"Please write your story first.", "আগে আপনার গল্পটা লিখুন।"},
	MsgTextTooLong:      {"Stories can be at most %d characters.", "গল্প সর্বোচ্চ %d অক্ষরের হতে পারে।"},
	MsgAuthorTooLong:    {"Names can be at most %d characters.", "নাম সর্বোচ্চ %d অক্ষরের হতে পারে।"},
	MsgReasonRequired:   {"A rejection reason is required.", "বাতিলের কারণ লিখতে হবে।"},
	MsgInvalidRequest:   {"The request could not be read.", "অনুরোধটি বোঝা যায়নি।"},
	MsgSensitiveContent: {"This story contains sensitive content and cannot be posted. Please rewrite it.", "এই গল্পে সংবেদনশীল কন্টেন্ট আছে, তাই পোস্ট করা যাবে না। দয়া করে আবার লিখুন।"},
	MsgReviewSuggested:  {"Some words may need a moderator's look. Submit anyway or edit first?", "কিছু শব্দ মডারেটরকে দেখাতে হতে পারে। এভাবেই জমা দেবেন, নাকি আগে একটু বদলাবেন?"},
	MsgRateLimited:      {"Too many stories, slow down! Try again in %s.", "অনেক গল্প হয়ে গেছে, একটু থামুন! %s পরে আবার চেষ্টা করুন।"},
	MsgTryAgain:         {"Something went wrong. Please try again.", "কিছু একটা গোলমাল হয়েছে। আবার চেষ্টা করুন।"},
	MsgPublished:        {"Your story is live!", "আপনার গল্প প্রকাশিত হয়েছে!"},
	MsgPendingReview:    {"Thanks! Your story will appear after a quick review.", "ধন্যবাদ! একটু দেখে নিয়ে আপনার গল্প প্রকাশ করা হবে।"},
	MsgUnauthorized:     {"Please sign in as an admin.", "অ্যাডমিন হিসেবে লগইন করুন।"},
	MsgNotFound:         {"Post not found.", "পোস্টটি পাওয়া যায়নি।"},
	MsgAlreadyResolved:  {"This post has already been resolved.", "এই পোস্টের সিদ্ধান্ত আগেই হয়ে গেছে।"},
}

// Message renders the catalog entry for key in language. Unknown keys are
// returned verbatim.
func Message(language, key string, args ...interface{}) string {
	entry, ok := catalog[key]
	if !ok {
		return key
	}
	text := Pick(language, entry.english, entry.bengali)
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// FormatWait renders a countdown such as "5h 59m" or "৫ ঘণ্টা ৫৯ মিনিট".
func FormatWait(language string, d time.Duration) string {
	if d < time.Second {
		d = time.Second
	}
	total := int64((d + time.Second - 1) / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	english := NormalizeLanguage(language) == LanguageEnglish
	switch {
	case hours > 0:
		if english {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%s ঘণ্টা %s মিনিট", BengaliDigits(hours), BengaliDigits(minutes))
	case minutes > 0:
		if english {
			return fmt.Sprintf("%dm %ds", minutes, seconds)
		}
		return fmt.Sprintf("%s মিনিট %s সেকেন্ড", BengaliDigits(minutes), BengaliDigits(seconds))
	default:
		if english {
			return fmt.Sprintf("%ds", seconds)
		}
		return fmt.Sprintf("%s সেকেন্ড", BengaliDigits(seconds))
	}
}

var bengaliDigits = []rune("০১২৩৪৫৬৭৮৯")

// BengaliDigits formats n with Bengali numerals.
func BengaliDigits(n int64) string {
	raw := fmt.Sprintf("%d", n)
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			out = append(out, bengaliDigits[r-'0'])
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

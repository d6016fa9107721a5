package service

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/bongbari/internal/locale"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// MaxStoryRunes bounds a story's length in characters.
	MaxStoryRunes = 1000
	// MaxAuthorRunes bounds a display name.
	MaxAuthorRunes = 60
	// MaxReasonRunes bounds a rejection reason.
	MaxReasonRunes = 500
	// MaxDeviceIDLength bounds the device identifier.
	MaxDeviceIDLength = 128
)

var plainText = bluemonday.StrictPolicy()

// StorySubmission is what a reader sends when submitting a story.
type StorySubmission struct {
	Text            string
	AuthorName      string
	IsAnonymous     bool
	Language        string
	DeviceID        string
	ClientTimestamp string
	// ClientVerdict is whatever the client believed the preview said. It is
	// only logged; the server always classifies again.
	ClientVerdict string
}

// ValidSubmission is a normalized submission ready for rate limiting and
// classification.
type ValidSubmission struct {
	Text        string
	Author      *string
	IsAnonymous bool
	Language    string
	DeviceID    string
}

// ValidateSubmission trims, strips markup and checks the length limits.
// IsAnonymous is derived from the name, not trusted from the client.
func ValidateSubmission(input StorySubmission) (ValidSubmission, error) {
	text, err := validateStoryText(input.Text)
	if err != nil {
		return ValidSubmission{}, err
	}

	name := stripMarkup(input.AuthorName)
	if utf8.RuneCountInString(name) > MaxAuthorRunes {
		return ValidSubmission{}, newError(KindValidation, locale.MsgAuthorTooLong, MaxAuthorRunes)
	}

	deviceID := strings.TrimSpace(input.DeviceID)
	if deviceID == "" || len(deviceID) > MaxDeviceIDLength {
		return ValidSubmission{}, newError(KindValidation, locale.MsgInvalidRequest)
	}

	out := ValidSubmission{
		Text:        text,
		IsAnonymous: name == "",
		Language:    locale.OrDefault(input.Language),
		DeviceID:    deviceID,
	}
	if name != "" {
		out.Author = &name
	}
	return out, nil
}

// validateStoryText applies the shared story rules used by submission,
// preview and admin edits.
func validateStoryText(raw string) (string, error) {
	text := stripMarkup(raw)
	if text == "" {
		return "", newError(KindValidation, locale.MsgTextRequired)
	}
	if utf8.RuneCountInString(text) > MaxStoryRunes {
		return "", newError(KindValidation, locale.MsgTextTooLong, MaxStoryRunes)
	}
	return text, nil
}

// ValidateReason strips markup from a reject reason and checks it is
// present and within MaxReasonRunes.
func ValidateReason(raw string) (string, error) {
	reason := stripMarkup(raw)
	if reason == "" {
		return "", newError(KindValidation, locale.MsgReasonRequired)
	}
	if utf8.RuneCountInString(reason) > MaxReasonRunes {
		return "", newError(KindValidation, locale.MsgTextTooLong, MaxReasonRunes)
	}
	return reason, nil
}

// stripMarkup removes every HTML tag and decodes the entities the strict
// policy leaves behind, so the stored value is plain text.
func stripMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.ContainsAny(trimmed, "<>&") {
		return trimmed
	}
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(trimmed)))
}

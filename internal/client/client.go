// Package client talks to the story API the way the web form does: local
// checks first, then a moderation preview, then the actual submission.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxStoryRunes = 1000
	MaxNameRunes  = 60

	deviceHeader     = "X-Device-Id"
	deviceCookieName = "bb_device_id"
	maxResponseBytes = 1 << 20
	// maxEditRounds bounds how often Confirm may hand back edited text.
	maxEditRounds = 5
)

// Preview statuses, as returned by /moderate-preview.
const (
	VerdictOK              = "ok"
	VerdictReviewSuggested = "review_suggested"
	VerdictSevereBlock     = "severe_block"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Verdict is the preview classification.
type Verdict struct {
	Status  string   `json:"status"`
	Reason  string   `json:"reason,omitempty"`
	Flags   []string `json:"flags,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Draft is what the user typed.
type Draft struct {
	Name        string
	IsAnonymous bool
	Lang        string
	Text        string
}

// Decision is the user's answer to a review suggestion. A Text different
// from the one shown is treated as an edit and checked again.
type Decision struct {
	Proceed bool
	Text    string
}

// Confirm asks the user what to do with a review_suggested verdict.
type Confirm func(verdict Verdict, text string) (Decision, error)

// SubmitOutcome is a successful submission.
type SubmitOutcome struct {
	Status  string `json:"status"`
	PostID  string `json:"postId"`
	Message string `json:"message"`
}

// Client calls the public story endpoints.
type Client struct {
	baseURL string
	http    httpDoer
	devices DeviceStore
	lang    string
	now     func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(doer httpDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithDeviceStore sets where the device id lives. Without it the id only
// lasts for the Client's lifetime.
func WithDeviceStore(store DeviceStore) Option {
	return func(c *Client) {
		if store != nil {
			c.devices = store
		}
	}
}

// WithLanguage sets the default language for drafts without one.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.lang = strings.TrimSpace(lang)
	}
}

// New builds a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		devices: &memoryDeviceStore{},
		lang:    "bn",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeviceID returns the id sent with every request.
func (c *Client) DeviceID() (string, error) {
	return ensureDeviceID(c.devices)
}

// ValidateDraft trims the draft and enforces the length limits the server
// applies.
func ValidateDraft(d Draft) (Draft, error) {
	d.Text = strings.TrimSpace(d.Text)
	d.Name = strings.TrimSpace(d.Name)
	if d.Text == "" {
		return d, ErrEmptyText
	}
	if utf8.RuneCountInString(d.Text) > MaxStoryRunes {
		return d, ErrTextTooLong
	}
	if utf8.RuneCountInString(d.Name) > MaxNameRunes {
		return d, ErrNameTooLong
	}
	if d.Name == "" {
		d.IsAnonymous = true
	}
	return d, nil
}

// Preview asks the server to classify text without storing it.
func (c *Client) Preview(ctx context.Context, text string) (Verdict, error) {
	var verdict Verdict
	resp, err := c.postJSON(ctx, "/moderate-preview", map[string]string{"text": text, "lang": c.lang})
	if err != nil {
		return verdict, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return verdict, fmt.Errorf("read preview response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return verdict, decodeAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &verdict); err != nil {
		return verdict, fmt.Errorf("decode preview response: %w", err)
	}
	return verdict, nil
}

// Submit validates and previews the draft, consults confirm on review
// suggestions, and then submits. A severe preview never reaches the
// submit endpoint.
func (c *Client) Submit(ctx context.Context, draft Draft, confirm Confirm) (SubmitOutcome, error) {
	if draft.Lang == "" {
		draft.Lang = c.lang
	}

	var verdict Verdict
	for round := 0; ; round++ {
		valid, err := ValidateDraft(draft)
		if err != nil {
			return SubmitOutcome{}, err
		}
		draft = valid

		verdict, err = c.Preview(ctx, draft.Text)
		if err != nil {
			return SubmitOutcome{}, err
		}
		if verdict.Status == VerdictSevereBlock {
			return SubmitOutcome{}, &ContentBlockedError{Message: verdict.Message}
		}
		if verdict.Status != VerdictReviewSuggested || confirm == nil {
			break
		}

		decision, err := confirm(verdict, draft.Text)
		if err != nil {
			return SubmitOutcome{}, err
		}
		if !decision.Proceed {
			return SubmitOutcome{}, ErrCancelled
		}
		edited := strings.TrimSpace(decision.Text)
		if edited == "" || edited == draft.Text {
			break
		}
		if round >= maxEditRounds {
			return SubmitOutcome{}, ErrCancelled
		}
		draft.Text = edited
	}

	return c.send(ctx, draft, verdict)
}

func (c *Client) send(ctx context.Context, draft Draft, verdict Verdict) (SubmitOutcome, error) {
	var outcome SubmitOutcome
	resp, err := c.postJSON(ctx, "/submit-story", map[string]interface{}{
		"name":            draft.Name,
		"isAnonymous":     draft.IsAnonymous,
		"lang":            draft.Lang,
		"text":            draft.Text,
		"clientTimestamp": c.now().UnixMilli(),
		"verdict":         verdict,
	})
	if err != nil {
		return outcome, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return outcome, fmt.Errorf("read submit response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.Unmarshal(body, &outcome); err != nil {
			return outcome, fmt.Errorf("decode submit response: %w", err)
		}
		return outcome, nil
	case http.StatusTooManyRequests:
		return outcome, decodeRateLimit(resp.Header.Get("Retry-After"), body)
	case http.StatusUnprocessableEntity:
		var blocked struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &blocked)
		return outcome, &ContentBlockedError{Message: blocked.Message}
	default:
		return outcome, decodeAPIError(resp.StatusCode, body)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	deviceID, err := c.DeviceID()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.lang)
	req.Header.Set(deviceHeader, deviceID)
	req.AddCookie(&http.Cookie{Name: deviceCookieName, Value: deviceID})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", path, err)
	}
	return resp, nil
}

func decodeRateLimit(header string, body []byte) error {
	var payload struct {
		RetryAfterSec int64  `json:"retryAfterSec"`
		Message       string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	seconds := payload.RetryAfterSec
	if seconds <= 0 {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(header), 10, 64); err == nil {
			seconds = parsed
		}
	}
	if seconds <= 0 {
		seconds = 1
	}
	return &RateLimitError{RetryAfter: time.Duration(seconds) * time.Second, Message: payload.Message}
}

func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: status, Code: payload.Code, Message: payload.Error}
}

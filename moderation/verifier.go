package moderation

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/mojocn/base64Captcha"
)

// ChallengeVerifier decides whether a submitted human-verification token is acceptable.
type ChallengeVerifier interface {
	Verify(ctx context.Context, token string) bool
}

const placeholderMinTokenLen = 10

// PlaceholderVerifier accepts the sentinel token or any token longer than ten characters.
type PlaceholderVerifier struct {
	Sentinel string
}

// Verify compares the token as sent. Length is counted in characters, not bytes.
func (p PlaceholderVerifier) Verify(_ context.Context, token string) bool {
	if token == "" {
		return false
	}
	if p.Sentinel != "" && token == p.Sentinel {
		return true
	}
	return utf8.RuneCountInString(token) > placeholderMinTokenLen
}

// CaptchaVerifier issues digit captchas and checks tokens of the form "<id>:<answer>".
// Answers are consumed on first verification.
type CaptchaVerifier struct {
	store  base64Captcha.Store
	driver base64Captcha.Driver
}

// NewCaptchaVerifier uses store to keep answers, falling back to the in-process store.
func NewCaptchaVerifier(store base64Captcha.Store) *CaptchaVerifier {
	if store == nil {
		store = base64Captcha.DefaultMemStore
	}
	return &CaptchaVerifier{
		store:  store,
		driver: base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80),
	}
}

// Generate creates a captcha and returns its id and a base64 data URI image.
func (v *CaptchaVerifier) Generate() (string, string, error) {
	c := base64Captcha.NewCaptcha(v.driver, v.store)
	id, b64, _, err := c.Generate()
	return id, b64, err
}

func (v *CaptchaVerifier) Verify(_ context.Context, token string) bool {
	id, answer, ok := strings.Cut(strings.TrimSpace(token), ":")
	if !ok {
		return false
	}
	id, answer = strings.TrimSpace(id), strings.TrimSpace(answer)
	if id == "" || answer == "" {
		return false
	}
	return v.store.Verify(id, answer, true)
}

package models

import "time"

// Form types accepted by the submission pipeline.
const (
	FormContact      = "contact"
	FormSample       = "sample"
	FormReview       = "review"
	FormReviewAction = "review_action"
	FormChat         = "chat"
)

// RateLimitRecord is the fixed-window counter kept per identity.
type RateLimitRecord struct {
	IdentityKey     string    `json:"identityKey"`
	Count           int64     `json:"count"`
	WindowResetTime time.Time `json:"windowResetTime"`
}

// UploadedFile describes a single upload. It only lives for the duration of validation and forwarding.
type UploadedFile struct {
	Name      string `json:"name"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
	Content   []byte `json:"-"`
}

// ContactSubmission is a sanitized contact or sample request ready to be forwarded.
type ContactSubmission struct {
	Form        string         `json:"form"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone,omitempty"`
	Message     string         `json:"message"`
	Postcode    string         `json:"postcode,omitempty"`
	Address     string         `json:"address,omitempty"`
	Service     string         `json:"service,omitempty"`
	Product     string         `json:"product,omitempty"`
	ChatSummary string         `json:"chatSummary,omitempty"`
	Images      []UploadedFile `json:"images,omitempty"`
	ClientIP    string         `json:"clientIp"`
	ReceivedAt  time.Time      `json:"receivedAt"`
}

// ChatTurn is one message of a chat widget conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

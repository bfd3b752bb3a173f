// Package moderation holds the cheap content heuristics applied to reviews before they are stored.
package moderation

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/oakhaven/storefront/apperrors"
)

// Lists are the keyword blocklists. They are loaded from JSON and may be swapped at runtime.
type Lists struct {
	SpamKeywords []string `json:"spamKeywords"`
	Profanity    []string `json:"profanity"`
}

// DefaultLists is used when no lists file is configured.
func DefaultLists() Lists {
	return Lists{
		SpamKeywords: []string{
			"buy now", "click here", "free money", "act now", "limited time offer",
			"make money fast", "work from home", "earn cash", "100% free", "risk free",
			"viagra", "casino", "crypto giveaway", "bitcoin", "lottery", "you have won",
			"wire transfer", "double your",
		},
		Profanity: []string{
			"fuck", "shit", "bitch", "asshole", "bastard", "cunt", "wanker", "motherfucker",
		},
	}
}

// LoadLists reads a lists file. Missing keys keep their defaults.
func LoadLists(path string) (Lists, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Lists{}, fmt.Errorf("read moderation lists: %w", err)
	}
	var raw struct {
		SpamKeywords *[]string `json:"spamKeywords"`
		Profanity    *[]string `json:"profanity"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Lists{}, fmt.Errorf("parse moderation lists: %w", err)
	}
	lists := DefaultLists()
	if raw.SpamKeywords != nil {
		lists.SpamKeywords = *raw.SpamKeywords
	}
	if raw.Profanity != nil {
		lists.Profanity = *raw.Profanity
	}
	return lists, nil
}

const (
	uppercaseRatioLimit = 0.3
	punctuationRunLimit = 3
	repeatedCharLimit   = 5
)

var punctuationRunRe = regexp.MustCompile(`[!?]{2,}`)

// Moderator runs spam and profanity heuristics. It is safe for concurrent use.
type Moderator struct {
	mu        sync.RWMutex
	spam      []string
	profanity []string
}

// NewModerator creates a Moderator using the given lists.
func NewModerator(lists Lists) *Moderator {
	m := &Moderator{}
	m.SetLists(lists)
	return m
}

// SetLists atomically replaces both blocklists.
func (m *Moderator) SetLists(lists Lists) {
	spam := normalize(lists.SpamKeywords)
	profanity := normalize(lists.Profanity)
	m.mu.Lock()
	m.spam, m.profanity = spam, profanity
	m.mu.Unlock()
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// DetectSpam reports whether text trips any spam heuristic.
func (m *Moderator) DetectSpam(text string) bool {
	m.mu.RLock()
	keywords := m.spam
	m.mu.RUnlock()

	if containsAny(strings.ToLower(text), keywords) {
		return true
	}
	if excessiveUppercase(text) {
		return true
	}
	if len(punctuationRunRe.FindAllStringIndex(text, -1)) > punctuationRunLimit {
		return true
	}
	return hasRepeatedRun(text, repeatedCharLimit)
}

// DetectProfanity reports whether text contains a blocklisted word.
func (m *Moderator) DetectProfanity(text string) bool {
	m.mu.RLock()
	words := m.profanity
	m.mu.RUnlock()
	return containsAny(strings.ToLower(text), words)
}

// CheckReview runs both heuristics over title and comment.
// Spam wins over profanity when both trigger.
func (m *Moderator) CheckReview(title, comment string) error {
	text := title + " " + comment
	if m.DetectSpam(text) {
		return apperrors.Spam()
	}
	if m.DetectProfanity(text) {
		return apperrors.Inappropriate()
	}
	return nil
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// excessiveUppercase compares uppercase letters against the full rune length of text.
func excessiveUppercase(text string) bool {
	total, upper := 0, 0
	for _, r := range text {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if total == 0 {
		return false
	}
	return float64(upper) > uppercaseRatioLimit*float64(total)
}

func hasRepeatedRun(text string, limit int) bool {
	var prev rune
	run := 0
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= limit {
			return true
		}
		prev = r
	}
	return false
}

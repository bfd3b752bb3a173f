package moderation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/apperrors"
)

func TestDetectSpam(t *testing.T) {
	m := NewModerator(DefaultLists())
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"keyword and shouting", "BUY NOW!!! CLICK HERE!!!", true},
		{"keyword lowercase", "you should click here for a deal", true},
		{"uppercase ratio", "GREAT SOFA honestly", true},
		{"uppercase at limit", "ABC defghij", false},
		{"punctuation runs", "wow!! really?? yes!! no?? ok", true},
		{"three punctuation runs", "wow!! really?? yes!! fine", false},
		{"repeated char", "soooooo comfy", true},
		{"four repeats", "soooo comfy", false},
		{"plain review", "Comfortable sofa, the fabric feels great. Delivery was on time.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.DetectSpam(tt.text))
		})
	}
}

func TestDetectSpam_KeywordAloneTriggers(t *testing.T) {
	m := NewModerator(Lists{SpamKeywords: []string{"Buy Now"}})
	assert.True(t, m.DetectSpam("please buy now thanks"))
	assert.False(t, NewModerator(Lists{}).DetectSpam("please buy now thanks"))
}

func TestDetectProfanity(t *testing.T) {
	m := NewModerator(Lists{Profanity: []string{"darn"}})
	assert.True(t, m.DetectProfanity("What a DARN shame"))
	assert.False(t, m.DetectProfanity("Lovely chair"))
}

func TestCheckReview_DistinguishesKinds(t *testing.T) {
	m := NewModerator(Lists{SpamKeywords: []string{"casino"}, Profanity: []string{"darn"}})

	err := m.CheckReview("Great chair", "visit my casino today please")
	assert.ErrorIs(t, err, apperrors.ErrSpam)

	err = m.CheckReview("Darn good", "the chair is comfortable")
	assert.ErrorIs(t, err, apperrors.ErrInappropriate)

	assert.NoError(t, m.CheckReview("Great chair", "the chair is comfortable"))
}

func TestLoadLists_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"profanity":["heck"]}`), 0o644))

	lists, err := LoadLists(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"heck"}, lists.Profanity)
	assert.Equal(t, DefaultLists().SpamKeywords, lists.SpamKeywords)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = LoadLists(path)
	assert.Error(t, err)
}

func TestListWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"spamKeywords":[],"profanity":["heck"]}`), 0o644))

	m := NewModerator(DefaultLists())
	lw, err := NewListWatcher(zap.NewNop(), m, path)
	require.NoError(t, err)
	lw.debounce = 10 * time.Millisecond
	defer lw.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, lw.Start(ctx))

	assert.True(t, m.DetectProfanity("oh heck"))
	assert.False(t, m.DetectProfanity("oh bother"))

	require.NoError(t, os.WriteFile(path, []byte(`{"spamKeywords":[],"profanity":["bother"]}`), 0o644))
	assert.Eventually(t, func() bool {
		return m.DetectProfanity("oh bother")
	}, 2*time.Second, 20*time.Millisecond)
	assert.False(t, m.DetectProfanity("oh heck"))
}

func TestPlaceholderVerifier(t *testing.T) {
	v := PlaceholderVerifier{Sentinel: "test-token"}
	ctx := context.Background()
	assert.True(t, v.Verify(ctx, "test-token"))
	assert.True(t, v.Verify(ctx, "abcdefghijk"))
	assert.False(t, v.Verify(ctx, "abcdefghij"))
	assert.False(t, v.Verify(ctx, ""))

	assert.False(t, v.Verify(ctx, strings.Repeat("é", 6)), "12 bytes but 6 characters")
	assert.False(t, v.Verify(ctx, strings.Repeat("é", 10)))
	assert.True(t, v.Verify(ctx, strings.Repeat("é", 11)))

	short := PlaceholderVerifier{Sentinel: "pass"}
	assert.True(t, short.Verify(ctx, "pass"))
	assert.False(t, short.Verify(ctx, " pass "), "padding is not trimmed")
}

func TestCaptchaVerifier(t *testing.T) {
	store := base64Captcha.NewMemoryStore(10, time.Minute)
	v := NewCaptchaVerifier(store)

	id, img, err := v.Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	answer := store.Get(id, false)
	require.NotEmpty(t, answer)

	ctx := context.Background()
	assert.False(t, v.Verify(ctx, id+":wrong"))

	// a failed attempt consumes the captcha
	assert.False(t, v.Verify(ctx, id+":"+answer))

	id, _, err = v.Generate()
	require.NoError(t, err)
	answer = store.Get(id, false)
	assert.True(t, v.Verify(ctx, id+":"+answer))
	assert.False(t, v.Verify(ctx, id+":"+answer))
	assert.False(t, v.Verify(ctx, "no-separator"))
}

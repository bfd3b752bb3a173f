package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/limiter"
	"github.com/oakhaven/storefront/utils"
)

const bucketIdleTTL = 5 * time.Minute

type bucket struct {
	limiter *rate.Limiter
	expires time.Time
}

// ipBuckets holds one token bucket per client IP. Idle buckets are dropped on access.
type ipBuckets struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

func (b *ipBuckets) allow(ip string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, bk := range b.buckets {
		if now.After(bk.expires) {
			delete(b.buckets, key)
		}
	}
	bk, ok := b.buckets[ip]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.buckets[ip] = bk
	}
	bk.expires = now.Add(bucketIdleTTL)
	return bk.limiter.AllowN(now, 1)
}

// GlobalRateLimit is a coarse per-IP token bucket in front of every API route.
func GlobalRateLimit(perMinute int) gin.HandlerFunc {
	perMinute = max(perMinute, 1)
	b := &ipBuckets{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
	}
	return func(ctx *gin.Context) {
		if !b.allow(ctx.ClientIP(), time.Now()) {
			utils.Error(ctx, http.StatusTooManyRequests, 42900, "too many requests")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// SubmissionLimit enforces the fixed-window policy of one form per client IP.
// A failing store lets the request through; the outage is logged.
func SubmissionLimit(l *limiter.Limiter, form string, p limiter.Policy) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		d, err := l.Check(ctx.Request.Context(), form+":"+ctx.ClientIP(), p)
		if err != nil {
			utils.Logger.Warn("rate limit store unavailable, allowing request",
				zap.String("form", form), zap.Error(err))
			ctx.Next()
			return
		}
		ctx.Header("X-RateLimit-Limit", strconv.Itoa(p.MaxAttempts))
		ctx.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		ctx.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetTime.Unix(), 10))
		if !d.Allowed {
			RecordSubmission(form, OutcomeRateLimited)
			ctx.Header("Retry-After", strconv.Itoa(retryAfterSeconds(d.ResetTime, time.Now())))
			utils.AbortWithError(ctx, apperrors.RateLimited(d.ResetTime))
			return
		}
		ctx.Next()
	}
}

func retryAfterSeconds(reset, now time.Time) int {
	secs := int(reset.Sub(now).Round(time.Second) / time.Second)
	return max(secs, 1)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/models"
)

// StatusPendingApproval is reported to the author of a freshly submitted review.
const StatusPendingApproval = "pending_approval"

// NewReview carries already validated, sanitized and moderated review fields.
type NewReview struct {
	ProductID string
	Name      string
	Email     string
	Rating    int
	Title     string
	Comment   string
}

// ProductReviews is the public listing of a product's approved reviews.
type ProductReviews struct {
	Reviews       []models.Review `json:"reviews"`
	TotalReviews  int             `json:"totalReviews"`
	AverageRating float64         `json:"averageRating"`
}

// ReviewStore owns the review lifecycle on top of a repository.
type ReviewStore struct {
	repo   ReviewRepository
	cache  ReviewCache
	logger *zap.Logger
	now    func() time.Time
}

// ReviewStoreOption customizes a ReviewStore.
type ReviewStoreOption func(*ReviewStore)

// WithReviewCache puts cache in front of ListForProduct.
func WithReviewCache(cache ReviewCache) ReviewStoreOption {
	return func(s *ReviewStore) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ReviewStoreOption {
	return func(s *ReviewStore) { s.now = now }
}

func NewReviewStore(repo ReviewRepository, logger *zap.Logger, opts ...ReviewStoreOption) *ReviewStore {
	s := &ReviewStore{repo: repo, cache: noopReviewCache{}, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores a new pending review and returns it.
func (s *ReviewStore) Submit(ctx context.Context, in NewReview) (*models.Review, error) {
	now := s.now().UTC()
	review := &models.Review{
		ID:          uuid.NewString(),
		ProductID:   in.ProductID,
		AuthorName:  in.Name,
		AuthorEmail: in.Email,
		Rating:      in.Rating,
		Title:       in.Title,
		Comment:     in.Comment,
		State:       models.ReviewPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.logger.Info("review submitted",
		zap.String("reviewId", review.ID),
		zap.String("productId", review.ProductID),
		zap.Int("rating", review.Rating))
	return review, nil
}

// MarkHelpful increments the helpful counter.
func (s *ReviewStore) MarkHelpful(ctx context.Context, id string) (*models.Review, error) {
	review, err := s.update(ctx, id, func(r *models.Review) error {
		r.HelpfulCount++
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, review.ProductID)
	return review, nil
}

// Flag increments the flag counter and hides the review once it reaches FlagHideThreshold.
func (s *ReviewStore) Flag(ctx context.Context, id string) (*models.Review, error) {
	var hidden bool
	review, err := s.update(ctx, id, func(r *models.Review) error {
		r.FlaggedCount++
		if r.FlaggedCount >= models.FlagHideThreshold && r.State != models.ReviewHidden {
			hidden = r.Apply(models.ActionAutoFlag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if hidden {
		s.logger.Info("review auto-hidden",
			zap.String("reviewId", review.ID),
			zap.Int("flaggedCount", review.FlaggedCount))
	}
	s.cache.Invalidate(ctx, review.ProductID)
	return review, nil
}

// Transition applies a staff moderation action.
func (s *ReviewStore) Transition(ctx context.Context, id string, action models.ReviewAction) (*models.Review, error) {
	if !models.IsManualReviewAction(action) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown review action %q", action))
	}
	var from models.ReviewState
	review, err := s.update(ctx, id, func(r *models.Review) error {
		from = r.State
		if !r.Apply(action) {
			return apperrors.Conflict(fmt.Sprintf("cannot %s a review in state %s", action, r.State))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("review transitioned",
		zap.String("reviewId", review.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(review.State)))
	s.cache.Invalidate(ctx, review.ProductID)
	return review, nil
}

// ListForProduct returns approved reviews newest first with their count and average rating.
func (s *ReviewStore) ListForProduct(ctx context.Context, productID string) (ProductReviews, error) {
	if list, ok := s.cache.Get(ctx, productID); ok {
		return list, nil
	}
	reviews, err := s.repo.ListApproved(ctx, productID)
	if err != nil {
		return ProductReviews{}, apperrors.Internal(err)
	}
	list := ProductReviews{
		Reviews:       reviews,
		TotalReviews:  len(reviews),
		AverageRating: averageRating(reviews),
	}
	s.cache.Set(ctx, productID, list)
	return list, nil
}

func (s *ReviewStore) update(ctx context.Context, id string, fn func(*models.Review) error) (*models.Review, error) {
	review, err := s.repo.Update(ctx, id, func(r *models.Review) error {
		if err := fn(r); err != nil {
			return err
		}
		r.UpdatedAt = s.now().UTC()
		return nil
	})
	if err == nil {
		return review, nil
	}
	if errors.Is(err, ErrReviewNotFound) {
		return nil, apperrors.NotFound("review", id)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return nil, appErr
	}
	return nil, apperrors.Internal(err)
}

// averageRating is rounded to one decimal place and 0 for no reviews.
func averageRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}

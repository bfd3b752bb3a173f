package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oakhaven/storefront/models"
)

// ErrReviewNotFound is returned by repositories for an unknown review id.
var ErrReviewNotFound = errors.New("review not found")

// ReviewRepository persists reviews. Update must apply fn atomically: no
// concurrent Update on the same id may observe or overwrite a stale copy.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Get(ctx context.Context, id string) (*models.Review, error)
	ListApproved(ctx context.Context, productID string) ([]models.Review, error)
	Update(ctx context.Context, id string, fn func(*models.Review) error) (*models.Review, error)
}

// MemoryReviewRepository keeps reviews in a map guarded by a mutex.
type MemoryReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]models.Review
}

func NewMemoryReviewRepository() *MemoryReviewRepository {
	return &MemoryReviewRepository{reviews: make(map[string]models.Review)}
}

func (r *MemoryReviewRepository) Create(_ context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reviews[review.ID]; exists {
		return fmt.Errorf("review %s already exists", review.ID)
	}
	r.reviews[review.ID] = *review
	return nil
}

func (r *MemoryReviewRepository) Get(_ context.Context, id string) (*models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	review, ok := r.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	return &review, nil
}

func (r *MemoryReviewRepository) ListApproved(_ context.Context, productID string) ([]models.Review, error) {
	r.mu.RLock()
	out := make([]models.Review, 0)
	for _, review := range r.reviews {
		if review.ProductID == productID && review.IsApproved() {
			out = append(out, review)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryReviewRepository) Update(_ context.Context, id string, fn func(*models.Review) error) (*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	if err := fn(&review); err != nil {
		return nil, err
	}
	r.reviews[id] = review
	return &review, nil
}

// GormReviewRepository stores reviews in a SQL database. Updates run in a
// transaction holding a row lock.
type GormReviewRepository struct {
	db *gorm.DB
}

func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

func (r *GormReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *GormReviewRepository) Get(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review %s: %w", id, err)
	}
	return &review, nil
}

func (r *GormReviewRepository) ListApproved(ctx context.Context, productID string) ([]models.Review, error) {
	reviews := make([]models.Review, 0)
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND state = ?", productID, models.ReviewApproved).
		Order("created_at DESC").
		Order("id ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("list reviews for %s: %w", productID, err)
	}
	return reviews, nil
}

func (r *GormReviewRepository) Update(ctx context.Context, id string, fn func(*models.Review) error) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&review).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(&review); err != nil {
			return err
		}
		return tx.Save(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

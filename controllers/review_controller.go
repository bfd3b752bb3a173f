package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/middleware"
	"github.com/oakhaven/storefront/models"
	"github.com/oakhaven/storefront/moderation"
	"github.com/oakhaven/storefront/store"
	"github.com/oakhaven/storefront/utils"
	"github.com/oakhaven/storefront/validation"
)

// ReviewController exposes product reviews and their moderation.
type ReviewController struct {
	validator *validation.Validator
	moderator *moderation.Moderator
	verifier  moderation.ChallengeVerifier
	reviews   *store.ReviewStore
}

// NewReviewController creates a new ReviewController instance.
func NewReviewController(v *validation.Validator, m *moderation.Moderator, cv moderation.ChallengeVerifier, rs *store.ReviewStore) *ReviewController {
	return &ReviewController{validator: v, moderator: m, verifier: cv, reviews: rs}
}

// ListReviews returns the approved reviews of ?productId= with count and average rating.
func (r *ReviewController) ListReviews(ctx *gin.Context) {
	productID := strings.TrimSpace(ctx.Query("productId"))
	if productID == "" {
		utils.AbortWithError(ctx, apperrors.InvalidInput("productId is required"))
		return
	}
	list, err := r.reviews.ListForProduct(ctx.Request.Context(), productID)
	if err != nil {
		utils.AbortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, list)
}

// SubmitReview checks the challenge token, validates, sanitizes and moderates a
// review before storing it as pending.
func (r *ReviewController) SubmitReview(ctx *gin.Context) {
	form := models.FormReview

	raw, err := bindJSONObject(ctx)
	if err != nil {
		reject(ctx, form, err)
		return
	}
	if !r.verifier.Verify(ctx.Request.Context(), stringField(raw, "captchaToken")) {
		reject(ctx, form, apperrors.ChallengeFailed())
		return
	}
	if res := r.validator.Validate(form, raw); !res.Valid {
		reject(ctx, form, res.Err())
		return
	}

	// Markup must not count toward length bounds, so the sanitized values are checked again.
	clean, _ := utils.SanitizeObject(raw).(map[string]any)
	if res := r.validator.Validate(form, clean); !res.Valid {
		reject(ctx, form, res.Err())
		return
	}

	rating, _ := validation.AsInt(clean["rating"])
	in := store.NewReview{
		ProductID: stringField(clean, "productId"),
		Name:      stringField(clean, "name"),
		Email:     stringField(clean, "email"),
		Rating:    rating,
		Title:     stringField(clean, "title"),
		Comment:   stringField(clean, "comment"),
	}
	if err := r.moderator.CheckReview(in.Title, in.Comment); err != nil {
		reject(ctx, form, err)
		return
	}

	review, err := r.reviews.Submit(ctx.Request.Context(), in)
	if err != nil {
		reject(ctx, form, err)
		return
	}
	accept(form)
	utils.Success(ctx, "Thank you! Your review has been submitted and will appear once approved.", gin.H{
		"id":     review.ID,
		"status": store.StatusPendingApproval,
	})
}

// UpdateReview applies a public helpful or flag action.
func (r *ReviewController) UpdateReview(ctx *gin.Context) {
	form := models.FormReviewAction

	raw, err := bindJSONObject(ctx)
	if err != nil {
		reject(ctx, form, err)
		return
	}
	if res := r.validator.Validate(form, raw); !res.Valid {
		reject(ctx, form, res.Err())
		return
	}

	id := strings.TrimSpace(stringField(raw, "reviewId"))
	var message string
	switch strings.TrimSpace(stringField(raw, "action")) {
	case "helpful":
		_, err = r.reviews.MarkHelpful(ctx.Request.Context(), id)
		message = "Thanks for your feedback"
	case "flag":
		_, err = r.reviews.Flag(ctx.Request.Context(), id)
		message = "Thanks, this review has been reported for moderation"
	}
	if err != nil {
		reject(ctx, form, err)
		return
	}
	accept(form)
	utils.Success(ctx, message, nil)
}

// TransitionReview applies a staff moderation action to the review :id.
func (r *ReviewController) TransitionReview(ctx *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.AbortWithError(ctx, apperrors.InvalidInput("action is required"))
		return
	}
	action := models.ReviewAction(strings.TrimSpace(req.Action))
	review, err := r.reviews.Transition(ctx.Request.Context(), ctx.Param("id"), action)
	if err != nil {
		utils.AbortWithError(ctx, err)
		return
	}
	utils.Logger.Info("review transitioned",
		zap.String("review", review.ID),
		zap.String("action", string(action)),
		zap.String("state", string(review.State)),
		zap.String("moderator", ctx.GetString(middleware.ContextAdminKey)))
	utils.Success(ctx, "review "+string(review.State), gin.H{"review": review})
}

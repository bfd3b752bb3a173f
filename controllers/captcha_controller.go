package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/moderation"
	"github.com/oakhaven/storefront/utils"
)

// CaptchaController issues image challenges for the review form.
type CaptchaController struct {
	verifier *moderation.CaptchaVerifier
}

// NewCaptchaController creates a new CaptchaController instance.
func NewCaptchaController(v *moderation.CaptchaVerifier) *CaptchaController {
	return &CaptchaController{verifier: v}
}

// Captcha returns a fresh captcha id and base64 image. Clients submit "<id>:<answer>" as captchaToken.
func (c *CaptchaController) Captcha(ctx *gin.Context) {
	id, b64, err := c.verifier.Generate()
	if err != nil {
		utils.AbortWithError(ctx, apperrors.Internal(err))
		return
	}
	utils.Success(ctx, "", gin.H{"id": id, "image": b64})
}

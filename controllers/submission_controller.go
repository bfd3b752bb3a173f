package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/models"
	"github.com/oakhaven/storefront/utils"
	"github.com/oakhaven/storefront/validation"
)

const (
	// MaxImagesPerSubmission caps the number of uploads on one contact or sample request.
	MaxImagesPerSubmission = 5
	maxSubmissionBytes     = MaxImagesPerSubmission*utils.MaxUploadBytes + 1<<20
	sampleService          = "sample"
)

var contactFields = []string{"name", "email", "phone", "message", "postcode", "address", "service", "product", "chatSummary"}

// SubmissionController accepts contact and sample requests and forwards them to the sales team.
type SubmissionController struct {
	validator *validation.Validator
	forwarder utils.Forwarder
	now       func() time.Time
}

// NewSubmissionController creates a new SubmissionController instance.
func NewSubmissionController(v *validation.Validator, f utils.Forwarder) *SubmissionController {
	return &SubmissionController{validator: v, forwarder: f, now: time.Now}
}

// SubmitContact runs a multipart contact or sample request through validation,
// sanitization and upload checks before forwarding it.
func (s *SubmissionController) SubmitContact(ctx *gin.Context) {
	form := models.FormContact

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxSubmissionBytes)
	if err := ctx.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			reject(ctx, form, apperrors.InvalidInput("request body too large"))
			return
		}
		reject(ctx, form, apperrors.InvalidInput("invalid form data"))
		return
	}

	fields := make(map[string]any, len(contactFields))
	for _, key := range contactFields {
		if v, ok := ctx.GetPostForm(key); ok {
			fields[key] = v
		}
	}
	if v, _ := fields["service"].(string); v == sampleService {
		form = models.FormSample
	}

	if res := s.validator.Validate(form, fields); !res.Valid {
		reject(ctx, form, res.Err())
		return
	}

	clean := make(map[string]string, len(fields))
	for k, v := range fields {
		clean[k], _ = v.(string)
	}
	utils.SanitizeFields(clean)
	sanitized := make(map[string]any, len(clean))
	for k, v := range clean {
		sanitized[k] = v
	}
	if res := s.validator.Validate(form, sanitized); !res.Valid {
		reject(ctx, form, res.Err())
		return
	}

	headers := uploadedImages(ctx.Request.MultipartForm)
	if len(headers) > MaxImagesPerSubmission {
		reject(ctx, form, apperrors.Validation([]apperrors.FieldError{{
			Field:   "images",
			Message: fmt.Sprintf("You can attach at most %d images", MaxImagesPerSubmission),
		}}))
		return
	}
	images := make([]models.UploadedFile, 0, len(headers))
	for _, h := range headers {
		images = append(images, models.UploadedFile{
			Name:      h.Filename,
			MimeType:  h.Header.Get("Content-Type"),
			SizeBytes: h.Size,
		})
	}
	if appErr := utils.ValidateFiles(images); appErr != nil {
		reject(ctx, form, appErr)
		return
	}
	for i, h := range headers {
		content, err := readUpload(h)
		if err != nil {
			reject(ctx, form, apperrors.Internal(err))
			return
		}
		images[i].Content = content
	}

	sub := models.ContactSubmission{
		Form:        form,
		Name:        clean["name"],
		Email:       clean["email"],
		Phone:       clean["phone"],
		Message:     clean["message"],
		Postcode:    clean["postcode"],
		Address:     clean["address"],
		Service:     clean["service"],
		Product:     clean["product"],
		ChatSummary: clean["chatSummary"],
		Images:      images,
		ClientIP:    ctx.ClientIP(),
		ReceivedAt:  s.now().UTC(),
	}
	if err := s.forwarder.Forward(ctx.Request.Context(), sub); err != nil {
		reject(ctx, form, apperrors.Internal(err))
		return
	}

	accept(form)
	message := "Thank you for your enquiry. We'll be in touch within one business day."
	if form == models.FormSample {
		message = "Thank you! Your sample request has been received and will be posted within 3-5 business days."
	}
	utils.Success(ctx, message, nil)
}

func uploadedImages(mf *multipart.Form) []*multipart.FileHeader {
	if mf == nil {
		return nil
	}
	out := append([]*multipart.FileHeader{}, mf.File["images"]...)
	return append(out, mf.File["images[]"]...)
}

func readUpload(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", h.Filename, err)
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, utils.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", h.Filename, err)
	}
	return b, nil
}

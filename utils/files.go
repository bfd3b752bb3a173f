package utils

import (
	"fmt"
	"mime"
	"regexp"
	"strings"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/models"
)

// MaxUploadBytes is the per-file size limit (5 MiB).
const MaxUploadBytes int64 = 5 << 20

var allowedUploadTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

var safeFilenameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileCheck is the outcome of validating one upload.
type FileCheck struct {
	Valid bool
	Error string
}

// ValidateFile checks MIME type, size and filename charset of a single upload.
func ValidateFile(f models.UploadedFile) FileCheck {
	mt := strings.ToLower(strings.TrimSpace(f.MimeType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if _, ok := allowedUploadTypes[mt]; !ok {
		return FileCheck{Error: fmt.Sprintf("%s: unsupported file type %q (allowed: JPEG, PNG, WebP, PDF)", f.Name, f.MimeType)}
	}
	if f.SizeBytes > MaxUploadBytes {
		return FileCheck{Error: fmt.Sprintf("%s: file exceeds the 5MB limit", f.Name)}
	}
	if !safeFilenameRe.MatchString(f.Name) {
		return FileCheck{Error: fmt.Sprintf("%s: filename may only contain letters, numbers, dots, dashes and underscores", f.Name)}
	}
	return FileCheck{Valid: true}
}

// ValidateFiles checks every file and reports all failures, not just the first.
// The result is nil when every file passes.
func ValidateFiles(files []models.UploadedFile) *apperrors.AppError {
	var failures []apperrors.FieldError
	for i, f := range files {
		if res := ValidateFile(f); !res.Valid {
			failures = append(failures, apperrors.FieldError{
				Field:   fmt.Sprintf("images[%d]", i),
				Message: res.Error,
			})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return apperrors.FileRejected(failures)
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/models"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		file    models.UploadedFile
		valid   bool
		errPart string
	}{
		{"jpeg", models.UploadedFile{Name: "sofa.jpg", MimeType: "image/jpeg", SizeBytes: 1024}, true, ""},
		{"png with params", models.UploadedFile{Name: "room_1.png", MimeType: "image/png; charset=binary", SizeBytes: 10}, true, ""},
		{"webp", models.UploadedFile{Name: "a-b.webp", MimeType: "IMAGE/WEBP", SizeBytes: 10}, true, ""},
		{"pdf at limit", models.UploadedFile{Name: "plan.pdf", MimeType: "application/pdf", SizeBytes: MaxUploadBytes}, true, ""},
		{"gif", models.UploadedFile{Name: "anim.gif", MimeType: "image/gif", SizeBytes: 10}, false, "unsupported file type"},
		{"too large", models.UploadedFile{Name: "big.png", MimeType: "image/png", SizeBytes: MaxUploadBytes + 1}, false, "5MB"},
		{"bad name", models.UploadedFile{Name: "bad name!.png", MimeType: "image/png", SizeBytes: 10}, false, "filename"},
		{"path traversal", models.UploadedFile{Name: "../etc/passwd", MimeType: "application/pdf", SizeBytes: 10}, false, "filename"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateFile(tt.file)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.Contains(t, res.Error, tt.errPart)
			}
		})
	}
}

func TestValidateFiles_CollectsAllFailures(t *testing.T) {
	files := []models.UploadedFile{
		{Name: "bad name!.png", MimeType: "image/png", SizeBytes: 100},
		{Name: "ok.jpg", MimeType: "image/jpeg", SizeBytes: 100},
		{Name: "anim.gif", MimeType: "image/gif", SizeBytes: 100},
	}

	err := ValidateFiles(files)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, apperrors.ErrFileRejected)
	require.Len(t, err.Fields, 2)
	assert.Equal(t, "images[0]", err.Fields[0].Field)
	assert.Contains(t, err.Fields[0].Message, "filename")
	assert.Equal(t, "images[2]", err.Fields[1].Field)
	assert.Contains(t, err.Fields[1].Message, "unsupported file type")
}

func TestValidateFiles_AllValid(t *testing.T) {
	assert.Nil(t, ValidateFiles(nil))
	assert.Nil(t, ValidateFiles([]models.UploadedFile{{Name: "a.pdf", MimeType: "application/pdf", SizeBytes: 1}}))
}

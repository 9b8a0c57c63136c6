package reversal

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}
	webpBytes = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
)

// makeEvidenceFile fabrique un vrai *multipart.FileHeader en passant par un
// encodage/décodage multipart, comme le ferait gin à la réception.
func makeEvidenceFile(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	files := form.File["images"]
	require.Len(t, files, 1)
	return files[0]
}

func TestValidateEvidenceAcceptsRealImages(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
	}{
		{"jpeg", "photo.jpg", "image/jpeg", jpegBytes},
		{"jpg alias", "photo.jpg", "image/jpg", jpegBytes},
		{"png", "photo.png", "image/png", pngBytes},
		{"webp", "photo.webp", "image/webp", webpBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh := makeEvidenceFile(t, tt.filename, tt.contentType, tt.content)
			assert.NoError(t, ValidateEvidence([]*multipart.FileHeader{fh}))
		})
	}
}

func TestValidateEvidenceAllowsEmptyList(t *testing.T) {
	assert.NoError(t, ValidateEvidence(nil))
}

func TestValidateEvidenceRejectsTooManyFiles(t *testing.T) {
	files := make([]*multipart.FileHeader, 0, MaxEvidenceFiles+1)
	for i := 0; i <= MaxEvidenceFiles; i++ {
		files = append(files, makeEvidenceFile(t, fmt.Sprintf("photo%d.jpg", i), "image/jpeg", jpegBytes))
	}

	err := ValidateEvidence(files)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Reason, "Maximum 3")
}

func TestValidateEvidenceRejectsOversizeFile(t *testing.T) {
	// La taille est vérifiée avant l'ouverture, pas besoin de fabriquer 5 Mo
	fh := &multipart.FileHeader{
		Filename: "enorme.jpg",
		Size:     MaxEvidenceFileSize + 1,
		Header:   textproto.MIMEHeader{"Content-Type": []string{"image/jpeg"}},
	}

	err := ValidateEvidence([]*multipart.FileHeader{fh})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Reason, "5 Mo")
}

func TestValidateEvidenceRejectsUndeclaredType(t *testing.T) {
	fh := makeEvidenceFile(t, "facture.pdf", "application/pdf", []byte("%PDF-1.4"))

	err := ValidateEvidence([]*multipart.FileHeader{fh})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Reason, "Type de fichier non autorisé")
}

func TestValidateEvidenceRejectsSpoofedContent(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		content     []byte
	}{
		{"script renommé en png", "image/png", []byte("#!/bin/sh\nrm -rf /")},
		{"jpeg déclaré png", "image/png", jpegBytes},
		{"texte déclaré jpeg", "image/jpeg", []byte("pas une image du tout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh := makeEvidenceFile(t, "photo.png", tt.contentType, tt.content)

			err := ValidateEvidence([]*multipart.FileHeader{fh})
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Contains(t, validation.Reason, "ne correspond pas")
		})
	}
}

func TestValidateEvidenceFailsFastOnFirstBadFile(t *testing.T) {
	files := []*multipart.FileHeader{
		makeEvidenceFile(t, "ok.jpg", "image/jpeg", jpegBytes),
		makeEvidenceFile(t, "faux.png", "image/png", []byte("contenu quelconque")),
		makeEvidenceFile(t, "ok2.png", "image/png", pngBytes),
	}

	err := ValidateEvidence(files)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Reason, "faux.png")
}

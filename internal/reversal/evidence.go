package reversal

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

const (
	MaxEvidenceFiles    = 3
	MaxEvidenceFileSize = 5 << 20 // 5 Mo
)

// Signatures attendues selon le Content-Type déclaré. Un payload non-image
// renommé en .jpg passe le filtre MIME mais pas celui-ci.
var evidenceSignatures = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8, 0xFF},
	"image/jpg":  {0xFF, 0xD8, 0xFF},
	"image/png":  {0x89, 0x50, 0x4E, 0x47},
	"image/webp": {0x52, 0x49, 0x46, 0x46}, // "RIFF"
}

// ValidateEvidence vérifie les preuves photo d'une demande de retour :
// nombre, taille, type déclaré et magic bytes. Tout ou rien — au premier
// fichier refusé la soumission entière est rejetée, avant tout upload.
func ValidateEvidence(files []*multipart.FileHeader) error {
	if len(files) > MaxEvidenceFiles {
		return &ValidationError{Reason: fmt.Sprintf("Maximum %d images autorisées", MaxEvidenceFiles)}
	}

	for _, fh := range files {
		if err := validateEvidenceFile(fh); err != nil {
			return err
		}
	}
	return nil
}

func validateEvidenceFile(fh *multipart.FileHeader) error {
	if fh.Size > MaxEvidenceFileSize {
		return &ValidationError{Reason: fmt.Sprintf("Le fichier %s dépasse la taille maximale de 5 Mo", fh.Filename)}
	}

	contentType := fh.Header.Get("Content-Type")
	signature, ok := evidenceSignatures[contentType]
	if !ok {
		return &ValidationError{Reason: fmt.Sprintf("Type de fichier non autorisé pour %s (jpeg, png ou webp attendu)", fh.Filename)}
	}

	f, err := fh.Open()
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("Impossible de lire le fichier %s", fh.Filename)}
	}
	defer f.Close()

	head := make([]byte, 12)
	n, _ := io.ReadFull(f, head)
	if !bytes.HasPrefix(head[:n], signature) {
		return &ValidationError{Reason: fmt.Sprintf("Le contenu de %s ne correspond pas à son type déclaré", fh.Filename)}
	}

	return nil
}

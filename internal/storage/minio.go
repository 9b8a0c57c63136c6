package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"

	"lumea_back_end/internal/database"
)

// EvidenceStore range les preuves photo des demandes de retour dans MinIO.
// Rien n'est uploadé tant que la validation des fichiers n'est pas passée.
type EvidenceStore struct{}

func evidenceBucket() string {
	bucket := os.Getenv("MINIO_EVIDENCE_BUCKET")
	if bucket == "" {
		bucket = "reversal-evidence"
	}
	return bucket
}

// UploadEvidence pousse un fichier validé et retourne son URL publique.
func (EvidenceStore) UploadEvidence(ctx context.Context, requestID string, fh *multipart.FileHeader) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("erreur ouverture fichier: %v", err)
	}
	defer f.Close()

	bucket := evidenceBucket()
	objectName := fmt.Sprintf("reversals/%s/%d%s", requestID, time.Now().UnixNano(), filepath.Ext(fh.Filename))

	_, err = database.MinIO.PutObject(ctx, bucket, objectName, f, fh.Size,
		minio.PutObjectOptions{ContentType: fh.Header.Get("Content-Type")})
	if err != nil {
		return "", fmt.Errorf("erreur upload MinIO: %v", err)
	}

	publicBase := os.Getenv("MINIO_PUBLIC_URL")
	if publicBase == "" {
		publicBase = fmt.Sprintf("http://%s", os.Getenv("MINIO_ENDPOINT"))
	}
	return fmt.Sprintf("%s/%s/%s", publicBase, bucket, objectName), nil
}

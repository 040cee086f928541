package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/fitquest-app/fitquest_api/shared"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// MediaService stores challenge proof photos in object storage and hands
// back their public URL for the completion record.
type MediaService struct {
	appContext.DefaultService

	client *minio.Client

	endpoint  string
	accessKey string
	secretKey string
	bucket    string
	useSSL    bool
	publicURL string
}

const MEDIA_SVC = "media_svc"

const maxPhotoSize = 10 << 20 // 10 MiB

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func (svc MediaService) Id() string {
	return MEDIA_SVC
}

func (svc *MediaService) Configure(ctx *appContext.Context) error {
	svc.endpoint = os.Getenv("MINIO_ENDPOINT")
	svc.accessKey = os.Getenv("MINIO_ACCESS_KEY")
	svc.secretKey = os.Getenv("MINIO_SECRET_KEY")
	svc.useSSL = os.Getenv("MINIO_USE_SSL") == "true"

	svc.bucket = os.Getenv("MINIO_BUCKET")
	if svc.bucket == "" {
		svc.bucket = "challenge-photos"
	}

	svc.publicURL = os.Getenv("MINIO_PUBLIC_URL")
	if svc.publicURL == "" {
		scheme := "http"
		if svc.useSSL {
			scheme = "https"
		}
		svc.publicURL = fmt.Sprintf("%s://%s", scheme, svc.endpoint)
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *MediaService) Start() error {
	if svc.endpoint == "" {
		return errors.New("MINIO_ENDPOINT is not set")
	}

	client, err := minio.New(svc.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(svc.accessKey, svc.secretKey, ""),
		Secure: svc.useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}
	svc.client = client

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, svc.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, svc.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.WithField("bucket", svc.bucket).Info("Created media bucket")
	}

	return nil
}

// UploadChallengePhoto validates and stores a proof photo, returning its
// object URL.
func (svc *MediaService) UploadChallengePhoto(userID string, file *multipart.FileHeader) (string, error) {
	if file.Size > maxPhotoSize {
		return "", shared.NewBadRequestError(errors.New("file too large"), "Photo must be smaller than 10MB")
	}

	contentType := file.Header.Get("Content-Type")
	ext, ok := allowedPhotoTypes[strings.ToLower(contentType)]
	if !ok {
		return "", shared.NewBadRequestError(errors.New("unsupported content type"), "Photo must be JPEG, PNG or WebP")
	}

	src, err := file.Open()
	if err != nil {
		return "", shared.NewInternalError(err, "Failed to read photo")
	}
	defer src.Close()

	id, _ := uuid.NewV7()
	objectName := filepath.Join(userID, id.String()+ext)

	_, err = svc.client.PutObject(context.Background(), svc.bucket, objectName, src, file.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", shared.NewInternalError(err, "Failed to store photo")
	}

	return fmt.Sprintf("%s/%s/%s", svc.publicURL, svc.bucket, objectName), nil
}

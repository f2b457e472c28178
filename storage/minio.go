package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/saiganesh141124/flora-intel/apperrors"
)

// Store uploads plant images to an S3-compatible bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	useSSL     bool
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region, useSSL: useSSL}, nil
}

// PutImage uploads image bytes under a key namespaced by principal and
// distinguished by upload time, and returns the object's URL. The declared
// content type is preserved; when absent it is sniffed from the image
// signature.
func (s *Store) PutImage(ctx context.Context, principalID string, imageData []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = DetectImageType(imageData)
	}
	key := fmt.Sprintf("%s/%d%s", principalID, time.Now().UnixMilli(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(imageData), int64(len(imageData)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", apperrors.Newf(apperrors.KindStorage, "failed to upload image %s: %v", key, err)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucketName, key)
	return url, nil
}

// DetectImageType returns the content type for common image format
// signatures, defaulting to JPEG.
func DetectImageType(imageData []byte) string {
	contentType := "image/jpeg" // default
	if len(imageData) > 4 {
		if imageData[0] == 0x89 && imageData[1] == 0x50 && imageData[2] == 0x4E && imageData[3] == 0x47 {
			contentType = "image/png"
		} else if imageData[0] == 0x47 && imageData[1] == 0x49 && imageData[2] == 0x46 {
			contentType = "image/gif"
		} else if imageData[0] == 0x42 && imageData[1] == 0x4D {
			contentType = "image/bmp"
		} else if imageData[0] == 0xFF && imageData[1] == 0xD8 {
			contentType = "image/jpeg"
		}
	}
	return contentType
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}

// Package minio mirrors finished batch artifacts into object storage so
// results survive workdir cleanup.
package minio

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/plasmodock/plasmodock/internal/config"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// ArtifactStore uploads result artifacts to a MinIO bucket.  Uploads
// are best effort on the caller's side; the local workdir remains the
// source of truth.
type ArtifactStore struct {
	client *minio.Client
	bucket string
	logger logging.Logger
}

// NewArtifactStore connects to MinIO and ensures the artifact bucket
// exists.
func NewArtifactStore(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*ArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to check artifact bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create artifact bucket")
		}
		log.Info("created artifact bucket", logging.String("bucket", cfg.Bucket))
	}

	log.Info("connected to MinIO",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
	)
	return &ArtifactStore{client: client, bucket: cfg.Bucket, logger: log.Named("artifact_store")}, nil
}

// UploadFile stores one artifact under the process's key prefix and
// returns the object key.
func (s *ArtifactStore) UploadFile(ctx context.Context, processID uuid.UUID, localPath string) (string, error) {
	key := ObjectKey(processID, localPath)

	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to upload artifact")
	}

	s.logger.Debug("artifact uploaded",
		logging.String("key", key),
		logging.Int("size", int(info.Size)),
	)
	return key, nil
}

// ObjectKey builds the bucket key for a process artifact.
func ObjectKey(processID uuid.UUID, localPath string) string {
	return "processes/" + processID.String() + "/" + filepath.Base(localPath)
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

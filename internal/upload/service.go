// Package upload stores ad video files in object storage and hands back a
// public URL for the catalog.
package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/victornm/adwatch/internal/errors"
)

// ObjectStore is the slice of the object storage client the service needs.
// *minio.Client satisfies it.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Config struct {
	Store ObjectStore
	// Bucket is the target bucket, assumed to exist.
	Bucket string
	// PublicBaseURL is the externally reachable storage endpoint.
	PublicBaseURL string
}

type Service struct {
	store         ObjectStore
	bucket        string
	publicBaseURL string
}

func NewService(c Config) *Service {
	return &Service{
		store:         c.Store,
		bucket:        c.Bucket,
		publicBaseURL: strings.TrimRight(c.PublicBaseURL, "/"),
	}
}

type UploadRequest struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadResponse struct {
	URL string
}

// Upload stores a video file and returns its public URL. Only video MIME
// types are accepted.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if !strings.HasPrefix(req.ContentType, "video/") {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("only video files are accepted, got %q", req.ContentType))
	}
	if req.Filename == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("missing filename"))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate object ID: %w", err)
	}
	object := id.String() + "-" + req.Filename

	_, err = s.store.PutObject(ctx, s.bucket, object, req.Body, req.Size, minio.PutObjectOptions{
		ContentType: req.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	return &UploadResponse{
		URL: fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, object),
	}, nil
}

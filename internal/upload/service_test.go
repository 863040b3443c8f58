package upload_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"github.com/victornm/adwatch/internal/errors"
	"github.com/victornm/adwatch/internal/upload"
)

func TestService_Upload(t *testing.T) {
	t.Parallel()

	store := &fakeObjectStore{}
	s := upload.NewService(upload.Config{
		Store:         store,
		Bucket:        "ads",
		PublicBaseURL: "https://cdn.example.com/",
	})

	resp, err := s.Upload(context.Background(), upload.UploadRequest{
		Filename:    "cereal.mp4",
		ContentType: "video/mp4",
		Size:        4,
		Body:        strings.NewReader("data"),
	})
	require.NoError(t, err)

	require.Equal(t, "ads", store.bucket)
	require.True(t, strings.HasSuffix(store.object, "-cereal.mp4"))
	require.Equal(t, "video/mp4", store.opts.ContentType)
	require.Equal(t, "data", store.content)
	require.Equal(t, "https://cdn.example.com/ads/"+store.object, resp.URL)
}

func TestService_Upload_UniqueObjectNames(t *testing.T) {
	t.Parallel()

	store := &fakeObjectStore{}
	s := upload.NewService(upload.Config{Store: store, Bucket: "ads", PublicBaseURL: "https://cdn.example.com"})

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		_, err := s.Upload(context.Background(), upload.UploadRequest{
			Filename:    "cereal.mp4",
			ContentType: "video/mp4",
			Body:        strings.NewReader(""),
		})
		require.NoError(t, err)
		require.False(t, seen[store.object], "object names must not collide")
		seen[store.object] = true
	}
}

func TestService_Upload_Rejections(t *testing.T) {
	t.Parallel()

	tests := map[string]upload.UploadRequest{
		"non-video content type": {Filename: "resume.pdf", ContentType: "application/pdf"},
		"missing content type":   {Filename: "cereal.mp4"},
		"missing filename":       {ContentType: "video/mp4"},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			store := &fakeObjectStore{}
			s := upload.NewService(upload.Config{Store: store, Bucket: "ads"})

			_, err := s.Upload(context.Background(), req)
			require.True(t, errors.Is(err, errors.CodeInvalidArgument))
			require.Zero(t, store.calls, "rejected uploads must not hit storage")
		})
	}
}

type fakeObjectStore struct {
	calls   int
	bucket  string
	object  string
	content string
	opts    minio.PutObjectOptions
}

func (f *fakeObjectStore) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.calls++
	f.bucket, f.object, f.opts = bucket, object, opts

	b, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.content = string(b)

	return minio.UploadInfo{Bucket: bucket, Key: object, Size: int64(len(b))}, nil
}

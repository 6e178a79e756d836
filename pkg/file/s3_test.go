package file_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patshala/backend/pkg/file"
)

type fakeS3Client struct {
	objects map[string][]byte

	putErr  error
	headErr error
}

func newFakeS3Client() *fakeS3Client {
	return &fakeS3Client{objects: make(map[string][]byte)}
}

func (f *fakeS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.objects[*params.Key] = nil
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*params.Key]; !ok {
		return nil, context.DeadlineExceeded
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	newStorage := func(t *testing.T, client file.S3Client) *file.S3Storage {
		t.Helper()
		storage, err := file.NewS3Storage(ctx, file.S3Config{
			Bucket: "patshala-notes",
			Region: "ap-south-1",
		}, file.WithS3Client(client))
		require.NoError(t, err)
		return storage
	}

	t.Run("requires bucket and region", func(t *testing.T) {
		t.Parallel()
		_, err := file.NewS3Storage(ctx, file.S3Config{})
		assert.ErrorIs(t, err, file.ErrInvalidConfig)
	})

	t.Run("save delete roundtrip", func(t *testing.T) {
		t.Parallel()

		client := newFakeS3Client()
		storage := newStorage(t, client)

		fh := newFileHeader(t, "chapter1.pdf", pdfContent)
		saved, err := storage.Save(ctx, fh, "/notes/MATH/chapter1.pdf")
		require.NoError(t, err)
		assert.Equal(t, "notes/MATH/chapter1.pdf", saved.RelativePath)

		assert.True(t, storage.Exists(ctx, "notes/MATH/chapter1.pdf"))
		require.NoError(t, storage.Delete(ctx, "notes/MATH/chapter1.pdf"))
		assert.False(t, storage.Exists(ctx, "notes/MATH/chapter1.pdf"))
	})

	t.Run("rejects traversal", func(t *testing.T) {
		t.Parallel()

		storage := newStorage(t, newFakeS3Client())
		fh := newFileHeader(t, "evil.pdf", pdfContent)
		_, err := storage.Save(ctx, fh, "../evil.pdf")
		assert.ErrorIs(t, err, file.ErrInvalidPath)
	})

	t.Run("default url", func(t *testing.T) {
		t.Parallel()

		storage := newStorage(t, newFakeS3Client())
		assert.Equal(t,
			"https://patshala-notes.s3.ap-south-1.amazonaws.com/notes/MATH/chapter1.pdf",
			storage.URL("/notes/MATH/chapter1.pdf"),
		)
	})
}

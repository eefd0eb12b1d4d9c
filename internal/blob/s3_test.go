package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadBucketOutput)
	return out, args.Error(1)
}

func (m *mockS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateBucketOutput)
	return out, args.Error(1)
}

func TestUploadReturnsPublicURL(t *testing.T) {
	client := new(mockS3)
	store := NewWithClient(client, "ecommerce-products", "http://localhost:4566/ecommerce-products/")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ := io.ReadAll(in.Body)
		return *in.Bucket == "ecommerce-products" &&
			*in.Key == "products/mouse.png" &&
			*in.ContentType == "image/png" &&
			string(body) == "png-bytes"
	})).Return(&s3.PutObjectOutput{}, nil)

	url, err := store.Upload(context.Background(), "products/mouse.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566/ecommerce-products/products/mouse.png", url)
	client.AssertExpectations(t)
}

func TestUploadError(t *testing.T) {
	client := new(mockS3)
	store := NewWithClient(client, "b", "http://x/b")
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := store.Upload(context.Background(), "products/a.png", "image/png", strings.NewReader(""))
	assert.ErrorContains(t, err, "access denied")
}

func TestEnsureBucket(t *testing.T) {
	t.Run("existing bucket", func(t *testing.T) {
		client := new(mockS3)
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)

		created, err := NewWithClient(client, "b", "").EnsureBucket(context.Background())
		require.NoError(t, err)
		assert.False(t, created)
		client.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything)
	})

	t.Run("missing bucket", func(t *testing.T) {
		client := new(mockS3)
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, errors.New("not found"))
		client.On("CreateBucket", mock.Anything, mock.Anything).Return(&s3.CreateBucketOutput{}, nil)

		created, err := NewWithClient(client, "b", "").EnsureBucket(context.Background())
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestProductImageKey(t *testing.T) {
	tests := map[string]string{
		"mouse.png":             "products/mouse.png",
		"../../etc/passwd":      "products/passwd",
		`C:\fotos\cadeira.jpg`:  "products/cadeira.jpg",
		"":                      "products/image",
	}
	for in, want := range tests {
		if got := ProductImageKey(in); got != want {
			t.Errorf("ProductImageKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "http://localhost:4566/bkt", publicBase(Options{Endpoint: "http://localhost:4566/", Bucket: "bkt"}, "us-east-1"))
	assert.Equal(t, "https://bkt.s3.sa-east-1.amazonaws.com", publicBase(Options{Bucket: "bkt"}, "sa-east-1"))
}

//go:build integration

package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/testutil"
)

func newTestS3Client(ctx context.Context, t *testing.T) (*S3Client, func()) {
	t.Helper()

	container := testutil.NewRustFSContainer(ctx, t)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        container.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "knowledge-files",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	return client, func() { container.Terminate(ctx) }
}

func TestS3Client_PutFetchDelete(t *testing.T) {
	ctx := context.Background()
	client, teardown := newTestS3Client(ctx, t)
	defer teardown()

	size, err := client.Put(ctx, "uploads/file-1", strings.NewReader("stored document body"))
	require.NoError(t, err)
	assert.Equal(t, int64(20), size)

	path, cleanup, err := client.Fetch(ctx, "uploads/file-1")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "stored document body", string(content))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, client.Delete(ctx, "uploads/file-1"))

	_, _, err = client.Fetch(ctx, "uploads/file-1")
	assert.Error(t, err)
}

func TestS3Client_EnsureBucketIdempotent(t *testing.T) {
	ctx := context.Background()
	client, teardown := newTestS3Client(ctx, t)
	defer teardown()

	assert.NoError(t, client.EnsureBucket(ctx))
}

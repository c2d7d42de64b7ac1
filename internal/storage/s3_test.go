package storage

import (
	"context"
	"strings"
	"testing"

	"dominoboard/internal/config"

	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		S3URL:       "http://localhost:54321/storage/v1/s3",
		S3Region:    "us-east-1",
		S3AccessKey: "access",
		S3SecretKey: "secret",
	}
}

func TestPresignUploadAndDownload(t *testing.T) {
	ctx := context.Background()
	client, err := NewS3Client(ctx, testConfig())
	require.NoError(t, err)
	store := NewEvidenceStore(client, "stats-evidence")

	put, err := store.PresignUpload(ctx, "evidence/42/plato/abc.png", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(put, "http://localhost:54321/storage/v1/s3/stats-evidence/evidence/42/plato/abc.png"), put)
	assert.Contains(t, put, "X-Amz-Signature=")

	get, err := store.PresignDownload(ctx, "evidence/42/plato/abc.png")
	require.NoError(t, err)
	assert.Contains(t, get, "X-Amz-Expires=900")
}

func TestRemoveDisableGzipWithoutMiddleware(t *testing.T) {
	stack := awsmiddleware.NewStack("test", nil)
	assert.NoError(t, removeDisableGzip()(stack))
}

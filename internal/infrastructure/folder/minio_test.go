package folder

import (
	"context"
	"io/fs"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMinioFolder_Integration требует запущенный MinIO на localhost:9000.
func TestMinioFolder_Integration(t *testing.T) {
	bucket := "test-tifpatch"

	client, err := NewMinioClient("localhost:9000", "minioadmin", "minioadmin", false)
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	f := NewMinioFolder(client, bucket, "test-prefix/")
	require.NoError(t, f.WriteFile(ctx, "out/split/A/layer_01/X01_Y02_L01_LEG_A.png", []byte("p1")))
	require.NoError(t, f.WriteFile(ctx, "out/metadata.json", []byte("{}")))

	dirs, err := f.ListDirs(ctx, "out")
	require.NoError(t, err)
	assert.Contains(t, dirs, "split")

	files, err := f.ListFiles(ctx, "out/split/A/layer_01")
	require.NoError(t, err)
	assert.Equal(t, []string{"X01_Y02_L01_LEG_A.png"}, files)

	data, err := f.ReadFile(ctx, "out/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), data)

	_, err = f.ReadFile(ctx, "out/missing.json")
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = f.ListDirs(ctx, "nowhere")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("a/b.png"))
	assert.Equal(t, "application/json", contentType("voids.json"))
	assert.Equal(t, "application/octet-stream", contentType("raw.bin"))
}

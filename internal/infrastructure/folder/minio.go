package folder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tif-patch/internal/domain/port"
)

// MinioFolder папка экспорта в бакете MinIO или другом S3-совместимом хранилище.
// Каталоги существуют только как общие префиксы ключей.
type MinioFolder struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioClient создаёт клиента по адресу и статическим ключам.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

// NewMinioFolder создаёт источник; rootPrefix добавляется ко всем ключам.
func NewMinioFolder(client *minio.Client, bucket, rootPrefix string) *MinioFolder {
	return &MinioFolder{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(rootPrefix, "/"),
	}
}

func (f *MinioFolder) key(name string) string {
	return strings.TrimPrefix(path.Join(f.prefix, name), "/")
}

func (f *MinioFolder) dirPrefix(dir string) string {
	p := f.key(dir)
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

// ListDirs общие префиксы на один уровень ниже dir.
func (f *MinioFolder) ListDirs(ctx context.Context, dir string) ([]string, error) {
	return f.list(ctx, dir, true)
}

// ListFiles объекты непосредственно в dir.
func (f *MinioFolder) ListFiles(ctx context.Context, dir string) ([]string, error) {
	return f.list(ctx, dir, false)
}

func (f *MinioFolder) list(ctx context.Context, dir string, dirs bool) ([]string, error) {
	prefix := f.dirPrefix(dir)

	var names []string
	found := false
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		found = true

		name := strings.TrimPrefix(obj.Key, prefix)
		isDir := strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")
		if name == "" || isDir != dirs {
			continue
		}
		names = append(names, name)
	}
	if !found {
		return nil, fmt.Errorf("list %s: %w", dir, fs.ErrNotExist)
	}

	sort.Strings(names)
	return names, nil
}

// ReadFile содержимое объекта
func (f *MinioFolder) ReadFile(ctx context.Context, name string) ([]byte, error) {
	obj, err := f.client.GetObject(ctx, f.bucket, f.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFound(name, err)
	}
	return data, nil
}

// WriteFile кладёт объект; промежуточные каталоги не нужны.
func (f *MinioFolder) WriteFile(ctx context.Context, name string, data []byte) error {
	_, err := f.client.PutObject(ctx, f.bucket, f.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	return err
}

func notFound(name string, err error) error {
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
		return fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return err
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".png":
		return "image/png"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

var (
	_ port.FolderSource = (*MinioFolder)(nil)
	_ port.FolderSink   = (*MinioFolder)(nil)
)

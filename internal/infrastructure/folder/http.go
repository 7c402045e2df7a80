package folder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"tif-patch/internal/domain/port"
)

// HTTPFolder папка экспорта на range-сервере только для чтения.
// GET <base>/<dir>?list=true возвращает {"directories": [...], "files": [...]}.
type HTTPFolder struct {
	base   *url.URL
	client *http.Client
}

type listing struct {
	Directories []string `json:"directories"`
	Files       []string `json:"files"`
}

// NewHTTPFolder создаёт источник; client может быть nil.
func NewHTTPFolder(baseURL string, client *http.Client) (*HTTPFolder, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFolder{base: base, client: client}, nil
}

func (f *HTTPFolder) url(name string, list bool) string {
	u := *f.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(name, "/")
	if list {
		u.RawQuery = "list=true"
	}
	return u.String()
}

func (f *HTTPFolder) get(ctx context.Context, name string, list bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url(name, list), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("get %s: %s", name, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (f *HTTPFolder) list(ctx context.Context, dir string) (listing, error) {
	data, err := f.get(ctx, dir, true)
	if err != nil {
		return listing{}, err
	}
	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return listing{}, fmt.Errorf("decode listing of %s: %w", dir, err)
	}
	sort.Strings(l.Directories)
	sort.Strings(l.Files)
	return l, nil
}

// ListDirs подкаталоги по листингу сервера
func (f *HTTPFolder) ListDirs(ctx context.Context, dir string) ([]string, error) {
	l, err := f.list(ctx, dir)
	return l.Directories, err
}

// ListFiles файлы по листингу сервера
func (f *HTTPFolder) ListFiles(ctx context.Context, dir string) ([]string, error) {
	l, err := f.list(ctx, dir)
	return l.Files, err
}

// ReadFile содержимое файла
func (f *HTTPFolder) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return f.get(ctx, name, false)
}

var _ port.FolderSource = (*HTTPFolder)(nil)

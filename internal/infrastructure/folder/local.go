package folder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tif-patch/internal/domain/port"
)

// LocalFolder папка экспорта на локальном диске. Имена внутри папки
// разделяются '/', как в остальных источниках.
type LocalFolder struct {
	root string
}

// NewLocalFolder создаёт источник с корнем root.
func NewLocalFolder(root string) *LocalFolder {
	return &LocalFolder{root: root}
}

func (f *LocalFolder) path(name string) string {
	return filepath.Join(f.root, filepath.FromSlash(name))
}

// ListDirs имена подкаталогов; fs.ErrNotExist, если каталога нет.
func (f *LocalFolder) ListDirs(ctx context.Context, dir string) ([]string, error) {
	return f.list(ctx, dir, true)
}

// ListFiles имена файлов каталога
func (f *LocalFolder) ListFiles(ctx context.Context, dir string) ([]string, error) {
	return f.list(ctx, dir, false)
}

func (f *LocalFolder) list(ctx context.Context, dir string, dirs bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.path(dir))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() == dirs {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile содержимое файла
func (f *LocalFolder) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.path(name))
}

// WriteFile записывает файл, создавая промежуточные каталоги.
func (f *LocalFolder) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := f.path(name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}
	return os.WriteFile(full, data, 0o644)
}

var (
	_ port.FolderSource = (*LocalFolder)(nil)
	_ port.FolderSink   = (*LocalFolder)(nil)
)

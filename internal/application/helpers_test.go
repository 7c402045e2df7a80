package app

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/infrastructure/storage"
)

var fixedTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func newAnnotations(t *testing.T) *AnnotationService {
	t.Helper()
	store := storage.NewAnnotationStore(storage.WithClock(func() time.Time { return fixedTime }))
	return NewAnnotationService(store, nil, storage.DefaultTolerance)
}

func mustCreate(t *testing.T, svc *AnnotationService, loc entity.Location, typ string, p entity.Placement) entity.Annotation {
	t.Helper()
	a, err := svc.Create(context.Background(), entity.CreateRequest{Location: loc, Placement: p, Type: typ})
	require.NoError(t, err)
	return a
}

func place(x, y, rx, ry float64) entity.Placement {
	return entity.Placement{OriginX: x, OriginY: y, ExtentX: rx, ExtentY: ry}
}

// memFolder папка в памяти: одновременно FolderSource и FolderSink.
type memFolder struct {
	mu      sync.Mutex
	files   map[string][]byte
	failOn  string // префикс пути, запись в который падает
	written []string
}

func newMemFolder() *memFolder {
	return &memFolder{files: make(map[string][]byte)}
}

func (f *memFolder) put(name string, data string) {
	f.files[path.Clean(name)] = []byte(data)
}

func (f *memFolder) WriteFile(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOn != "" && strings.Contains(name, f.failOn) {
		return fmt.Errorf("disk full")
	}
	f.files[path.Clean(name)] = data
	f.written = append(f.written, path.Clean(name))
	return nil
}

func (f *memFolder) ReadFile(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[path.Clean(name)]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (f *memFolder) children(dir string) (dirs, files []string, found bool) {
	prefix := path.Clean(dir) + "/"
	seenDirs := map[string]struct{}{}
	for name := range f.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		found = true
		rest := strings.TrimPrefix(name, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			seenDirs[rest[:i]] = struct{}{}
			continue
		}
		files = append(files, rest)
	}
	for d := range seenDirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return dirs, files, found
}

func (f *memFolder) ListDirs(_ context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dirs, _, found := f.children(dir)
	if !found {
		return nil, fs.ErrNotExist
	}
	return dirs, nil
}

func (f *memFolder) ListFiles(_ context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, files, found := f.children(dir)
	if !found {
		return nil, fs.ErrNotExist
	}
	return files, nil
}

// fakeRenderer запоминает холсты и команды вместо растеризации.
type fakeRenderer struct {
	mu       sync.Mutex
	canvases []entity.Canvas
	commands [][]entity.DrawCommand
}

func (r *fakeRenderer) Render(canvas entity.Canvas, cmds []entity.DrawCommand) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.canvases = append(r.canvases, canvas)
	r.commands = append(r.commands, cmds)
	return []byte(fmt.Sprintf("png:%s:%d", canvas.Title, len(cmds))), nil
}

func (r *fakeRenderer) canvasByTitle(title string) (entity.Canvas, []entity.DrawCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.canvases {
		if c.Title == title {
			return c, r.commands[i], true
		}
	}
	return entity.Canvas{}, nil, false
}

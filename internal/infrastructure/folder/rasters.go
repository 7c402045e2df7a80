package folder

import (
	"context"
	"errors"
	"io/fs"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// Rasters отдаёт растры патчей по путям, найденным при сканировании папки.
type Rasters struct {
	src port.FolderSource
}

// NewRasters создаёт поставщик растров поверх источника папки.
func NewRasters(src port.FolderSource) *Rasters {
	return &Rasters{src: src}
}

// Raster читает layer.Path; ok=false, если путь пуст или файла нет.
func (r *Rasters) Raster(ctx context.Context, layer entity.PatchLayer) ([]byte, bool, error) {
	if layer.Path == "" {
		return nil, false, nil
	}
	data, err := r.src.ReadFile(ctx, layer.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

var _ port.PatchSource = (*Rasters)(nil)

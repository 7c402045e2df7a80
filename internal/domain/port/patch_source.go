package port

import (
	"context"

	"tif-patch/internal/domain/entity"
)

// PatchSource поставщик растров патчей (декодирование TIFF снаружи ядра)
type PatchSource interface {
	// Raster возвращает закодированный растр патча; ok=false, если растра нет
	Raster(ctx context.Context, layer entity.PatchLayer) (data []byte, ok bool, err error)
}

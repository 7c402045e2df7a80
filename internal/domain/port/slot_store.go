package port

import (
	"context"

	"tif-patch/internal/domain/entity"
)

// SlotStore хранилище слотов быстрого сохранения
type SlotStore interface {
	// Save записывает снимок в слот
	Save(ctx context.Context, slot int, snapshot *entity.SessionSnapshot) error

	// Load читает снимок; ok=false, если слот пуст
	Load(ctx context.Context, slot int) (snapshot *entity.SessionSnapshot, ok bool, err error)

	// Clear очищает слот
	Clear(ctx context.Context, slot int) error

	// List занятые слоты
	List(ctx context.Context) ([]int, error)
}

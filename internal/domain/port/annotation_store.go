package port

import "tif-patch/internal/domain/entity"

// AnnotationReader запросы к хранилищу аннотаций без изменения состояния
type AnnotationReader interface {
	// FindAtLocation все аннотации патча (x, y, layer)
	FindAtLocation(loc entity.Location) []entity.Annotation

	// FindAtChip аннотации кристалла на всех слоях
	FindAtChip(chip entity.Chip) []entity.Annotation

	// FindAtChipOtherLayers аннотации других слоёв; пусто, если синхронизация выключена
	FindAtChipOtherLayers(chip entity.Chip, excludeLayer int) []entity.Annotation

	// HitTest аннотации патча под точкой, по возрастанию площади
	HitTest(loc entity.Location, p entity.Point, tolerance float64) []entity.Annotation

	// SyncMode включено ли отображение других слоёв
	SyncMode() bool

	// Chips кристаллы, на которых есть аннотации
	Chips() []entity.Chip

	// ExportAll все аннотации в виде записей
	ExportAll() []entity.Record

	// Stats сводная статистика
	Stats() entity.Stats

	// Len число аннотаций
	Len() int
}

// AnnotationStore хранилище аннотаций с операциями изменения
type AnnotationStore interface {
	AnnotationReader

	// Create создаёт аннотацию со следующим индексом патча
	Create(req entity.CreateRequest) (entity.Annotation, error)

	// DeleteSmallestAt удаляет наименьшую аннотацию под точкой
	DeleteSmallestAt(loc entity.Location, p entity.Point) bool

	// UpdateSmallestAt перемещает наименьшую аннотацию под точкой
	UpdateSmallestAt(loc entity.Location, p entity.Point, to entity.Placement) (*entity.Annotation, error)

	// Replace атомарно заменяет всё содержимое, пересчитывая счётчики
	Replace(annotations []entity.Annotation)

	// SetSyncMode включает или выключает синхронизацию слоёв
	SetSyncMode(enabled bool)

	// Clear очищает аннотации и счётчики вместе
	Clear()
}

package port

import (
	"context"

	"tif-patch/internal/domain/entity"
)

// DefectDetector интерфейс детектора областей-кандидатов на растре патча
type DefectDetector interface {
	// Inspect анализирует изображение и возвращает найденные области
	Inspect(ctx context.Context, imageData []byte) (*entity.InspectionResult, error)

	// HighlightDefects создаёт изображение с подсветкой найденных областей
	HighlightDefects(imageData []byte, result *entity.InspectionResult) ([]byte, error)
}

package port

import "tif-patch/internal/domain/entity"

// Renderer растеризует команды отрисовки в PNG
type Renderer interface {
	// Render рисует команды поверх холста и возвращает PNG
	Render(canvas entity.Canvas, commands []entity.DrawCommand) ([]byte, error)
}

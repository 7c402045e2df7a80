//go:build !gocv
// +build !gocv

package vision

import (
	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// GoCVOverlay без OpenCV рисует встроенным растеризатором.
type GoCVOverlay struct {
	fallback *Renderer
}

// NewGoCVOverlay создаёт overlay-рендерер.
func NewGoCVOverlay() *GoCVOverlay {
	return &GoCVOverlay{fallback: NewRenderer()}
}

// Render делегирует Renderer.
func (o *GoCVOverlay) Render(canvas entity.Canvas, commands []entity.DrawCommand) ([]byte, error) {
	return o.fallback.Render(canvas, commands)
}

var _ port.Renderer = (*GoCVOverlay)(nil)

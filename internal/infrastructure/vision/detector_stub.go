//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"fmt"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

type GoCVDetector struct {
	MinAreaRatio        float64
	MaxAreaRatio        float64
	MinAspectRatio      float64
	MaxAspectRatio      float64
	MinImageSide        int
	MaxOverexposedRatio float64
	DarkVoids           bool
}

// NewGoCVDetector создаёт детектор-заглушку (без OpenCV).
func NewGoCVDetector() *GoCVDetector {
	return &GoCVDetector{
		MinAreaRatio:        0.0005,
		MaxAreaRatio:        0.25,
		MinAspectRatio:      0.2,
		MaxAspectRatio:      5.0,
		MinImageSide:        16,
		MaxOverexposedRatio: 0.6,
	}
}

// Inspect возвращает ошибку, если сборка без тега gocv.
func (d *GoCVDetector) Inspect(ctx context.Context, imageData []byte) (*entity.InspectionResult, error) {
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", entity.ErrNotConfigured)
}

// HighlightDefects возвращает ошибку, если сборка без тега gocv.
func (d *GoCVDetector) HighlightDefects(imageData []byte, result *entity.InspectionResult) ([]byte, error) {
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", entity.ErrNotConfigured)
}

var _ port.DefectDetector = (*GoCVDetector)(nil)

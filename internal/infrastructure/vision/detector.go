//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

type GoCVDetector struct {
	MinAreaRatio        float64 // доля площади патча, меньше которой область считается шумом
	MaxAreaRatio        float64
	MinAspectRatio      float64
	MaxAspectRatio      float64
	MinImageSide        int
	MaxOverexposedRatio float64
	DarkVoids           bool // пустоты темнее фона (акустический снимок)
}

// NewGoCVDetector создаёт детектор пустот с порогами для патчей 100-300 px.
func NewGoCVDetector() *GoCVDetector {
	return &GoCVDetector{
		MinAreaRatio:        0.0005,
		MaxAreaRatio:        0.25,
		MinAspectRatio:      0.2,
		MaxAspectRatio:      5.0,
		MinImageSide:        16,
		MaxOverexposedRatio: 0.6,
		DarkVoids:           false,
	}
}

// Inspect ищет компактные области, контрастные к фону патча.
func (d *GoCVDetector) Inspect(ctx context.Context, imageData []byte) (*entity.InspectionResult, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if err := d.checkImageQuality(mat); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	// Порог Оцу отделяет пустоты от фона без ручной настройки яркости.
	mode := gocv.ThresholdBinary
	if d.DarkVoids {
		mode = gocv.ThresholdBinaryInv
	}
	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(blur, &thresh, 0, 255, mode|gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer kernel.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(thresh, &opened, gocv.MorphOpen, kernel)

	contours := gocv.FindContours(opened, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	total := float64(mat.Cols() * mat.Rows())
	minArea := int(total * d.MinAreaRatio)
	maxArea := int(total * d.MaxAreaRatio)
	defects := make([]entity.DefectArea, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		rect := gocv.BoundingRect(c)
		area := int(gocv.ContourArea(c))
		if area < minArea || area > maxArea {
			continue
		}

		if rect.Dy() == 0 {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if aspect < d.MinAspectRatio || aspect > d.MaxAspectRatio {
			continue
		}
		defects = append(defects, entity.DefectArea{
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
			Area:   area,
		})
	}

	return &entity.InspectionResult{
		ImageWidth:  mat.Cols(),
		ImageHeight: mat.Rows(),
		Defects:     defects,
		HasDefects:  len(defects) > 0,
	}, nil
}

// HighlightDefects обводит найденные области эллипсами и возвращает PNG.
func (d *GoCVDetector) HighlightDefects(imageData []byte, result *entity.InspectionResult) ([]byte, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	green := color.RGBA{G: 255, A: 255}
	for _, defect := range result.Defects {
		cx, cy := defect.Center()
		axes := image.Pt(max(defect.Width/2, 1), max(defect.Height/2, 1))
		gocv.Ellipse(&mat, image.Pt(cx, cy), axes, 0, 0, 360, green, 2)
	}

	return encodePNG(mat)
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

func encodePNG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (d *GoCVDetector) checkImageQuality(mat gocv.Mat) error {
	if mat.Empty() {
		return errors.New("quality gate failed: empty image")
	}

	if mat.Cols() < d.MinImageSide || mat.Rows() < d.MinImageSide {
		return fmt.Errorf("quality gate failed: image is too small (%dx%d)", mat.Cols(), mat.Rows())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, 250, 255, gocv.ThresholdBinary)
	overexposedRatio := ratioOfMask(bright)
	if overexposedRatio > d.MaxOverexposedRatio {
		return fmt.Errorf("quality gate failed: overexposed image (ratio=%.4f)", overexposedRatio)
	}

	return nil
}

func ratioOfMask(mask gocv.Mat) float64 {
	total := mask.Cols() * mask.Rows()
	if total <= 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}

var _ port.DefectDetector = (*GoCVDetector)(nil)

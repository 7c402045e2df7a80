//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// Шрифты Hershey не содержат μ.
var hersheyReplacer = strings.NewReplacer("μ", "u", "×", "x")

// GoCVOverlay рисует команды поверх декодированного растра средствами OpenCV.
type GoCVOverlay struct{}

// NewGoCVOverlay создаёт overlay-рендерер.
func NewGoCVOverlay() *GoCVOverlay {
	return &GoCVOverlay{}
}

// Render рисует команды на растре canvas.Background и возвращает PNG.
func (o *GoCVOverlay) Render(canvas entity.Canvas, commands []entity.DrawCommand) ([]byte, error) {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", canvas.Width, canvas.Height)
	}

	dst := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), canvas.Height, canvas.Width, gocv.MatTypeCV8UC3)
	defer dst.Close()

	body := image.Rect(0, canvas.TitleH, canvas.Width, canvas.Height-canvas.FooterH)
	if len(canvas.Background) > 0 && !body.Empty() {
		src, err := decodeToMat(canvas.Background)
		if err != nil {
			return nil, err
		}
		defer src.Close()

		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, body.Size(), 0, 0, gocv.InterpolationLinear)

		region := dst.Region(body)
		resized.CopyTo(&region)
		region.Close()
	}

	if canvas.TitleH > 0 {
		band := image.Rect(0, 0, canvas.Width, canvas.TitleH)
		gocv.Rectangle(&dst, band, titleBackground, -1)
		centeredText(&dst, band, canvas.Title, titleColor)
	}
	if canvas.FooterH > 0 {
		band := image.Rect(0, canvas.Height-canvas.FooterH, canvas.Width, canvas.Height)
		gocv.Rectangle(&dst, band, footerBackground, -1)
		centeredText(&dst, band, canvas.Footer, footerColor)
	}

	for _, cmd := range commands {
		if err := o.draw(&dst, cmd); err != nil {
			return nil, err
		}
	}

	return encodePNG(dst)
}

func (o *GoCVOverlay) draw(dst *gocv.Mat, cmd entity.DrawCommand) error {
	col, err := entity.ParseColor(cmd.Color)
	if err != nil {
		return err
	}
	// OpenCV хранит каналы в порядке BGR
	bgr := color.RGBA{R: col.B, G: col.G, B: col.R, A: 255}

	opacity := cmd.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}

	target := dst
	var layer gocv.Mat
	if opacity < 1 {
		layer = dst.Clone()
		defer layer.Close()
		target = &layer
	}

	switch cmd.Kind {
	case entity.DrawShape:
		thickness := max(int(cmd.LineWidth), 1)
		for _, piece := range dashes(outline(cmd), cmd.Dash) {
			for i := 1; i < len(piece); i++ {
				a := image.Pt(int(piece[i-1][0]), int(piece[i-1][1]))
				b := image.Pt(int(piece[i][0]), int(piece[i][1]))
				gocv.Line(target, a, b, bgr, thickness)
			}
		}
	case entity.DrawLabel:
		text := hersheyReplacer.Replace(cmd.Text)
		gocv.PutText(target, text, image.Pt(int(cmd.X), int(cmd.Y)), gocv.FontHersheySimplex, 0.4, bgr, 1)
	default:
		return errors.New("unknown draw command " + string(cmd.Kind))
	}

	if opacity < 1 {
		gocv.AddWeighted(layer, opacity, *dst, 1-opacity, 0, dst)
	}
	return nil
}

func centeredText(dst *gocv.Mat, band image.Rectangle, s string, col color.RGBA) {
	if s == "" {
		return
	}
	s = hersheyReplacer.Replace(s)
	size := gocv.GetTextSize(s, gocv.FontHersheySimplex, 0.5, 1)
	x := band.Min.X + max((band.Dx()-size.X)/2, 0)
	y := band.Min.Y + (band.Dy()+size.Y)/2
	bgr := color.RGBA{R: col.B, G: col.G, B: col.R, A: 255}
	gocv.PutText(dst, s, image.Pt(x, y), gocv.FontHersheySimplex, 0.5, bgr, 1)
}

var _ port.Renderer = (*GoCVOverlay)(nil)

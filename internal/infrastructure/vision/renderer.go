package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
	"golang.org/x/image/vector"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// ellipseSegments число отрезков ломаной, аппроксимирующей эллипс
const ellipseSegments = 72

var (
	maskBackground   = color.RGBA{A: 255}
	titleBackground  = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 255}
	footerBackground = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 255}
	titleColor       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	footerColor      = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 255}
)

// basicfont знает только Latin-1: греческую μ рисуем знаком микро.
var glyphReplacer = strings.NewReplacer("μ", "µ")

// Renderer растеризует команды отрисовки без OpenCV.
type Renderer struct {
	face font.Face
}

// NewRenderer создаёт растеризатор со встроенным шрифтом 7x13.
func NewRenderer() *Renderer {
	return &Renderer{face: basicfont.Face7x13}
}

// Render рисует фон, полосы заголовка и статистики, затем команды; возвращает PNG.
func (r *Renderer) Render(canvas entity.Canvas, commands []entity.DrawCommand) ([]byte, error) {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", canvas.Width, canvas.Height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(maskBackground), image.Point{}, draw.Src)

	body := image.Rect(0, canvas.TitleH, canvas.Width, canvas.Height-canvas.FooterH)
	if len(canvas.Background) > 0 {
		src, _, err := image.Decode(bytes.NewReader(canvas.Background))
		if err != nil {
			return nil, fmt.Errorf("decode background: %w", err)
		}
		draw.BiLinear.Scale(dst, body, src, src.Bounds(), draw.Over, nil)
	}

	if canvas.TitleH > 0 {
		band := image.Rect(0, 0, canvas.Width, canvas.TitleH)
		draw.Draw(dst, band, image.NewUniform(titleBackground), image.Point{}, draw.Src)
		r.centeredText(dst, band, canvas.Title, titleColor)
	}
	if canvas.FooterH > 0 {
		band := image.Rect(0, canvas.Height-canvas.FooterH, canvas.Width, canvas.Height)
		draw.Draw(dst, band, image.NewUniform(footerBackground), image.Point{}, draw.Src)
		r.centeredText(dst, band, canvas.Footer, footerColor)
	}

	for _, cmd := range commands {
		col, err := commandColor(cmd)
		if err != nil {
			return nil, err
		}
		switch cmd.Kind {
		case entity.DrawShape:
			strokeShape(dst, cmd, col)
		case entity.DrawLabel:
			r.text(dst, cmd.X, cmd.Y, cmd.Text, col)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func commandColor(cmd entity.DrawCommand) (color.RGBA, error) {
	col, err := entity.ParseColor(cmd.Color)
	if err != nil {
		return color.RGBA{}, err
	}
	opacity := cmd.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	// image/color хранит цвета с предумноженной альфой
	return color.RGBA{
		R: uint8(float64(col.R) * opacity),
		G: uint8(float64(col.G) * opacity),
		B: uint8(float64(col.B) * opacity),
		A: uint8(255 * opacity),
	}, nil
}

func (r *Renderer) text(dst *image.RGBA, x, y float64, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: r.face,
		Dot:  fixed.P(int(math.Round(x)), int(math.Round(y))),
	}
	d.DrawString(glyphReplacer.Replace(s))
}

func (r *Renderer) centeredText(dst *image.RGBA, band image.Rectangle, s string, col color.Color) {
	if s == "" {
		return
	}
	s = glyphReplacer.Replace(s)
	width := font.MeasureString(r.face, s).Round()
	metrics := r.face.Metrics()
	textH := (metrics.Ascent + metrics.Descent).Round()

	x := band.Min.X + (band.Dx()-width)/2
	y := band.Min.Y + (band.Dy()-textH)/2 + metrics.Ascent.Round()
	r.text(dst, float64(max(x, 0)), float64(y), s, col)
}

// outline контур фигуры в виде замкнутой ломаной
func outline(cmd entity.DrawCommand) [][2]float64 {
	if cmd.Shape == entity.ShapeRect {
		return [][2]float64{
			{cmd.X, cmd.Y},
			{cmd.X + cmd.W, cmd.Y},
			{cmd.X + cmd.W, cmd.Y + cmd.H},
			{cmd.X, cmd.Y + cmd.H},
			{cmd.X, cmd.Y},
		}
	}
	pts := make([][2]float64, 0, ellipseSegments+1)
	for i := 0; i <= ellipseSegments; i++ {
		a := 2 * math.Pi * float64(i) / ellipseSegments
		pts = append(pts, [2]float64{cmd.X + cmd.W*math.Cos(a), cmd.Y + cmd.H*math.Sin(a)})
	}
	return pts
}

// dashes режет ломаную на видимые куски по шаблону штриха.
func dashes(pts [][2]float64, pattern []float64) [][][2]float64 {
	if len(pattern) == 0 {
		return [][][2]float64{pts}
	}

	var (
		out     [][][2]float64
		cur     = [][2]float64{pts[0]}
		idx     int
		left    = pattern[0]
		visible = true
	)
	for i := 1; i < len(pts); i++ {
		from, to := pts[i-1], pts[i]
		seg := math.Hypot(to[0]-from[0], to[1]-from[1])
		pos := 0.0
		for seg-pos > left {
			pos += left
			t := pos / seg
			p := [2]float64{from[0] + (to[0]-from[0])*t, from[1] + (to[1]-from[1])*t}
			if visible {
				out = append(out, append(cur, p))
				cur = nil
			} else {
				cur = [][2]float64{p}
			}
			visible = !visible
			idx = (idx + 1) % len(pattern)
			left = pattern[idx]
		}
		left -= seg - pos
		if visible {
			cur = append(cur, to)
		}
	}
	if visible && len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}

// strokeShape обводит фигуру линией толщиной cmd.LineWidth.
func strokeShape(dst *image.RGBA, cmd entity.DrawCommand, col color.RGBA) {
	half := cmd.LineWidth / 2
	if half <= 0 {
		half = 0.5
	}

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for _, piece := range dashes(outline(cmd), cmd.Dash) {
		z := vector.NewRasterizer(w, h)
		for i := 1; i < len(piece); i++ {
			quad(z, piece[i-1], piece[i], half, float64(w), float64(h))
		}
		z.Draw(dst, dst.Bounds(), image.NewUniform(col), image.Point{})
	}
}

// quad добавляет отрезок как прямоугольник ширины 2*half; обход у всех отрезков один.
func quad(z *vector.Rasterizer, a, b [2]float64, half, w, h float64) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*half, dx/l*half
	// продлеваем на half, чтобы стыки отрезков не давали щелей
	ex, ey := dx/l*half, dy/l*half

	pt := func(x, y float64) (float32, float32) {
		return float32(math.Max(0, math.Min(x, w))), float32(math.Max(0, math.Min(y, h)))
	}
	z.MoveTo(pt(a[0]+nx-ex, a[1]+ny-ey))
	z.LineTo(pt(b[0]+nx+ex, b[1]+ny+ey))
	z.LineTo(pt(b[0]-nx+ex, b[1]-ny+ey))
	z.LineTo(pt(a[0]-nx-ex, a[1]-ny-ey))
	z.ClosePath()
}

var _ port.Renderer = (*Renderer)(nil)

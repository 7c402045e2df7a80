package app

import (
	"fmt"
	"math"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// RenderMode контекст отрисовки аннотаций
type RenderMode int

const (
	ModeSolid  RenderMode = iota // текущий слой
	ModeDotted                   // другие слои того же кристалла
	ModeMerged                   // все слои на маске кристалла
)

const (
	strokeWidth     = 2.0
	dottedOpacity   = 0.5
	sizeLabelGap    = 12.0 // отступ подписи под фигурой
	sizeLabelMargin = 20.0 // минимальное расстояние подписи от нижнего края
)

// dottedDash штрих пунктира для других слоёв
var dottedDash = []float64{5, 5}

// RenderOptions параметры перевода аннотаций в команды отрисовки
type RenderOptions struct {
	Mode            RenderMode
	TitleOffset     float64 // сдвиг по Y под полосу заголовка
	Scale           float64 // 0 означает 1
	ShowSizes       bool
	MeasurementType string  // тип с подписью размера
	RealChipSize    float64 // мкм
	CanvasChipSize  float64 // px
	CanvasHeight    float64 // 0, если высота холста неизвестна
	Palette         entity.Palette
}

// DefaultRenderOptions параметры по умолчанию для вида патча
func DefaultRenderOptions(palette entity.Palette) RenderOptions {
	return RenderOptions{
		Mode:            ModeSolid,
		Scale:           1,
		ShowSizes:       true,
		MeasurementType: "dela",
		RealChipSize:    1000,
		CanvasChipSize:  100,
		Palette:         palette,
	}
}

// RealSize переводит пиксели холста в реальные единицы; 0 при нулевом размере кристалла на холсте.
func RealSize(px, realChipSize, canvasChipSize float64) float64 {
	if canvasChipSize == 0 {
		return 0
	}
	return px * realChipSize / canvasChipSize
}

// SizeText подпись реального диаметра фигуры
func SizeText(a entity.Annotation, realChipSize, canvasChipSize float64) string {
	dx := RealSize(a.ExtentX*2, realChipSize, canvasChipSize)
	dy := RealSize(a.ExtentY*2, realChipSize, canvasChipSize)
	return fmt.Sprintf("%.1f×%.1fμm", dx, dy)
}

// BuildDrawCommands переводит аннотации в команды отрисовки в координатах холста.
func BuildDrawCommands(annotations []entity.Annotation, opts RenderOptions) []entity.DrawCommand {
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}

	opacity := 1.0
	var dash []float64
	if opts.Mode == ModeDotted {
		opacity = dottedOpacity
		dash = dottedDash
	}
	showSizes := opts.ShowSizes && opts.Mode != ModeDotted

	out := make([]entity.DrawCommand, 0, len(annotations))
	for _, a := range annotations {
		col := opts.Palette.ColorFor(a.Type)
		cmd := entity.DrawCommand{
			Kind:      entity.DrawShape,
			Shape:     a.Shape,
			X:         a.OriginX * scale,
			Y:         (a.OriginY + opts.TitleOffset) * scale,
			W:         a.ExtentX * scale,
			H:         a.ExtentY * scale,
			Color:     col,
			Opacity:   opacity,
			Dash:      dash,
			LineWidth: strokeWidth,
			Key:       a.Key,
		}
		out = append(out, cmd)

		if !showSizes || a.Type != opts.MeasurementType {
			continue
		}

		y := cmd.Y + cmd.H + sizeLabelGap
		if opts.CanvasHeight > 0 {
			y = math.Min(y, opts.CanvasHeight-sizeLabelMargin)
		}
		out = append(out, entity.DrawCommand{
			Kind:    entity.DrawLabel,
			X:       cmd.X,
			Y:       y,
			Color:   col,
			Opacity: 1,
			Text:    SizeText(a, opts.RealChipSize, opts.CanvasChipSize),
			Key:     a.Key,
		})
	}
	return out
}

// PatchDrawCommands вид патча: текущий слой сплошной линией, остальные слои пунктиром
// при включённой синхронизации.
func PatchDrawCommands(reader port.AnnotationReader, loc entity.Location, opts RenderOptions) []entity.DrawCommand {
	solid := opts
	solid.Mode = ModeSolid
	out := BuildDrawCommands(reader.FindAtLocation(loc), solid)

	if !reader.SyncMode() {
		return out
	}
	dotted := opts
	dotted.Mode = ModeDotted
	return append(out, BuildDrawCommands(reader.FindAtChipOtherLayers(loc.Chip(), loc.Layer), dotted)...)
}

// MaskDrawCommands маска кристалла: аннотации всех слоёв сплошной линией.
func MaskDrawCommands(reader port.AnnotationReader, chip entity.Chip, titleOffset, scale float64, palette entity.Palette) []entity.DrawCommand {
	return BuildDrawCommands(reader.FindAtChip(chip), RenderOptions{
		Mode:        ModeMerged,
		TitleOffset: titleOffset,
		Scale:       scale,
		Palette:     palette,
	})
}

// SummaryDrawCommands сводка по типу кристаллов: аннотации всех перечисленных кристаллов
// на одном холсте. Второе значение: число нарисованных аннотаций.
func SummaryDrawCommands(reader port.AnnotationReader, chips []entity.Chip, palette entity.Palette) ([]entity.DrawCommand, int) {
	var all []entity.Annotation
	for _, c := range chips {
		all = append(all, reader.FindAtChip(c)...)
	}
	return BuildDrawCommands(all, RenderOptions{
		Mode:    ModeMerged,
		Scale:   1,
		Palette: palette,
	}), len(all)
}

// SummaryFooter текст полосы статистики под сводкой типа
func SummaryFooter(annotations, chips int) string {
	if annotations == 0 {
		return fmt.Sprintf("No voids in %d chips", chips)
	}
	return fmt.Sprintf("%d voids in %d chips", annotations, chips)
}

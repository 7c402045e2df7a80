// Package label кодирует адрес патча (кристалл, слой) в текстовую метку и обратно.
//
// Формат: X{N?}{|x|:02}_Y{N?}{|y|:02}_L{layer:02}_LEG:{legend}. Отрицательные
// значения помечаются буквой N перед модулем, так как сегменты метки
// допускают только буквы и цифры.
package label

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"tif-patch/internal/domain/entity"
)

const (
	negativeMarker = "N"
	legendPrefix   = "_LEG:"
	padWidth       = 2
)

// Label разобранная метка патча
type Label struct {
	entity.Location
	Legend string // тип кристалла после LEG:
}

// Разделитель легенды ":" в именах файлов экспорта заменяется на "_".
var labelRe = regexp.MustCompile(`^X(N|-)?(\d+)_Y(N|-)?(\d+)_L(N|-)?(\d+)(?:_LEG[:_](.*))?$`)

var chipCoordRe = regexp.MustCompile(`^\((-?\d+),\s*(-?\d+)\)$`)

// PadCoord дополняет модуль нулями и добавляет маркер знака.
func PadCoord(v int) string {
	if v < 0 {
		return negativeMarker + pad(-v)
	}
	return pad(v)
}

func pad(v int) string {
	return fmt.Sprintf("%0*d", padWidth, v)
}

// Coord возвращает часть метки без легенды: XN05_Y07_L03.
func Coord(loc entity.Location) string {
	return fmt.Sprintf("X%s_Y%s_L%s", PadCoord(loc.ChipX), PadCoord(loc.ChipY), PadCoord(loc.Layer))
}

// Encode собирает полную метку патча.
func Encode(loc entity.Location, legend string) string {
	return Coord(loc) + legendPrefix + legend
}

// ChipStem возвращает имя кристалла без слоя: XN05_Y07.
func ChipStem(c entity.Chip) string {
	return fmt.Sprintf("X%s_Y%s", PadCoord(c.X), PadCoord(c.Y))
}

// MergeName имя файла маски кристалла без расширения.
func MergeName(c entity.Chip) string {
	return ChipStem(c) + "_merge"
}

// Decode разбирает метку. Ошибка оборачивает entity.ErrParse.
func Decode(s string) (Label, error) {
	m := labelRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Label{}, fmt.Errorf("%w: patch label %q", entity.ErrParse, s)
	}

	x, err := signed(m[1], m[2])
	if err != nil {
		return Label{}, fmt.Errorf("%w: patch label %q", entity.ErrParse, s)
	}
	y, err := signed(m[3], m[4])
	if err != nil {
		return Label{}, fmt.Errorf("%w: patch label %q", entity.ErrParse, s)
	}
	layer, err := signed(m[5], m[6])
	if err != nil {
		return Label{}, fmt.Errorf("%w: patch label %q", entity.ErrParse, s)
	}

	return Label{Location: entity.Loc(x, y, layer), Legend: m[7]}, nil
}

// DecodeOr возвращает fallback вместо ошибки.
func DecodeOr(s string, fallback entity.Location) (entity.Location, bool) {
	l, err := Decode(s)
	if err != nil {
		return fallback, false
	}
	return l.Location, true
}

// DecodeFile разбирает имя файла патча, отбрасывая каталог и расширение.
func DecodeFile(name string) (Label, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	return Decode(base)
}

func signed(marker, digits string) (int, error) {
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, err
	}
	if marker != "" {
		v = -v
	}
	return v, nil
}

// ChipCoord форматирует кристалл как "(x,y)".
func ChipCoord(c entity.Chip) string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// ParseChipCoord разбирает "(x,y)".
func ParseChipCoord(s string) (entity.Chip, error) {
	m := chipCoordRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return entity.Chip{}, fmt.Errorf("%w: chip coordinate %q", entity.ErrParse, s)
	}
	x, _ := strconv.Atoi(m[1])
	y, _ := strconv.Atoi(m[2])
	return entity.Chip{X: x, Y: y}, nil
}

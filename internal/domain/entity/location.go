package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Chip координаты кристалла на пластине
type Chip struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String возвращает ключ кристалла в виде "x,y"
func (c Chip) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Location адрес патча: кристалл плюс слой TIFF
type Location struct {
	ChipX int `json:"chipX"`
	ChipY int `json:"chipY"`
	Layer int `json:"layer"`
}

// Loc короткий конструктор Location.
func Loc(x, y, layer int) Location {
	return Location{ChipX: x, ChipY: y, Layer: layer}
}

// Chip возвращает кристалл, которому принадлежит патч.
func (l Location) Chip() Chip {
	return Chip{X: l.ChipX, Y: l.ChipY}
}

// String возвращает ключ патча в виде "x,y,layer"
func (l Location) String() string {
	return fmt.Sprintf("%d,%d,%d", l.ChipX, l.ChipY, l.Layer)
}

// Key составной идентификатор аннотации
type Key struct {
	Location
	Index int `json:"localIndex"` // порядковый номер внутри патча, не переиспользуется
}

// String возвращает ключ в формате "x,y,layer,index".
func (k Key) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", k.ChipX, k.ChipY, k.Layer, k.Index)
}

// Less задаёт детерминированный порядок ключей.
func (k Key) Less(o Key) bool {
	if k.ChipX != o.ChipX {
		return k.ChipX < o.ChipX
	}
	if k.ChipY != o.ChipY {
		return k.ChipY < o.ChipY
	}
	if k.Layer != o.Layer {
		return k.Layer < o.Layer
	}
	return k.Index < o.Index
}

// ParseKey разбирает строку "x,y,layer,index".
func ParseKey(s string) (Key, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("%w: key %q", ErrParse, s)
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Key{}, fmt.Errorf("%w: key %q", ErrParse, s)
		}
		v[i] = n
	}

	return Key{Location: Loc(v[0], v[1], v[2]), Index: v[3]}, nil
}

package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Annotation размеченная область дефекта на патче
type Annotation struct {
	Key
	Shape       ShapeKind // вид фигуры
	Type        string    // тип дефекта: void, dela, particle...
	OriginX     float64   // эллипс: центр, прямоугольник: левый верхний угол
	OriginY     float64
	ExtentX     float64 // эллипс: радиусы, прямоугольник: ширина и высота
	ExtentY     float64
	CreatedAt   time.Time
	SourceLabel string // метка патча, на котором создана аннотация
}

// Placement возвращает положение фигуры.
func (a Annotation) Placement() Placement {
	return Placement{OriginX: a.OriginX, OriginY: a.OriginY, ExtentX: a.ExtentX, ExtentY: a.ExtentY}
}

// Geometry возвращает геометрию аннотации.
func (a Annotation) Geometry() Geometry {
	return GeometryOf(a.Shape, a.Placement())
}

// Area площадь фигуры.
func (a Annotation) Area() float64 {
	return a.Geometry().Area()
}

// Move задаёт новое положение без проверки.
func (a *Annotation) Move(p Placement) {
	a.OriginX, a.OriginY = p.OriginX, p.OriginY
	a.ExtentX, a.ExtentY = p.ExtentX, p.ExtentY
}

// CreateRequest параметры новой аннотации
type CreateRequest struct {
	Location
	Placement
	Type        string
	Shape       ShapeKind // пусто: выбирается по типу
	SourceLabel string
}

// ShapeKind возвращает явно заданную фигуру или фигуру по типу.
func (r CreateRequest) ShapeKind() ShapeKind {
	if r.Shape.Valid() {
		return r.Shape
	}
	return ShapeForType(r.Type)
}

// Record экспортируемая запись аннотации (voids.json)
type Record struct {
	Key         string    `json:"key"`
	ChipX       int       `json:"chipX"`
	ChipY       int       `json:"chipY"`
	Layer       int       `json:"layer"`
	LocalIndex  int       `json:"localIndex"`
	Shape       ShapeKind `json:"shape"`
	Type        string    `json:"type"`
	OriginX     float64   `json:"originX"`
	OriginY     float64   `json:"originY"`
	ExtentX     float64   `json:"extentX"`
	ExtentY     float64   `json:"extentY"`
	CreatedAt   int64     `json:"createdAt"` // unix, миллисекунды
	SourceLabel string    `json:"sourceLabel"`
}

// ToRecord переводит аннотацию в экспортируемую запись.
func (a Annotation) ToRecord() Record {
	var created int64
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.UnixMilli()
	}
	return Record{
		Key:         a.Key.String(),
		ChipX:       a.ChipX,
		ChipY:       a.ChipY,
		Layer:       a.Layer,
		LocalIndex:  a.Index,
		Shape:       a.Shape,
		Type:        a.Type,
		OriginX:     a.OriginX,
		OriginY:     a.OriginY,
		ExtentX:     a.ExtentX,
		ExtentY:     a.ExtentY,
		CreatedAt:   created,
		SourceLabel: a.SourceLabel,
	}
}

// Annotation восстанавливает аннотацию из записи. Если поле key задано,
// оно должно совпадать с координатами записи.
func (r Record) Annotation() (Annotation, error) {
	key := Key{Location: Loc(r.ChipX, r.ChipY, r.Layer), Index: r.LocalIndex}
	if r.Key != "" {
		parsed, err := ParseKey(r.Key)
		if err != nil {
			return Annotation{}, err
		}
		if parsed != key {
			return Annotation{}, fmt.Errorf("%w: key %q does not match fields %s", ErrParse, r.Key, key)
		}
	}
	if key.Index < 0 {
		return Annotation{}, fmt.Errorf("%w: negative index in %s", ErrParse, key)
	}

	shape := r.Shape
	if !shape.Valid() {
		shape = ShapeForType(r.Type)
	}

	a := Annotation{
		Key:         key,
		Shape:       shape,
		Type:        r.Type,
		OriginX:     r.OriginX,
		OriginY:     r.OriginY,
		ExtentX:     r.ExtentX,
		ExtentY:     r.ExtentY,
		SourceLabel: r.SourceLabel,
	}
	if err := a.Placement().Validate(); err != nil {
		return Annotation{}, fmt.Errorf("record %s: %w", key, err)
	}
	if r.CreatedAt > 0 {
		a.CreatedAt = time.UnixMilli(r.CreatedAt)
	}
	return a, nil
}

// legacyRecord поля voids.json старой версии инструмента
type legacyRecord struct {
	X          *int     `json:"x"`
	Y          *int     `json:"y"`
	VoidIndex  *int     `json:"voidIndex"`
	CenterX    *float64 `json:"centerX"`
	CenterY    *float64 `json:"centerY"`
	RadiusX    *float64 `json:"radiusX"`
	RadiusY    *float64 `json:"radiusY"`
	PatchLabel string   `json:"patchLabel"`
}

// UnmarshalJSON понимает и текущий, и старый формат записи.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var cur plain
	if err := json.Unmarshal(data, &cur); err != nil {
		return err
	}

	var old legacyRecord
	if err := json.Unmarshal(data, &old); err != nil {
		return err
	}

	if old.X != nil {
		cur.ChipX = *old.X
	}
	if old.Y != nil {
		cur.ChipY = *old.Y
	}
	if old.VoidIndex != nil {
		cur.LocalIndex = *old.VoidIndex
	}
	if old.CenterX != nil {
		cur.OriginX = *old.CenterX
	}
	if old.CenterY != nil {
		cur.OriginY = *old.CenterY
	}
	if old.RadiusX != nil {
		cur.ExtentX = *old.RadiusX
	}
	if old.RadiusY != nil {
		cur.ExtentY = *old.RadiusY
	}
	if cur.SourceLabel == "" {
		cur.SourceLabel = old.PatchLabel
	}

	*r = Record(cur)
	return nil
}

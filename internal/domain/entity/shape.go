package entity

import "math"

// ShapeKind вид фигуры аннотации
type ShapeKind string

const (
	ShapeEllipse ShapeKind = "ellipse" // эллипс: origin центр, extent радиусы
	ShapeRect    ShapeKind = "rect"    // прямоугольник: origin левый верхний угол, extent ширина и высота
)

// TypeBBox тип, который исторически рисуется прямоугольником
const TypeBBox = "bbox"

// ShapeForType выбирает фигуру по типу аннотации.
func ShapeForType(annotationType string) ShapeKind {
	if annotationType == TypeBBox {
		return ShapeRect
	}
	return ShapeEllipse
}

// Valid сообщает, известна ли фигура.
func (k ShapeKind) Valid() bool {
	return k == ShapeEllipse || k == ShapeRect
}

// Point точка в координатах холста патча
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt короткий конструктор Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Box ограничивающий прямоугольник
type Box struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width ширина прямоугольника.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height высота прямоугольника.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Geometry общая геометрия фигур аннотаций
type Geometry interface {
	// Area площадь фигуры
	Area() float64

	// Contains проверяет попадание точки с допуском tol
	Contains(p Point, tol float64) bool

	// Bounds ограничивающий прямоугольник
	Bounds() Box
}

// Ellipse эллипс, оси которого параллельны осям холста
type Ellipse struct {
	CX, CY float64 // центр
	RX, RY float64 // радиусы
}

func (e Ellipse) Area() float64 {
	return math.Pi * e.RX * e.RY
}

// Contains использует нормированную квадратичную форму; допуск расширяет порог
// пропорционально меньшему радиусу.
func (e Ellipse) Contains(p Point, tol float64) bool {
	minR := math.Min(e.RX, e.RY)
	if minR <= 0 {
		return false
	}
	dx := (p.X - e.CX) / e.RX
	dy := (p.Y - e.CY) / e.RY
	return dx*dx+dy*dy <= 1+tol/minR
}

func (e Ellipse) Bounds() Box {
	return Box{MinX: e.CX - e.RX, MinY: e.CY - e.RY, MaxX: e.CX + e.RX, MaxY: e.CY + e.RY}
}

// Rectangle прямоугольник, выровненный по осям
type Rectangle struct {
	X, Y float64 // левый верхний угол
	W, H float64 // ширина и высота
}

func (r Rectangle) Area() float64 {
	return r.W * r.H
}

func (r Rectangle) Contains(p Point, tol float64) bool {
	return p.X >= r.X-tol && p.X <= r.X+r.W+tol &&
		p.Y >= r.Y-tol && p.Y <= r.Y+r.H+tol
}

func (r Rectangle) Bounds() Box {
	return Box{MinX: r.X, MinY: r.Y, MaxX: r.X + r.W, MaxY: r.Y + r.H}
}

// Placement положение и размер фигуры без привязки к виду
type Placement struct {
	OriginX, OriginY float64
	ExtentX, ExtentY float64
}

// Validate отклоняет вырожденные размеры.
func (p Placement) Validate() error {
	if !positive(p.ExtentX) || !positive(p.ExtentY) {
		return ErrDegenerateShape
	}
	if math.IsNaN(p.OriginX) || math.IsNaN(p.OriginY) || math.IsInf(p.OriginX, 0) || math.IsInf(p.OriginY, 0) {
		return ErrDegenerateShape
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// GeometryOf строит геометрию по виду фигуры и размещению.
func GeometryOf(kind ShapeKind, p Placement) Geometry {
	if kind == ShapeRect {
		return Rectangle{X: p.OriginX, Y: p.OriginY, W: p.ExtentX, H: p.ExtentY}
	}
	return Ellipse{CX: p.OriginX, CY: p.OriginY, RX: p.ExtentX, RY: p.ExtentY}
}

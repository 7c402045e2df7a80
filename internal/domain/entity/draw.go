package entity

// DrawKind вид команды отрисовки
type DrawKind string

const (
	DrawShape DrawKind = "shape" // контур фигуры
	DrawLabel DrawKind = "label" // подпись с размером
)

// DrawCommand одна команда отрисовки в целевых координатах
type DrawCommand struct {
	Kind      DrawKind
	Shape     ShapeKind
	X, Y      float64 // эллипс: центр, прямоугольник: угол, подпись: точка привязки
	W, H      float64 // эллипс: радиусы, прямоугольник: ширина и высота
	Color     string
	Opacity   float64
	Dash      []float64 // пусто: сплошная линия
	LineWidth float64
	Text      string
	Key       Key // аннотация-источник
}

// Dashed сообщает, рисуется ли контур пунктиром.
func (c DrawCommand) Dashed() bool {
	return len(c.Dash) > 0
}

// Canvas описание холста для растеризации
type Canvas struct {
	Width      int
	Height     int
	Title      string // текст в полосе заголовка
	TitleH     int    // высота полосы заголовка, 0 без заголовка
	Footer     string // текст в нижней полосе статистики
	FooterH    int
	Background []byte // исходный растр патча (PNG/JPEG), пусто: прозрачный фон
}

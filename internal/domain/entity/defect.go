package entity

// DefectArea область, найденная детектором на растре патча
type DefectArea struct {
	X      int // координата X левого верхнего угла
	Y      int // координата Y левого верхнего угла
	Width  int // ширина области в пикселях
	Height int // высота области в пикселях
	Area   int // площадь области в пикселях
}

// Center возвращает координаты центра дефекта
func (d DefectArea) Center() (x, y int) {
	return d.X + d.Width/2, d.Y + d.Height/2
}

// Placement вписывает эллипс в область дефекта.
func (d DefectArea) Placement() Placement {
	return Placement{
		OriginX: float64(d.X) + float64(d.Width)/2,
		OriginY: float64(d.Y) + float64(d.Height)/2,
		ExtentX: float64(d.Width) / 2,
		ExtentY: float64(d.Height) / 2,
	}
}

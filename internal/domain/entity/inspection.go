package entity

// InspectionResult хранит итог анализа растра патча.
type InspectionResult struct {
	ImageWidth  int          // ширина изображения
	ImageHeight int          // высота изображения
	Defects     []DefectArea // найденные области-кандидаты
	HasDefects  bool         // флаг наличия кандидатов
}

// Candidates переводит найденные области в запросы на создание аннотаций.
func (r *InspectionResult) Candidates(loc Location, annotationType, sourceLabel string) []CreateRequest {
	out := make([]CreateRequest, 0, len(r.Defects))
	for _, d := range r.Defects {
		out = append(out, CreateRequest{
			Location:    loc,
			Placement:   d.Placement(),
			Type:        annotationType,
			Shape:       ShapeEllipse,
			SourceLabel: sourceLabel,
		})
	}
	return out
}

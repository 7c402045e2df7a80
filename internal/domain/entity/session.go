package entity

import "time"

// SessionVersion тег формата снимка сессии
const SessionVersion = "v2_quickload"

// Coordinate строка списка координат: кристалл и его тип
type Coordinate struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

// Chip возвращает кристалл координаты.
func (c Coordinate) Chip() Chip {
	return Chip{X: c.X, Y: c.Y}
}

// PatchLayer один слой патча
type PatchLayer struct {
	Label string `json:"label"`
	Layer int    `json:"layer"`
	Type  string `json:"type"`
	Path  string `json:"path,omitempty"` // путь к растру в папке экспорта
}

// PatchEntry патч кристалла со всеми слоями
type PatchEntry struct {
	Chip   Chip         `json:"chip"`
	Type   string       `json:"type"`
	Layers []PatchLayer `json:"layers"`
}

// SessionMetadata параметры извлечения патчей
type SessionMetadata struct {
	TiffFileName     string       `json:"tiffFileName"`
	Timestamp        time.Time    `json:"timestamp"`
	Grid             GridSettings `json:"gridSettings"`
	CurrentPatchPage int          `json:"currentPatchPage"`
	PatchSize        int          `json:"patchSize,omitempty"`
	TotalPages       int          `json:"totalPages,omitempty"`
}

// SessionSnapshot полный снимок сессии разметки
type SessionSnapshot struct {
	ID          string          `json:"id"`
	Version     string          `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	Metadata    SessionMetadata `json:"metadata"`
	Coordinates []Coordinate    `json:"coordinates"`
	ChipPoints  []Chip          `json:"chipPoints"`
	Patches     []PatchEntry    `json:"patches"`
	Annotations []Record        `json:"voids"`
}

// CoordinateFile содержимое coordinates.json
type CoordinateFile struct {
	Coordinates []Coordinate `json:"coordinates"`
	ChipPoints  []Chip       `json:"chipPoints"`
}

// Stats сводка по хранилищу аннотаций
type Stats struct {
	Total      int                 `json:"totalVoids"`
	ByType     map[string]int      `json:"byType"`
	ByChip     map[string]int      `json:"byChip"`
	ByLayer    map[int]int         `json:"byLayer"`
	AreaByType map[string]AreaStat `json:"areaByType"`
}

// AreaStat статистика площадей одного типа
type AreaStat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

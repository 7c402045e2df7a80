package entity

import "sort"

// BinRule правило классификации: тип дефекта -> бин
type BinRule struct {
	Type  string `yaml:"type" json:"type"`
	Bin   int    `yaml:"bin" json:"bin"` // чем больше номер, тем выше приоритет
	Color string `yaml:"color" json:"color"`
	Name  string `yaml:"name" json:"name"`
}

// BinTable набор правил и бин по умолчанию для кристаллов без дефектов
type BinTable struct {
	Rules   []BinRule `yaml:"rules" json:"rules"`
	Default BinRule   `yaml:"default" json:"default"`
}

// DefaultBinTable правила классификации по умолчанию.
func DefaultBinTable() BinTable {
	return BinTable{
		Rules: []BinRule{
			{Type: "void39", Bin: 10, Color: "#ff0000", Name: "BIN10"},
			{Type: "signal", Bin: 10, Color: "#ff0000", Name: "BIN10"},
			{Type: "particle", Bin: 6, Color: "#800080", Name: "BIN6"},
			{Type: "void", Bin: 4, Color: "#ffa500", Name: "BIN4"},
			{Type: "edge", Bin: 3, Color: "#00ff00", Name: "BIN3"},
			{Type: "dela", Bin: 2, Color: "#0000ff", Name: "BIN2"},
		},
		Default: BinRule{Type: "default", Bin: 1, Color: "#87ceeb", Name: "BIN1"},
	}
}

// Lookup ищет правило для типа.
func (t BinTable) Lookup(annotationType string) (BinRule, bool) {
	for _, r := range t.Rules {
		if r.Type == annotationType {
			return r, true
		}
	}
	return BinRule{}, false
}

// Highest выбирает правило с наибольшим номером бина среди известных типов.
// При равных номерах побеждает лексикографически меньший тип.
// Если ни один тип не сопоставлен, возвращается правило по умолчанию.
func (t BinTable) Highest(types []string) BinRule {
	best := t.Default
	found := false
	for _, typ := range types {
		r, ok := t.Lookup(typ)
		if !ok {
			continue
		}
		if !found || r.Bin > best.Bin || (r.Bin == best.Bin && r.Type < best.Type) {
			best = r
			found = true
		}
	}
	return best
}

// ChipBin вычисленный бин кристалла
type ChipBin struct {
	Chip  Chip     `json:"chip"`
	Bin   int      `json:"bin"`
	Color string   `json:"color"`
	Name  string   `json:"name"`
	Types []string `json:"types"` // типы дефектов, найденные на кристалле
}

// BinCount статистика по одному бину
type BinCount struct {
	Bin   int    `json:"bin"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// BinStats статистика бинов по пластине
type BinStats struct {
	TotalChips int                 `json:"totalChips"`
	ByBin      map[string]BinCount `json:"byBin"`
}

// Sorted возвращает бины по убыванию номера.
func (s BinStats) Sorted() []BinCount {
	out := make([]BinCount, 0, len(s.ByBin))
	for _, c := range s.ByBin {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bin != out[j].Bin {
			return out[i].Bin > out[j].Bin
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// GridSettings параметры сетки кристаллов
type GridSettings struct {
	Cols    int   `yaml:"cols" json:"cols"`
	Rows    int   `yaml:"rows" json:"rows"`
	CellW   int   `yaml:"cell_w" json:"cellW"`
	CellH   int   `yaml:"cell_h" json:"cellH"`
	Origin  Point `yaml:"origin" json:"origin"`
	RefGrid Chip  `yaml:"ref_grid" json:"refGrid"` // координата кристалла в ячейке (0,0)
}

// Cell переводит координаты кристалла в индексы ячейки сетки.
// ok=false, если кристалл вне сетки.
func (g GridSettings) Cell(c Chip) (col, row int, ok bool) {
	col = c.X - g.RefGrid.X
	row = c.Y - g.RefGrid.Y
	ok = col >= 0 && col < g.Cols && row >= 0 && row < g.Rows
	return col, row, ok
}

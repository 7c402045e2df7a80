package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// ClassificationService вычисляет бины кристаллов по типам аннотаций
type ClassificationService struct {
	reader port.AnnotationReader
	table  entity.BinTable
}

// NewClassificationService создаёт сервис классификации
func NewClassificationService(reader port.AnnotationReader, table entity.BinTable) *ClassificationService {
	return &ClassificationService{reader: reader, table: table}
}

// Table текущая таблица бинов
func (s *ClassificationService) Table() entity.BinTable {
	return s.table
}

// BinFor бин кристалла по всем его слоям
func (s *ClassificationService) BinFor(chip entity.Chip) entity.ChipBin {
	types := distinctTypes(s.reader.FindAtChip(chip))
	rule := s.table.Highest(types)
	return entity.ChipBin{
		Chip:  chip,
		Bin:   rule.Bin,
		Color: rule.Color,
		Name:  rule.Name,
		Types: types,
	}
}

func distinctTypes(annotations []entity.Annotation) []string {
	seen := make(map[string]struct{}, len(annotations))
	for _, a := range annotations {
		seen[a.Type] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AllChipBins бины перечисленных кристаллов; nil означает кристаллы с аннотациями.
func (s *ClassificationService) AllChipBins(chips []entity.Chip) []entity.ChipBin {
	if chips == nil {
		chips = s.reader.Chips()
	}
	out := make([]entity.ChipBin, 0, len(chips))
	seen := make(map[entity.Chip]struct{}, len(chips))
	for _, c := range chips {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, s.BinFor(c))
	}
	return out
}

// BinStats число кристаллов в каждом бине
func (s *ClassificationService) BinStats(chips []entity.Chip) entity.BinStats {
	bins := s.AllChipBins(chips)
	stats := entity.BinStats{
		TotalChips: len(bins),
		ByBin:      make(map[string]entity.BinCount),
	}
	for _, b := range bins {
		c := stats.ByBin[b.Name]
		c.Bin, c.Name, c.Color = b.Bin, b.Name, b.Color
		c.Count++
		stats.ByBin[b.Name] = c
	}
	return stats
}

// BinMap сетка rows×cols номеров бинов; 0 означает отсутствие кристалла.
// Кристаллы вне сетки пропускаются.
func (s *ClassificationService) BinMap(chips []entity.Chip, grid entity.GridSettings) [][]int {
	out := emptyGrid(grid)
	for _, c := range chips {
		col, row, ok := grid.Cell(c)
		if !ok {
			continue
		}
		out[row][col] = s.BinFor(c).Bin
	}
	return out
}

// BondingMap сетка присутствия кристаллов: 1 есть, 0 нет.
func BondingMap(chips []entity.Chip, grid entity.GridSettings) [][]int {
	out := emptyGrid(grid)
	for _, c := range chips {
		col, row, ok := grid.Cell(c)
		if !ok {
			continue
		}
		out[row][col] = 1
	}
	return out
}

func emptyGrid(grid entity.GridSettings) [][]int {
	rows, cols := max(grid.Rows, 0), max(grid.Cols, 0)
	out := make([][]int, rows)
	for r := range out {
		out[r] = make([]int, cols)
	}
	return out
}

// BinMapText сетка бинов с заголовком координат X и столбцом координат Y.
func BinMapText(binMap [][]int, grid entity.GridSettings) string {
	if binMap == nil {
		return ""
	}
	lines := make([]string, 0, len(binMap)+1)
	lines = append(lines, axisHeader("", grid))
	lines = append(lines, axisRows(binMap, grid)...)
	return strings.Join(lines, "\n")
}

// BondingMapText сетка присутствия с закомментированной шапкой.
func BondingMapText(chips []entity.Chip, grid entity.GridSettings) string {
	if chips == nil {
		return ""
	}
	bonding := BondingMap(chips, grid)

	lines := []string{
		"# Bonding Map (Tab-separated)",
		fmt.Sprintf("# Grid Size: %d x %d", grid.Cols, grid.Rows),
		fmt.Sprintf("# Reference Grid: (%d, %d)", grid.RefGrid.X, grid.RefGrid.Y),
		"# Legend: 0=No Chip, 1=Chip Present",
		fmt.Sprintf("# Total Chips: %d", len(chips)),
		"",
		axisHeader(`Y\X`, grid),
	}
	lines = append(lines, axisRows(bonding, grid)...)
	return strings.Join(lines, "\n")
}

// BinMapPlain сетка без заголовков для старых инструментов
func BinMapPlain(binMap [][]int) string {
	return plainGrid(binMap)
}

// BondingMapPlain сетка присутствия без заголовков
func BondingMapPlain(chips []entity.Chip, grid entity.GridSettings) string {
	return plainGrid(BondingMap(chips, grid))
}

func axisHeader(corner string, grid entity.GridSettings) string {
	cells := make([]string, 0, grid.Cols+1)
	cells = append(cells, corner)
	for c := 0; c < grid.Cols; c++ {
		cells = append(cells, strconv.Itoa(grid.RefGrid.X+c))
	}
	return strings.Join(cells, "\t")
}

func axisRows(grid [][]int, settings entity.GridSettings) []string {
	out := make([]string, 0, len(grid))
	for r, row := range grid {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, strconv.Itoa(settings.RefGrid.Y+r))
		for _, v := range row {
			cells = append(cells, strconv.Itoa(v))
		}
		out = append(out, strings.Join(cells, "\t"))
	}
	return out
}

func plainGrid(grid [][]int) string {
	rows := make([]string, 0, len(grid))
	for _, row := range grid {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strconv.Itoa(v)
		}
		rows = append(rows, strings.Join(cells, "\t"))
	}
	return strings.Join(rows, "\n")
}

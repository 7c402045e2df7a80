package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tif-patch/internal/domain/entity"
)

func TestClassification_HighestBinWinsAcrossLayers(t *testing.T) {
	svc := newAnnotations(t)
	chip := entity.Chip{X: 1, Y: 2}
	mustCreate(t, svc, entity.Loc(1, 2, 1), "edge", place(10, 10, 3, 3))
	mustCreate(t, svc, entity.Loc(1, 2, 2), "particle", place(10, 10, 3, 3))

	cls := NewClassificationService(svc.Reader(), entity.DefaultBinTable())
	bin := cls.BinFor(chip)

	require.Equal(t, 6, bin.Bin)
	require.Equal(t, "BIN6", bin.Name)
	require.Equal(t, []string{"edge", "particle"}, bin.Types)
}

func TestClassification_DefaultForCleanAndUnknown(t *testing.T) {
	svc := newAnnotations(t)
	mustCreate(t, svc, entity.Loc(3, 3, 1), "scratch", place(10, 10, 3, 3))

	cls := NewClassificationService(svc.Reader(), entity.DefaultBinTable())
	require.Equal(t, 1, cls.BinFor(entity.Chip{X: 0, Y: 0}).Bin)
	require.Equal(t, 1, cls.BinFor(entity.Chip{X: 3, Y: 3}).Bin)
}

func TestClassification_TieBreakIsLexical(t *testing.T) {
	svc := newAnnotations(t)
	mustCreate(t, svc, entity.Loc(0, 0, 1), "void39", place(10, 10, 3, 3))
	mustCreate(t, svc, entity.Loc(0, 0, 1), "signal", place(30, 30, 3, 3))

	cls := NewClassificationService(svc.Reader(), entity.DefaultBinTable())
	bin := cls.BinFor(entity.Chip{})
	require.Equal(t, 10, bin.Bin)
	require.Equal(t, "BIN10", bin.Name)
}

func TestClassification_BinStats(t *testing.T) {
	svc := newAnnotations(t)
	mustCreate(t, svc, entity.Loc(0, 0, 1), "void", place(10, 10, 3, 3))
	mustCreate(t, svc, entity.Loc(1, 0, 1), "void", place(10, 10, 3, 3))

	cls := NewClassificationService(svc.Reader(), entity.DefaultBinTable())
	stats := cls.BinStats([]entity.Chip{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 0}})

	require.Equal(t, 3, stats.TotalChips)
	require.Equal(t, 2, stats.ByBin["BIN4"].Count)
	require.Equal(t, 1, stats.ByBin["BIN1"].Count)

	sorted := stats.Sorted()
	require.Equal(t, 4, sorted[0].Bin)
	require.Equal(t, 1, sorted[1].Bin)
}

func TestClassification_AllChipBinsDefaultsToAnnotatedChips(t *testing.T) {
	svc := newAnnotations(t)
	mustCreate(t, svc, entity.Loc(2, 0, 1), "dela", place(10, 10, 3, 3))
	mustCreate(t, svc, entity.Loc(1, 0, 1), "void", place(10, 10, 3, 3))

	cls := NewClassificationService(svc.Reader(), entity.DefaultBinTable())
	bins := cls.AllChipBins(nil)
	require.Len(t, bins, 2)
	require.Equal(t, entity.Chip{X: 1, Y: 0}, bins[0].Chip)
	require.Equal(t, 4, bins[0].Bin)
	require.Equal(t, 2, bins[1].Bin)
}

func TestClassification_BinMapSkipsOutOfGrid(t *testing.T) {
	svc := newAnnotations(t)
	mustCreate(t, svc, entity.Loc(11, 21, 1), "void", place(10, 10, 3, 3))

	grid := entity.GridSettings{Cols: 2, Rows: 2, RefGrid: entity.Chip{X: 10, Y: 20}}
	cls := NewClassificationService(svc.Reader(), entity.DefaultBinTable())

	got := cls.BinMap([]entity.Chip{{X: 10, Y: 20}, {X: 11, Y: 21}, {X: 50, Y: 50}, {X: 9, Y: 20}}, grid)
	require.Equal(t, [][]int{{1, 0}, {0, 4}}, got)
}

func TestBinMapText(t *testing.T) {
	grid := entity.GridSettings{Cols: 2, Rows: 2, RefGrid: entity.Chip{X: 10, Y: 20}}

	got := BinMapText([][]int{{1, 0}, {0, 4}}, grid)
	require.Equal(t, "\t10\t11\n20\t1\t0\n21\t0\t4", got)
	require.Equal(t, "", BinMapText(nil, grid))
	require.Equal(t, "1\t0\n0\t4", BinMapPlain([][]int{{1, 0}, {0, 4}}))
}

func TestBondingMapText(t *testing.T) {
	grid := entity.GridSettings{Cols: 3, Rows: 1, RefGrid: entity.Chip{X: -1, Y: 5}}

	got := BondingMapText([]entity.Chip{{X: -1, Y: 5}, {X: 1, Y: 5}}, grid)
	want := "# Bonding Map (Tab-separated)\n" +
		"# Grid Size: 3 x 1\n" +
		"# Reference Grid: (-1, 5)\n" +
		"# Legend: 0=No Chip, 1=Chip Present\n" +
		"# Total Chips: 2\n" +
		"\n" +
		"Y\\X\t-1\t0\t1\n" +
		"5\t1\t0\t1"
	require.Equal(t, want, got)
	require.Equal(t, "1\t0\t1", BondingMapPlain([]entity.Chip{{X: -1, Y: 5}, {X: 1, Y: 5}}, grid))
}

package entity

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#FFA500")
	require.NoError(t, err)
	require.Equal(t, color.RGBA{R: 255, G: 165, A: 255}, c)

	c, err = ParseColor("#0f0")
	require.NoError(t, err)
	require.Equal(t, color.RGBA{G: 255, A: 255}, c)

	c, err = ParseColor(" SkyBlue ")
	require.NoError(t, err)
	require.Equal(t, color.RGBA{R: 135, G: 206, B: 235, A: 255}, c)

	for _, s := range []string{"", "ffa500", "#ffa50", "#gggggg", "chartreuse"} {
		_, err := ParseColor(s)
		require.ErrorIs(t, err, ErrParse, s)
	}
}

func TestPaletteColorFor(t *testing.T) {
	p := DefaultPalette()
	require.Equal(t, "#ffa500", p.ColorFor("void"))
	require.Equal(t, "#ffff00", p.ColorFor("unknown"))
	require.Equal(t, "#ffff00", Palette{}.ColorFor("void"))
	require.Len(t, p.Types(), 7)
}

func TestBinTableHighest(t *testing.T) {
	table := DefaultBinTable()
	require.Equal(t, 6, table.Highest([]string{"edge", "particle", "dela"}).Bin)
	// равные номера: лексикографически меньший тип
	require.Equal(t, "signal", table.Highest([]string{"void39", "signal"}).Type)
	require.Equal(t, table.Default, table.Highest([]string{"unknown"}))
	require.Equal(t, table.Default, table.Highest(nil))
}

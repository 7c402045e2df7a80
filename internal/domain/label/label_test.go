package label

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"tif-patch/internal/domain/entity"
)

func TestEncode_NegativeCoordinate(t *testing.T) {
	require.Equal(t, "XN05_Y07_L03_LEG:good", Encode(entity.Loc(-5, 7, 3), "good"))
	require.Equal(t, "XN05_Y07_L03", Coord(entity.Loc(-5, 7, 3)))
	require.Equal(t, "X00_Y00_L00", Coord(entity.Loc(0, 0, 0)))
	require.Equal(t, "X123_YN100_L01", Coord(entity.Loc(123, -100, 1)))
}

func TestDecode_RoundTrip(t *testing.T) {
	for x := -12; x <= 12; x++ {
		for y := -12; y <= 12; y++ {
			for _, layer := range []int{-3, 0, 1, 7, 42, 150} {
				loc := entity.Loc(x, y, layer)
				got, err := Decode(Encode(loc, "good"))
				require.NoError(t, err)
				require.Equal(t, loc, got.Location)
				require.Equal(t, "good", got.Legend)
			}
		}
	}
}

func TestDecode_LegacyMinusSign(t *testing.T) {
	got, err := Decode("X-2_Y-8_L01_LEG:NA")
	require.NoError(t, err)
	require.Equal(t, entity.Loc(-2, -8, 1), got.Location)
	require.Equal(t, "NA", got.Legend)
}

func TestDecode_WithoutLegend(t *testing.T) {
	got, err := Decode("X01_Y02_L03")
	require.NoError(t, err)
	require.Equal(t, entity.Loc(1, 2, 3), got.Location)
	require.Empty(t, got.Legend)
}

func TestDecode_Malformed(t *testing.T) {
	for _, s := range []string{"", "garbage", "X_Y_L", "XA1_Y02_L01_LEG:x", "Y01_X02_L01", "X01_Y02"} {
		_, err := Decode(s)
		require.Error(t, err, s)
		require.True(t, errors.Is(err, entity.ErrParse), s)
	}
}

func TestDecodeOr_Fallback(t *testing.T) {
	fallback := entity.Loc(0, 0, 1)
	loc, ok := DecodeOr("unknown", fallback)
	require.False(t, ok)
	require.Equal(t, fallback, loc)
}

func TestDecodeFile(t *testing.T) {
	got, err := DecodeFile("no_voids/good/layer_01/X01_Y02_L01_LEG:good.png")
	require.NoError(t, err)
	require.Equal(t, entity.Loc(1, 2, 1), got.Location)
	require.Equal(t, "good", got.Legend)
}

func TestChipCoord(t *testing.T) {
	c := entity.Chip{X: -2, Y: 8}
	require.Equal(t, "(-2,8)", ChipCoord(c))

	parsed, err := ParseChipCoord("(-2,8)")
	require.NoError(t, err)
	require.Equal(t, c, parsed)

	_, err = ParseChipCoord("unknown")
	require.ErrorIs(t, err, entity.ErrParse)

	require.Equal(t, "XN02_Y08_merge", MergeName(c))
}

func TestDecodeFile_SanitizedLegendSeparator(t *testing.T) {
	got, err := DecodeFile("split/good/layer_03/XN05_Y07_L03_LEG_good.png")
	require.NoError(t, err)
	require.Equal(t, entity.Loc(-5, 7, 3), got.Location)
	require.Equal(t, "good", got.Legend)
}

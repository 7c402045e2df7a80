package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	k, err := ParseKey(" -1, 2,3 ,0 ")
	require.NoError(t, err)
	require.Equal(t, Key{Location: Loc(-1, 2, 3), Index: 0}, k)
	require.Equal(t, "-1,2,3,0", k.String())

	for _, s := range []string{"", "1,2,3", "1,2,3,4,5", "a,2,3,4"} {
		_, err := ParseKey(s)
		require.ErrorIs(t, err, ErrParse, s)
	}
}

func TestKeyLess(t *testing.T) {
	a := Key{Location: Loc(0, 5, 1), Index: 9}
	b := Key{Location: Loc(1, 0, 0), Index: 0}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.True(t, Key{Location: Loc(1, 0, 0), Index: 0}.Less(Key{Location: Loc(1, 0, 0), Index: 1}))
	require.Equal(t, Chip{X: 1, Y: 0}, b.Chip())
}

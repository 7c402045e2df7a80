package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/infrastructure/storage"
)

func TestQuickload_SaveLoad(t *testing.T) {
	ctx := context.Background()
	annotations := newAnnotations(t)
	sessions := NewSessionService(annotations, nil)
	quick := NewQuickloadService(storage.NewMemorySlotStore(), sessions, nil, 3)

	mustCreate(t, annotations, entity.Loc(1, 2, 1), "void", place(10, 10, 3, 3))
	saved, err := quick.Save(ctx, 2, sampleState())
	require.NoError(t, err)
	require.Len(t, saved.Annotations, 1)

	annotations.Clear(ctx)
	require.Zero(t, annotations.Reader().Len())

	snap, report, ok, err := quick.Load(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, report.Restored)
	require.Equal(t, "wafer_01.tif", snap.Metadata.TiffFileName)
	require.Equal(t, 1, annotations.Reader().Len())

	occupied, err := quick.Occupied(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{2}, occupied)
}

func TestQuickload_EmptySlotLeavesStore(t *testing.T) {
	ctx := context.Background()
	annotations := newAnnotations(t)
	quick := NewQuickloadService(storage.NewMemorySlotStore(), NewSessionService(annotations, nil), nil, 0)
	mustCreate(t, annotations, entity.Loc(0, 0, 1), "void", place(10, 10, 3, 3))

	_, _, ok, err := quick.Load(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, annotations.Reader().Len())
	require.Equal(t, 5, quick.MaxSlots())
}

func TestQuickload_SlotRange(t *testing.T) {
	ctx := context.Background()
	quick := NewQuickloadService(storage.NewMemorySlotStore(), NewSessionService(newAnnotations(t), nil), nil, 5)

	_, err := quick.Save(ctx, 0, sampleState())
	require.ErrorIs(t, err, ErrSlotRange)
	_, _, _, err = quick.Load(ctx, 6)
	require.ErrorIs(t, err, ErrSlotRange)
	require.ErrorIs(t, quick.Clear(ctx, -1), ErrSlotRange)
}

func TestQuickload_ClearAll(t *testing.T) {
	ctx := context.Background()
	quick := NewQuickloadService(storage.NewMemorySlotStore(), NewSessionService(newAnnotations(t), nil), nil, 3)

	for slot := 1; slot <= 3; slot++ {
		_, err := quick.Save(ctx, slot, sampleState())
		require.NoError(t, err)
	}
	require.NoError(t, quick.Clear(ctx, 2))

	occupied, err := quick.Occupied(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, occupied)

	require.NoError(t, quick.ClearAll(ctx))
	occupied, err = quick.Occupied(ctx)
	require.NoError(t, err)
	require.Empty(t, occupied)
}

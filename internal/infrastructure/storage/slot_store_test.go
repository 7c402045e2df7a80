package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

func sampleSnapshot() *entity.SessionSnapshot {
	return &entity.SessionSnapshot{
		ID:        "550e8400-e29b-41d4-a716-446655440000",
		Version:   entity.SessionVersion,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Metadata: entity.SessionMetadata{
			TiffFileName: "wafer_17.tif",
			Grid:         entity.GridSettings{Cols: 4, Rows: 3, RefGrid: entity.Chip{X: -1, Y: 0}},
		},
		Coordinates: []entity.Coordinate{{X: 0, Y: 0, Type: "good"}},
		ChipPoints:  []entity.Chip{{X: 0, Y: 0}},
		Patches: []entity.PatchEntry{{
			Chip:   entity.Chip{X: 0, Y: 0},
			Type:   "good",
			Layers: []entity.PatchLayer{{Label: "X00_Y00_L01_LEG:good", Layer: 1, Type: "good"}},
		}},
		Annotations: []entity.Record{{
			Key: "0,0,1,0", Layer: 1, Shape: entity.ShapeEllipse, Type: "void",
			OriginX: 10, OriginY: 12, ExtentX: 3, ExtentY: 4, CreatedAt: 1714557600000,
		}},
	}
}

func slotStores(t *testing.T) map[string]port.SlotStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	redisStore, err := NewRedisSlotStore(client, "test")
	require.NoError(t, err)
	t.Cleanup(redisStore.Close)

	return map[string]port.SlotStore{
		"memory": NewMemorySlotStore(),
		"redis":  redisStore,
	}
}

func TestSlotStore_SaveLoadClear(t *testing.T) {
	for name, store := range slotStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Load(ctx, 1)
			require.NoError(t, err)
			require.False(t, ok)

			want := sampleSnapshot()
			require.NoError(t, store.Save(ctx, 3, want))
			require.NoError(t, store.Save(ctx, 1, want))

			got, ok, err := store.Load(ctx, 3)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Metadata.TiffFileName, got.Metadata.TiffFileName)
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
			assert.Equal(t, want.Annotations, got.Annotations)
			assert.Equal(t, want.Patches, got.Patches)

			slots, err := store.List(ctx)
			require.NoError(t, err)
			require.Equal(t, []int{1, 3}, slots)

			require.NoError(t, store.Clear(ctx, 3))
			_, ok, err = store.Load(ctx, 3)
			require.NoError(t, err)
			require.False(t, ok)

			slots, err = store.List(ctx)
			require.NoError(t, err)
			require.Equal(t, []int{1}, slots)
		})
	}
}

func TestMemorySlotStore_LoadReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySlotStore()
	require.NoError(t, store.Save(ctx, 1, sampleSnapshot()))

	first, _, err := store.Load(ctx, 1)
	require.NoError(t, err)
	first.Annotations[0].Type = "edited"

	second, _, err := store.Load(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "void", second.Annotations[0].Type)
}

func TestRedisSlotStore_ValueIsCompressed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store, err := NewRedisSlotStore(client, "")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), 2, sampleSnapshot()))

	raw, err := mr.Get(DefaultSlotPrefix + ":slot:2")
	require.NoError(t, err)
	// магическое число кадра zstd
	require.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, []byte(raw[:4]))
}

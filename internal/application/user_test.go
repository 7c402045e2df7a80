package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/infrastructure/storage"
)

func TestUserService_SelectPatchAndCancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository("void")
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.SelectPatch(ctx, 1, 10, " X01_Y02_L01_LEG:A ")
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
	require.Equal(t, "X01_Y02_L01_LEG:A", user.Patch)

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Empty(t, user.Patch)
}

func TestUserService_SelectPatchRejectsBadLabel(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository(""))
	ctx := context.Background()

	_, err := svc.SelectPatch(ctx, 1, 10, "patch-1")
	require.ErrorIs(t, err, entity.ErrParse)

	user, err := svc.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_SetState(t *testing.T) {
	repo := storage.NewMemoryUserRepository("")
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.SetState(ctx, 2, 20, entity.StateProcessing)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, user.State)
}

func TestUserService_SetVoidType(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository("dela"))
	ctx := context.Background()

	user, err := svc.Get(ctx, 3, 30)
	require.NoError(t, err)
	require.Equal(t, "dela", user.VoidType)

	user, err = svc.SetVoidType(ctx, 3, 30, "particle")
	require.NoError(t, err)
	require.Equal(t, "particle", user.VoidType)

	_, err = svc.SetVoidType(ctx, 3, 30, "  ")
	require.ErrorIs(t, err, entity.ErrParse)
}

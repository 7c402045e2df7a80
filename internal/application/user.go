package app

import (
	"context"
	"fmt"
	"strings"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/label"
	"tif-patch/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) {
		u.SetState(state)
	})
}

// SelectPatch выбирает патч по метке и переводит оператора в ожидание растра.
func (s *UserService) SelectPatch(ctx context.Context, userID, chatID int64, patchLabel string) (*entity.User, error) {
	patchLabel = strings.TrimSpace(patchLabel)
	if _, err := label.Decode(patchLabel); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, chatID, func(u *entity.User) {
		u.SelectPatch(patchLabel)
	})
}

// SetVoidType меняет тип, которым помечаются найденные области.
func (s *UserService) SetVoidType(ctx context.Context, userID, chatID int64, voidType string) (*entity.User, error) {
	voidType = strings.TrimSpace(voidType)
	if voidType == "" {
		return nil, fmt.Errorf("%w: empty void type", entity.ErrParse)
	}
	return s.update(ctx, userID, chatID, func(u *entity.User) {
		u.VoidType = voidType
	})
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	if err := s.repo.Reset(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) update(ctx context.Context, userID, chatID int64, fn func(*entity.User)) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	fn(user)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

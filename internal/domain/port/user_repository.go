package port

import (
	"context"

	"tif-patch/internal/domain/entity"
)

// UserRepository интерфейс хранилища операторов бота
type UserRepository interface {
	// Get возвращает пользователя по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет состояние пользователя
	Save(ctx context.Context, user *entity.User) error

	// Reset сбрасывает выбранный патч и состояние
	Reset(ctx context.Context, userID int64) error
}

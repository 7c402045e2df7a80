package storage

import (
	"context"
	"sync"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище операторов бота
type MemoryUserRepository struct {
	mu       sync.RWMutex
	users    map[int64]*entity.User
	voidType string
}

// NewMemoryUserRepository создаёт хранилище; voidType задаёт тип новых аннотаций
// для операторов, которые его ещё не меняли.
func NewMemoryUserRepository(voidType string) *MemoryUserRepository {
	return &MemoryUserRepository{
		users:    make(map[int64]*entity.User),
		voidType: voidType,
	}
}

// Get возвращает оператора по ID, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.RLock()
	user, exists := r.users[userID]
	r.mu.RUnlock()

	if exists {
		return user, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// повторная проверка под записью
	if user, exists = r.users[userID]; exists {
		return user, nil
	}

	user = entity.NewUser(userID, chatID)
	if r.voidType != "" {
		user.VoidType = r.voidType
	}
	r.users[userID] = user

	return user, nil
}

// Save сохраняет состояние оператора
func (r *MemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	r.users[user.ID] = user
	r.mu.Unlock()

	return nil
}

// Reset сбрасывает выбранный патч и возвращает оператора в меню
func (r *MemoryUserRepository) Reset(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, exists := r.users[userID]; exists {
		user.Reset()
	}

	return nil
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)

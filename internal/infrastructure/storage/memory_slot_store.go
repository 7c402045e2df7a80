package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// MemorySlotStore слоты быстрого сохранения в памяти процесса.
// Снимки хранятся сериализованными, чтобы загрузка не делила срезы с сохранённой копией.
type MemorySlotStore struct {
	mu    sync.RWMutex
	slots map[int][]byte
}

// NewMemorySlotStore создаёт пустое хранилище слотов
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{
		slots: make(map[int][]byte),
	}
}

// Save записывает снимок в слот
func (s *MemorySlotStore) Save(ctx context.Context, slot int, snapshot *entity.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode slot %d: %w", slot, err)
	}

	s.mu.Lock()
	s.slots[slot] = data
	s.mu.Unlock()

	return nil
}

// Load читает снимок из слота
func (s *MemorySlotStore) Load(ctx context.Context, slot int) (*entity.SessionSnapshot, bool, error) {
	s.mu.RLock()
	data, ok := s.slots[slot]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	var snapshot entity.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode slot %d: %w", slot, err)
	}
	return &snapshot, true, nil
}

// Clear очищает слот
func (s *MemorySlotStore) Clear(ctx context.Context, slot int) error {
	s.mu.Lock()
	delete(s.slots, slot)
	s.mu.Unlock()

	return nil
}

// List занятые слоты по возрастанию
func (s *MemorySlotStore) List(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int, 0, len(s.slots))
	for slot := range s.slots {
		out = append(out, slot)
	}
	sort.Ints(out)
	return out, nil
}

// Проверка реализации интерфейса
var _ port.SlotStore = (*MemorySlotStore)(nil)

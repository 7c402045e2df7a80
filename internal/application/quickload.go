package app

import (
	"context"
	"errors"
	"fmt"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
	"tif-patch/internal/logging"
)

// ErrSlotRange номер слота вне 1..N
var ErrSlotRange = errors.New("quickload slot out of range")

// QuickloadService слоты быстрого сохранения сессии
type QuickloadService struct {
	slots    port.SlotStore
	sessions *SessionService
	log      *logging.Logger
	maxSlots int
}

// NewQuickloadService создаёт сервис с maxSlots слотами, пронумерованными с 1.
func NewQuickloadService(slots port.SlotStore, sessions *SessionService, log *logging.Logger, maxSlots int) *QuickloadService {
	if log == nil {
		log = logging.Noop()
	}
	if maxSlots <= 0 {
		maxSlots = 5
	}
	return &QuickloadService{
		slots:    slots,
		sessions: sessions,
		log:      log,
		maxSlots: maxSlots,
	}
}

// MaxSlots число слотов
func (s *QuickloadService) MaxSlots() int {
	return s.maxSlots
}

func (s *QuickloadService) check(slot int) error {
	if slot < 1 || slot > s.maxSlots {
		return fmt.Errorf("%w: %d (1..%d)", ErrSlotRange, slot, s.maxSlots)
	}
	return nil
}

// Save снимает сессию и кладёт её в слот
func (s *QuickloadService) Save(ctx context.Context, slot int, state SessionState) (*entity.SessionSnapshot, error) {
	if err := s.check(slot); err != nil {
		return nil, err
	}

	snapshot := s.sessions.Serialize(state)
	if err := s.slots.Save(ctx, slot, snapshot); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "quick save",
		"slot", slot,
		"tiff", snapshot.Metadata.TiffFileName,
		"patches", len(snapshot.Patches),
		"voids", len(snapshot.Annotations),
	)
	return snapshot, nil
}

// Load восстанавливает сессию из слота; ok=false, если слот пуст.
func (s *QuickloadService) Load(ctx context.Context, slot int) (*entity.SessionSnapshot, RestoreReport, bool, error) {
	if err := s.check(slot); err != nil {
		return nil, RestoreReport{}, false, err
	}

	snapshot, ok, err := s.slots.Load(ctx, slot)
	if err != nil || !ok {
		return nil, RestoreReport{}, false, err
	}

	report, err := s.sessions.Restore(ctx, snapshot)
	if err != nil {
		return nil, RestoreReport{}, false, err
	}
	return snapshot, report, true, nil
}

// Clear очищает слот
func (s *QuickloadService) Clear(ctx context.Context, slot int) error {
	if err := s.check(slot); err != nil {
		return err
	}
	return s.slots.Clear(ctx, slot)
}

// ClearAll очищает все слоты
func (s *QuickloadService) ClearAll(ctx context.Context) error {
	for slot := 1; slot <= s.maxSlots; slot++ {
		if err := s.slots.Clear(ctx, slot); err != nil {
			return err
		}
	}
	return nil
}

// Occupied занятые слоты
func (s *QuickloadService) Occupied(ctx context.Context) ([]int, error) {
	return s.slots.List(ctx)
}

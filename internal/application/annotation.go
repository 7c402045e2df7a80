package app

import (
	"context"
	"fmt"
	"math"
	"sync"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/label"
	"tif-patch/internal/domain/port"
	"tif-patch/internal/logging"
)

// AnnotationService упорядочивает все изменения хранилища аннотаций.
// Чтение для отрисовки идёт через Reader под тем же мьютексом.
type AnnotationService struct {
	mu        sync.Mutex
	store     port.AnnotationStore
	log       *logging.Logger
	tolerance float64
}

// NewAnnotationService создаёт сервис; tolerance задаёт допуск поиска редактируемой аннотации.
func NewAnnotationService(store port.AnnotationStore, log *logging.Logger, tolerance float64) *AnnotationService {
	if log == nil {
		log = logging.Noop()
	}
	return &AnnotationService{
		store:     store,
		log:       log,
		tolerance: tolerance,
	}
}

// Create добавляет аннотацию; вырожденная фигура не меняет хранилище.
func (s *AnnotationService) Create(ctx context.Context, req entity.CreateRequest) (entity.Annotation, error) {
	s.mu.Lock()
	a, err := s.store.Create(req)
	s.mu.Unlock()

	s.log.LogCreate(ctx, a.Key.String(), req.Type, err)
	return a, err
}

// Paint создаёт аннотацию на патче, заданном меткой.
func (s *AnnotationService) Paint(ctx context.Context, patchLabel, annotationType string, p entity.Placement) (entity.Annotation, error) {
	l, err := label.Decode(patchLabel)
	if err != nil {
		return entity.Annotation{}, err
	}
	return s.Create(ctx, entity.CreateRequest{
		Location:    l.Location,
		Placement:   p,
		Type:        annotationType,
		SourceLabel: patchLabel,
	})
}

// FindEditable наименьшая аннотация под точкой с настроенным допуском.
func (s *AnnotationService) FindEditable(loc entity.Location, p entity.Point) (entity.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.store.HitTest(loc, p, s.tolerance)
	if len(hits) == 0 {
		return entity.Annotation{}, false
	}
	return hits[0], true
}

// Delete удаляет самую внутреннюю аннотацию под точкой
func (s *AnnotationService) Delete(ctx context.Context, loc entity.Location, p entity.Point) bool {
	s.mu.Lock()
	deleted := s.store.DeleteSmallestAt(loc, p)
	s.mu.Unlock()

	s.log.LogDelete(ctx, loc.String(), deleted)
	return deleted
}

// Update перемещает самую внутреннюю аннотацию под точкой
func (s *AnnotationService) Update(ctx context.Context, loc entity.Location, p entity.Point, to entity.Placement) (*entity.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.UpdateSmallestAt(loc, p, to)
}

// ToggleSync переключает отображение других слоёв
func (s *AnnotationService) ToggleSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := !s.store.SyncMode()
	s.store.SetSyncMode(enabled)
	return enabled
}

// Clear очищает хранилище перед новым извлечением патчей
func (s *AnnotationService) Clear(ctx context.Context) {
	s.mu.Lock()
	s.store.Clear()
	s.mu.Unlock()

	s.log.InfoContext(ctx, "annotation store cleared")
}

// Stats сводная статистика
func (s *AnnotationService) Stats() entity.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Stats()
}

// Reader представление хранилища только для чтения; каждый вызов идёт под мьютексом сервиса.
func (s *AnnotationService) Reader() port.AnnotationReader {
	return lockedReader{s: s}
}

type lockedReader struct {
	s *AnnotationService
}

func (r lockedReader) FindAtLocation(loc entity.Location) []entity.Annotation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.FindAtLocation(loc)
}

func (r lockedReader) FindAtChip(chip entity.Chip) []entity.Annotation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.FindAtChip(chip)
}

func (r lockedReader) FindAtChipOtherLayers(chip entity.Chip, excludeLayer int) []entity.Annotation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.FindAtChipOtherLayers(chip, excludeLayer)
}

func (r lockedReader) HitTest(loc entity.Location, p entity.Point, tolerance float64) []entity.Annotation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.HitTest(loc, p, tolerance)
}

func (r lockedReader) SyncMode() bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.SyncMode()
}

func (r lockedReader) Chips() []entity.Chip {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.Chips()
}

func (r lockedReader) ExportAll() []entity.Record {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.ExportAll()
}

func (r lockedReader) Stats() entity.Stats {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.Stats()
}

func (r lockedReader) Len() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.store.Len()
}

// replace подменяет содержимое хранилища целиком
func (s *AnnotationService) replace(annotations []entity.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Replace(annotations)
}

// ApplyDetections превращает области детектора в аннотации патча, пропуская
// кандидатов рядом с уже размеченными областями того же типа.
func (s *AnnotationService) ApplyDetections(ctx context.Context, loc entity.Location, sourceLabel, annotationType string, result *entity.InspectionResult, radius float64) ([]entity.Annotation, error) {
	if result == nil || !result.HasDefects {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.store.FindAtLocation(loc)
	var created []entity.Annotation
	for _, req := range result.Candidates(loc, annotationType, sourceLabel) {
		if isDuplicate(kept, req.Placement, req.Type, radius) {
			continue
		}
		a, err := s.store.Create(req)
		if err != nil {
			s.log.LogSkip(ctx, sourceLabel, err.Error())
			continue
		}
		kept = append(kept, a)
		created = append(created, a)
	}

	s.log.InfoContext(ctx, "detections applied",
		"patch", sourceLabel,
		"candidates", len(result.Defects),
		"created", len(created),
	)
	return created, nil
}

// RemoveDuplicates оставляет первую из аннотаций одного типа, центры которых
// ближе tolerance по каждой оси.
func RemoveDuplicates(annotations []entity.Annotation, tolerance float64) []entity.Annotation {
	unique := make([]entity.Annotation, 0, len(annotations))
	for _, a := range annotations {
		if isDuplicate(unique, a.Placement(), a.Type, tolerance) {
			continue
		}
		unique = append(unique, a)
	}
	return unique
}

func isDuplicate(existing []entity.Annotation, p entity.Placement, annotationType string, tolerance float64) bool {
	for _, u := range existing {
		if u.Type != annotationType {
			continue
		}
		if math.Abs(u.OriginX-p.OriginX) < tolerance && math.Abs(u.OriginY-p.OriginY) < tolerance {
			return true
		}
	}
	return false
}

// Locate разбирает метку патча для команд, принимающих метку.
func Locate(patchLabel string) (entity.Location, error) {
	l, err := label.Decode(patchLabel)
	if err != nil {
		return entity.Location{}, fmt.Errorf("locate patch: %w", err)
	}
	return l.Location, nil
}

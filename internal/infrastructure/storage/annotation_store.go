package storage

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// DefaultTolerance допуск попадания при поиске редактируемой аннотации, px
const DefaultTolerance = 4.0

// AnnotationStore in-memory хранилище аннотаций.
//
// Аннотации и счётчики индексов живут в одном агрегате и очищаются только
// вместе. Хранилище не синхронизировано: вызывающая сторона упорядочивает
// изменения (см. app.AnnotationService).
type AnnotationStore struct {
	annotations map[entity.Key]*entity.Annotation
	counters    map[entity.Location]int
	syncMode    bool
	now         func() time.Time
}

// StoreOption настройка хранилища
type StoreOption func(*AnnotationStore)

// WithClock подменяет источник времени создания.
func WithClock(now func() time.Time) StoreOption {
	return func(s *AnnotationStore) {
		s.now = now
	}
}

// WithSyncMode задаёт начальный режим синхронизации слоёв.
func WithSyncMode(enabled bool) StoreOption {
	return func(s *AnnotationStore) {
		s.syncMode = enabled
	}
}

// NewAnnotationStore создаёт пустое хранилище
func NewAnnotationStore(opts ...StoreOption) *AnnotationStore {
	s := &AnnotationStore{
		annotations: make(map[entity.Key]*entity.Annotation),
		counters:    make(map[entity.Location]int),
		syncMode:    true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create проверяет геометрию и только затем выдаёт следующий индекс патча.
func (s *AnnotationStore) Create(req entity.CreateRequest) (entity.Annotation, error) {
	if err := req.Placement.Validate(); err != nil {
		return entity.Annotation{}, fmt.Errorf("create at %s: %w", req.Location, err)
	}

	idx := s.counters[req.Location]
	a := &entity.Annotation{
		Key:         entity.Key{Location: req.Location, Index: idx},
		Shape:       req.ShapeKind(),
		Type:        req.Type,
		CreatedAt:   s.now(),
		SourceLabel: req.SourceLabel,
	}
	a.Move(req.Placement)

	s.annotations[a.Key] = a
	s.counters[req.Location] = idx + 1

	return *a, nil
}

// Insert кладёт аннотацию с уже назначенным индексом (восстановление сессии).
func (s *AnnotationStore) Insert(a entity.Annotation) {
	stored := a
	s.annotations[a.Key] = &stored
	if next := a.Index + 1; s.counters[a.Location] < next {
		s.counters[a.Location] = next
	}
}

// Replace строит новые таблицы целиком и только потом подменяет текущие.
func (s *AnnotationStore) Replace(annotations []entity.Annotation) {
	next := &AnnotationStore{
		annotations: make(map[entity.Key]*entity.Annotation, len(annotations)),
		counters:    make(map[entity.Location]int),
	}
	for _, a := range annotations {
		next.Insert(a)
	}
	s.annotations = next.annotations
	s.counters = next.counters
}

// NextIndex индекс, который получит следующая аннотация патча.
func (s *AnnotationStore) NextIndex(loc entity.Location) int {
	return s.counters[loc]
}

// FindAtLocation все аннотации патча
func (s *AnnotationStore) FindAtLocation(loc entity.Location) []entity.Annotation {
	return s.collect(func(a *entity.Annotation) bool {
		return a.Location == loc
	})
}

// FindAtChip аннотации кристалла на всех слоях
func (s *AnnotationStore) FindAtChip(chip entity.Chip) []entity.Annotation {
	return s.collect(func(a *entity.Annotation) bool {
		return a.Chip() == chip
	})
}

// FindAtChipOtherLayers аннотации остальных слоёв кристалла для пунктирного отображения
func (s *AnnotationStore) FindAtChipOtherLayers(chip entity.Chip, excludeLayer int) []entity.Annotation {
	if !s.syncMode {
		return nil
	}
	return s.collect(func(a *entity.Annotation) bool {
		return a.Chip() == chip && a.Layer != excludeLayer
	})
}

// HitTest аннотации патча, содержащие точку, от меньшей площади к большей.
func (s *AnnotationStore) HitTest(loc entity.Location, p entity.Point, tolerance float64) []entity.Annotation {
	hits := s.collect(func(a *entity.Annotation) bool {
		return a.Location == loc && a.Geometry().Contains(p, tolerance)
	})
	sort.SliceStable(hits, func(i, j int) bool {
		ai, aj := hits[i].Area(), hits[j].Area()
		if ai != aj {
			return ai < aj
		}
		return hits[i].Key.Less(hits[j].Key)
	})
	return hits
}

// FindEditable наименьшая аннотация под точкой с допуском по умолчанию.
func (s *AnnotationStore) FindEditable(loc entity.Location, p entity.Point) (entity.Annotation, bool) {
	hits := s.HitTest(loc, p, DefaultTolerance)
	if len(hits) == 0 {
		return entity.Annotation{}, false
	}
	return hits[0], true
}

// DeleteSmallestAt удаляет самую внутреннюю аннотацию под точкой
func (s *AnnotationStore) DeleteSmallestAt(loc entity.Location, p entity.Point) bool {
	hits := s.HitTest(loc, p, 0)
	if len(hits) == 0 {
		return false
	}
	delete(s.annotations, hits[0].Key)
	return true
}

// UpdateSmallestAt перемещает самую внутреннюю аннотацию под точкой.
// Возвращает nil без ошибки, если под точкой ничего нет.
func (s *AnnotationStore) UpdateSmallestAt(loc entity.Location, p entity.Point, to entity.Placement) (*entity.Annotation, error) {
	hits := s.HitTest(loc, p, 0)
	if len(hits) == 0 {
		return nil, nil
	}
	if err := to.Validate(); err != nil {
		return nil, fmt.Errorf("update %s: %w", hits[0].Key, err)
	}

	target := s.annotations[hits[0].Key]
	target.Move(to)

	updated := *target
	return &updated, nil
}

// SetSyncMode включает или выключает синхронизацию слоёв
func (s *AnnotationStore) SetSyncMode(enabled bool) {
	s.syncMode = enabled
}

// ToggleSyncMode переключает синхронизацию и возвращает новое значение
func (s *AnnotationStore) ToggleSyncMode() bool {
	s.syncMode = !s.syncMode
	return s.syncMode
}

// SyncMode текущий режим синхронизации
func (s *AnnotationStore) SyncMode() bool {
	return s.syncMode
}

// Clear очищает аннотации и счётчики одним действием
func (s *AnnotationStore) Clear() {
	s.annotations = make(map[entity.Key]*entity.Annotation)
	s.counters = make(map[entity.Location]int)
}

// Len число аннотаций
func (s *AnnotationStore) Len() int {
	return len(s.annotations)
}

// Chips кристаллы с аннотациями, отсортированные по (x, y)
func (s *AnnotationStore) Chips() []entity.Chip {
	seen := make(map[entity.Chip]struct{})
	for k := range s.annotations {
		seen[k.Chip()] = struct{}{}
	}
	out := make([]entity.Chip, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// ExportAll все аннотации в порядке ключей
func (s *AnnotationStore) ExportAll() []entity.Record {
	all := s.collect(func(*entity.Annotation) bool { return true })
	out := make([]entity.Record, 0, len(all))
	for _, a := range all {
		out = append(out, a.ToRecord())
	}
	return out
}

// Stats сводка по типам, кристаллам и слоям
func (s *AnnotationStore) Stats() entity.Stats {
	st := entity.Stats{
		Total:      len(s.annotations),
		ByType:     make(map[string]int),
		ByChip:     make(map[string]int),
		ByLayer:    make(map[int]int),
		AreaByType: make(map[string]entity.AreaStat),
	}

	areas := make(map[string][]float64)
	for _, a := range s.annotations {
		st.ByType[a.Type]++
		st.ByChip[a.Chip().String()]++
		st.ByLayer[a.Layer]++
		areas[a.Type] = append(areas[a.Type], a.Area())
	}

	for typ, xs := range areas {
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) < 2 {
			std = 0
		}
		st.AreaByType[typ] = entity.AreaStat{
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(xs),
			Max:    floats.Max(xs),
		}
	}

	return st
}

// collect возвращает копии подходящих аннотаций в порядке ключей.
func (s *AnnotationStore) collect(match func(*entity.Annotation) bool) []entity.Annotation {
	var out []entity.Annotation
	for _, a := range s.annotations {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.Less(out[j].Key)
	})
	return out
}

// Проверка реализации интерфейса
var _ port.AnnotationStore = (*AnnotationStore)(nil)

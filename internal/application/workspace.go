package app

import (
	"context"
	"sync"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// Workspace открытая сессия: метаданные, координаты, патчи и источник их растров.
type Workspace struct {
	mu      sync.RWMutex
	state   SessionState
	rasters port.PatchSource
	origin  string
}

// NewWorkspace создаёт пустое рабочее пространство
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// Open подменяет сессию; rasters может быть nil.
func (w *Workspace) Open(origin string, state SessionState, rasters port.PatchSource) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.origin = origin
	w.state = state
	w.rasters = rasters
}

// OpenSnapshot подменяет сессию данными снимка; источник растров сохраняется.
func (w *Workspace) OpenSnapshot(origin string, snap *entity.SessionSnapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.origin = origin
	w.state = SessionState{
		Metadata:    snap.Metadata,
		Coordinates: snap.Coordinates,
		ChipPoints:  snap.ChipPoints,
		Patches:     snap.Patches,
	}
}

// State текущая сессия
func (w *Workspace) State() SessionState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Origin откуда открыта сессия
func (w *Workspace) Origin() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.origin
}

// Chips кристаллы пластины: chipPoints, а без них кристаллы из координат.
func (w *Workspace) Chips() []entity.Chip {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.state.ChipPoints) > 0 {
		return append([]entity.Chip(nil), w.state.ChipPoints...)
	}
	if len(w.state.Coordinates) == 0 {
		return nil
	}
	seen := make(map[entity.Chip]struct{}, len(w.state.Coordinates))
	out := make([]entity.Chip, 0, len(w.state.Coordinates))
	for _, c := range w.state.Coordinates {
		chip := c.Chip()
		if _, ok := seen[chip]; ok {
			continue
		}
		seen[chip] = struct{}{}
		out = append(out, chip)
	}
	return out
}

// Grid сетка сессии или fallback, если в метаданных она не задана.
func (w *Workspace) Grid(fallback entity.GridSettings) entity.GridSettings {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.state.Metadata.Grid.Cols > 0 && w.state.Metadata.Grid.Rows > 0 {
		return w.state.Metadata.Grid
	}
	return fallback
}

// Raster растр патча из источника открытой сессии
func (w *Workspace) Raster(ctx context.Context, layer entity.PatchLayer) ([]byte, bool, error) {
	w.mu.RLock()
	rasters := w.rasters
	w.mu.RUnlock()

	if rasters == nil {
		return nil, false, nil
	}
	return rasters.Raster(ctx, layer)
}

var _ port.PatchSource = (*Workspace)(nil)

package app

import (
	"context"
	"errors"
	"fmt"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
	"tif-patch/internal/logging"
)

// ErrNoPatchSelected фотография пришла до выбора патча
var ErrNoPatchSelected = errors.New("no patch selected")

type InspectionService struct {
	users       *UserService
	annotations *AnnotationService
	detector    port.DefectDetector
	overlay     port.Renderer
	opts        InspectionOptions
	log         *logging.Logger
}

// InspectionOptions параметры разметки по фотографии
type InspectionOptions struct {
	Radius float64 // ближе этого расстояния новая область считается дублем
	Render RenderOptions
}

// InspectionOutput содержит результат поиска областей, созданные аннотации и картинки.
type InspectionOutput struct {
	Patch       string
	Result      *entity.InspectionResult
	Created     []entity.Annotation
	Highlighted []byte // кандидаты детектора
	Overlay     []byte // все аннотации патча поверх фотографии
}

// NewInspectionService создаёт сервис разметки патчей по фотографии; overlay может быть nil.
func NewInspectionService(users *UserService, annotations *AnnotationService, detector port.DefectDetector, overlay port.Renderer, opts InspectionOptions, log *logging.Logger) *InspectionService {
	if log == nil {
		log = logging.Noop()
	}
	return &InspectionService{
		users:       users,
		annotations: annotations,
		detector:    detector,
		overlay:     overlay,
		opts:        opts,
		log:         log,
	}
}

// ProcessPatchPhoto прогоняет растр выбранного патча через детектор и добавляет
// найденные области в хранилище аннотаций.
func (s *InspectionService) ProcessPatchPhoto(ctx context.Context, userID, chatID int64, photo []byte) (*InspectionOutput, error) {
	if s.detector == nil {
		return nil, fmt.Errorf("%w: detector", entity.ErrNotConfigured)
	}

	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.State != entity.StateAwaitingPhoto || user.Patch == "" {
		return nil, ErrNoPatchSelected
	}
	patch, voidType := user.Patch, user.VoidType

	loc, err := Locate(patch)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.SetState(ctx, userID, chatID, entity.StateProcessing); err != nil {
		return nil, err
	}
	// Патч остаётся выбранным: следующий растр идёт в тот же патч
	defer func() {
		_, _ = s.users.SetState(ctx, userID, chatID, entity.StateAwaitingPhoto)
	}()

	result, err := s.detector.Inspect(ctx, photo)
	if err != nil {
		return nil, err
	}

	created, err := s.annotations.ApplyDetections(ctx, loc, patch, voidType, result, s.opts.Radius)
	if err != nil {
		return nil, err
	}

	out := &InspectionOutput{
		Patch:   patch,
		Result:  result,
		Created: created,
	}
	if result.HasDefects {
		out.Highlighted, err = s.detector.HighlightDefects(photo, result)
		if err != nil {
			s.log.WithPatch(patch).WarnContext(ctx, "highlight failed", "error", err)
		}
	}
	out.Overlay = s.renderOverlay(ctx, loc, photo, result)

	return out, nil
}

// renderOverlay рисует аннотации патча на фотографии в её собственных пикселях.
func (s *InspectionService) renderOverlay(ctx context.Context, loc entity.Location, photo []byte, result *entity.InspectionResult) []byte {
	if s.overlay == nil || result.ImageWidth <= 0 || result.ImageHeight <= 0 {
		return nil
	}

	opts := s.opts.Render
	opts.CanvasHeight = float64(result.ImageHeight)
	data, err := s.overlay.Render(entity.Canvas{
		Width:      result.ImageWidth,
		Height:     result.ImageHeight,
		Background: photo,
	}, PatchDrawCommands(s.annotations.Reader(), loc, opts))
	if err != nil {
		s.log.WarnContext(ctx, "overlay failed", "patch", loc.String(), "error", err)
		return nil
	}
	return data
}

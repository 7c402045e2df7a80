package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/label"
	"tif-patch/internal/domain/port"
	"tif-patch/internal/logging"
)

// ExportOptions размеры масок и параллелизм записи
type ExportOptions struct {
	BatchSize      int // одновременных записей патчей
	MergeBatchSize int // одновременных масок кристаллов
	PatchSize      int // ширина маски, px
	TitleHeight    int
	StatsHeight    int
	Render         RenderOptions // подписи размеров на split
}

// DefaultExportOptions значения по умолчанию
func DefaultExportOptions(palette entity.Palette) ExportOptions {
	return ExportOptions{
		BatchSize:      50,
		MergeBatchSize: 20,
		PatchSize:      300,
		TitleHeight:    40,
		StatsHeight:    30,
		Render:         DefaultRenderOptions(palette),
	}
}

// ExportRequest что и куда экспортировать
type ExportRequest struct {
	Folder   string // корень внутри приёмника; пусто значит FolderName(tiff, now)
	State    SessionState
	Progress port.ProgressFunc
}

// ExportReport итог экспорта
type ExportReport struct {
	Folder   string
	Files    int
	Warnings []string
}

// ExportService пишет папку экспорта; хранилище аннотаций только читается.
type ExportService struct {
	annotations *AnnotationService
	renderer    port.Renderer
	patches     port.PatchSource
	opts        ExportOptions
	log         *logging.Logger
	now         func() time.Time
}

// NewExportService создаёт сервис экспорта; patches может быть nil,
// тогда вместо растров пишутся пустые маски.
func NewExportService(annotations *AnnotationService, renderer port.Renderer, patches port.PatchSource, opts ExportOptions, log *logging.Logger) *ExportService {
	if log == nil {
		log = logging.Noop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MergeBatchSize <= 0 {
		opts.MergeBatchSize = 20
	}
	if opts.PatchSize <= 0 {
		opts.PatchSize = 300
	}
	return &ExportService{
		annotations: annotations,
		renderer:    renderer,
		patches:     patches,
		opts:        opts,
		log:         log,
		now:         time.Now,
	}
}

type patchTask struct {
	entry   entity.PatchEntry
	layer   entity.PatchLayer
	loc     entity.Location
	noVoids bool
}

type exportRun struct {
	sink     port.FolderSink
	root     string
	reader   port.AnnotationReader
	progress port.ProgressFunc

	mu       sync.Mutex
	done     int
	total    int
	files    int
	warnings []string
}

func (r *exportRun) advance(n int, message string) {
	r.mu.Lock()
	r.done += n
	done, total := r.done, r.total
	r.mu.Unlock()

	if r.progress != nil {
		r.progress(done, total, message)
	}
}

func (r *exportRun) warn(item, reason string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, item+": "+reason)
	r.mu.Unlock()
}

func (r *exportRun) write(ctx context.Context, name string, data []byte) error {
	full := path.Join(r.root, sanitizePath(name))
	if err := r.sink.WriteFile(ctx, full, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", entity.ErrIO, full, err)
	}
	r.mu.Lock()
	r.files++
	r.mu.Unlock()
	return nil
}

// ExportFolder пишет metadata.json, coordinates.json, voids.json, README.txt,
// затем no_voids, split, merge и summary. Первая ошибка записи прерывает экспорт.
func (s *ExportService) ExportFolder(ctx context.Context, sink port.FolderSink, req ExportRequest) (ExportReport, error) {
	folder := req.Folder
	if folder == "" {
		folder = FolderName(req.State.Metadata.TiffFileName, s.now())
	}

	run := &exportRun{
		sink:     sink,
		root:     folder,
		reader:   s.annotations.Reader(),
		progress: req.Progress,
	}

	tasks := s.plan(run.reader, req.State.Patches)
	chips := mergeTargets(req.State.Patches)
	types := patchTypes(req.State.Patches)

	run.total = 4 + len(tasks) + len(chips) + len(types)
	for _, t := range tasks {
		if t.noVoids {
			run.total++
		}
	}

	err := s.export(ctx, run, req.State, tasks, chips, types)

	report := ExportReport{Folder: folder, Files: run.files, Warnings: run.warnings}
	s.log.LogExport(ctx, folder, report.Files, err)
	return report, err
}

func (s *ExportService) export(ctx context.Context, run *exportRun, state SessionState, tasks []patchTask, chips []chipTarget, types []string) error {
	if err := s.writeMetadata(ctx, run, state); err != nil {
		return err
	}
	if err := s.writePatches(ctx, run, tasks); err != nil {
		return err
	}
	if err := s.writeMerges(ctx, run, state.Metadata.Grid, chips); err != nil {
		return err
	}
	return s.writeSummaries(ctx, run, state, types)
}

func (s *ExportService) plan(reader port.AnnotationReader, patches []entity.PatchEntry) []patchTask {
	var tasks []patchTask
	for _, entry := range patches {
		for _, layer := range entry.Layers {
			// метка патча точнее записи; без метки берём кристалл и слой записи
			loc, _ := label.DecodeOr(layer.Label, entity.Loc(entry.Chip.X, entry.Chip.Y, layer.Layer))
			tasks = append(tasks, patchTask{
				entry:   entry,
				layer:   layer,
				loc:     loc,
				noVoids: len(reader.FindAtLocation(loc)) == 0,
			})
		}
	}
	return tasks
}

func (s *ExportService) writeMetadata(ctx context.Context, run *exportRun, state SessionState) error {
	files := []struct {
		name string
		v    any
	}{
		{MetadataFile, state.Metadata},
		{CoordinatesFile, entity.CoordinateFile{Coordinates: state.Coordinates, ChipPoints: state.ChipPoints}},
		{VoidsFile, run.reader.ExportAll()},
	}

	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := run.write(ctx, f.name, data); err != nil {
			return err
		}
		run.advance(1, "Saving "+f.name)
	}

	if err := run.write(ctx, ReadmeFile, []byte(Readme(state))); err != nil {
		return err
	}
	run.advance(1, "Saving "+ReadmeFile)
	return nil
}

func (s *ExportService) canvasHeight(grid entity.GridSettings) int {
	h := s.opts.PatchSize
	if grid.CellW > 0 && grid.CellH > 0 {
		h = s.opts.PatchSize * grid.CellH / grid.CellW
	}
	return h + s.opts.TitleHeight
}

func (s *ExportService) writePatches(ctx context.Context, run *exportRun, tasks []patchTask) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchSize)

	for _, t := range tasks {
		g.Go(func() error {
			return s.writePatch(gctx, run, t)
		})
	}
	return g.Wait()
}

func (s *ExportService) writePatch(ctx context.Context, run *exportRun, t patchTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	typ := t.layer.Type
	if typ == "" {
		typ = t.entry.Type
	}
	name := t.layer.Label
	if name == "" {
		name = label.Encode(t.loc, typ)
	}
	dir := path.Join(typ, fmt.Sprintf("layer_%02d", t.layer.Layer))

	var raster []byte
	if s.patches != nil {
		data, ok, err := s.patches.Raster(ctx, t.layer)
		switch {
		case err != nil:
			run.warn(name, err.Error())
		case ok:
			raster = data
		}
	}

	// координаты аннотаций уже включают полосу заголовка
	canvas := entity.Canvas{
		Width:      s.opts.PatchSize,
		Height:     s.opts.PatchSize + s.opts.TitleHeight,
		Title:      name,
		TitleH:     s.opts.TitleHeight,
		Background: raster,
	}

	if t.noVoids {
		original := raster
		if original == nil {
			blank, err := s.renderer.Render(canvas, nil)
			if err != nil {
				return fmt.Errorf("render %s: %w", name, err)
			}
			original = blank
		}
		if err := run.write(ctx, path.Join(NoVoidsDir, dir, name+".png"), original); err != nil {
			return err
		}
		run.advance(1, "Saving patches")
	}

	opts := s.opts.Render
	opts.CanvasHeight = float64(canvas.Height)
	marked, err := s.renderer.Render(canvas, PatchDrawCommands(run.reader, t.loc, opts))
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := run.write(ctx, path.Join(SplitDir, dir, name+".png"), marked); err != nil {
		return err
	}
	run.advance(1, "Saving patches")
	return nil
}

type chipTarget struct {
	chip entity.Chip
	typ  string
}

func mergeTargets(patches []entity.PatchEntry) []chipTarget {
	seen := make(map[chipTarget]struct{})
	var out []chipTarget
	for _, p := range patches {
		typ := p.Type
		if len(p.Layers) > 0 && p.Layers[0].Type != "" {
			typ = p.Layers[0].Type
		}
		t := chipTarget{chip: p.Chip, typ: typ}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *ExportService) writeMerges(ctx context.Context, run *exportRun, grid entity.GridSettings, chips []chipTarget) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MergeBatchSize)

	height := s.canvasHeight(grid)
	for _, c := range chips {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			canvas := entity.Canvas{
				Width:  s.opts.PatchSize,
				Height: height,
				Title:  label.Encode(entity.Loc(c.chip.X, c.chip.Y, 0), c.typ),
				TitleH: s.opts.TitleHeight,
			}
			cmds := MaskDrawCommands(run.reader, c.chip, 0, 1, s.opts.Render.Palette)
			data, err := s.renderer.Render(canvas, cmds)
			if err != nil {
				return fmt.Errorf("render merge %s: %w", label.ChipStem(c.chip), err)
			}
			if err := run.write(gctx, path.Join(MergeDir, c.typ, label.MergeName(c.chip)+".png"), data); err != nil {
				return err
			}
			run.advance(1, "Saving merge masks")
			return nil
		})
	}
	return g.Wait()
}

func patchTypes(patches []entity.PatchEntry) []string {
	seen := make(map[string]struct{})
	for _, p := range patches {
		seen[p.Type] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *ExportService) writeSummaries(ctx context.Context, run *exportRun, state SessionState, types []string) error {
	height := s.canvasHeight(state.Metadata.Grid) + s.opts.StatsHeight

	for _, typ := range types {
		if err := ctx.Err(); err != nil {
			return err
		}

		var chips []entity.Chip
		for _, p := range state.Patches {
			if p.Type == typ && len(p.Layers) > 0 {
				chips = append(chips, p.Chip)
			}
		}
		if len(chips) == 0 {
			run.warn(typ, "no layers, summary skipped")
			run.advance(1, "Creating type summaries")
			continue
		}

		cmds, n := SummaryDrawCommands(run.reader, chips, s.opts.Render.Palette)
		canvas := entity.Canvas{
			Width:   s.opts.PatchSize,
			Height:  height,
			Title:   fmt.Sprintf("SUMMARY_%s_ALL_VOIDS", strings.ToUpper(typ)),
			TitleH:  s.opts.TitleHeight,
			Footer:  SummaryFooter(n, len(chips)),
			FooterH: s.opts.StatsHeight,
		}
		data, err := s.renderer.Render(canvas, cmds)
		if err != nil {
			return fmt.Errorf("render summary %s: %w", typ, err)
		}
		if err := run.write(ctx, path.Join(SummaryDir, SanitizeFileName(typ)+"_summary.png"), data); err != nil {
			return err
		}
		run.advance(1, "Creating type summaries")
	}
	return nil
}

var (
	unsafeNameRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

const maxNameLen = 255

// SanitizeFileName заменяет недопустимые в именах файлов символы на '_'.
func SanitizeFileName(name string) string {
	out := unsafeNameRe.ReplaceAllString(name, "_")
	if strings.HasSuffix(out, ".") {
		out = strings.TrimSuffix(out, ".") + "_"
	}
	out = spaceRe.ReplaceAllString(out, "_")
	if r := []rune(out); len(r) > maxNameLen {
		out = string(r[:maxNameLen])
	}
	return out
}

func sanitizePath(p string) string {
	parts := strings.Split(p, "/")
	for i, seg := range parts {
		if seg != "" {
			parts[i] = SanitizeFileName(seg)
		}
	}
	return strings.Join(parts, "/")
}

// FolderName имя папки экспорта: <имя TIFF>_YYYY-MM-DD_HH-MM-SS (UTC).
func FolderName(tiffName string, now time.Time) string {
	if tiffName == "" {
		tiffName = "patches"
	}
	return SanitizeFileName(tiffName) + "_" + now.UTC().Format("2006-01-02_15-04-05")
}

// Readme текст README.txt папки экспорта
func Readme(state SessionState) string {
	m := state.Metadata
	tiff := m.TiffFileName
	if tiff == "" {
		tiff = "Unknown"
	}
	patches := 0
	for _, p := range state.Patches {
		patches += len(p.Layers)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Wafer Patch Extraction Data\n\n")
	fmt.Fprintf(&b, "TIFF File: %s\n", tiff)
	fmt.Fprintf(&b, "Extraction Date: %s\n", m.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Version: %s\n\n", entity.SessionVersion)

	fmt.Fprintf(&b, "## Grid Settings\n")
	fmt.Fprintf(&b, "- Columns: %d\n", m.Grid.Cols)
	fmt.Fprintf(&b, "- Rows: %d\n", m.Grid.Rows)
	fmt.Fprintf(&b, "- Cell Width: %dpx\n", m.Grid.CellW)
	fmt.Fprintf(&b, "- Cell Height: %dpx\n\n", m.Grid.CellH)

	fmt.Fprintf(&b, "## Alignment\n")
	fmt.Fprintf(&b, "- Origin: (%g, %g)\n", m.Grid.Origin.X, m.Grid.Origin.Y)
	fmt.Fprintf(&b, "- Reference Grid: (%d, %d)\n\n", m.Grid.RefGrid.X, m.Grid.RefGrid.Y)

	fmt.Fprintf(&b, "## Extraction Info\n")
	fmt.Fprintf(&b, "- Total Pages: %d\n", m.TotalPages)
	fmt.Fprintf(&b, "- Total Coordinates: %d\n", len(state.Coordinates))
	fmt.Fprintf(&b, "- Total Patches: %d\n", patches)
	fmt.Fprintf(&b, "- Patch Size: %dpx\n\n", m.PatchSize)

	fmt.Fprintf(&b, "## Folder Structure\n")
	fmt.Fprintf(&b, "- no_voids/[type]/layer_[XX]/[patch_name].png (patches without voids)\n")
	fmt.Fprintf(&b, "- split/[type]/layer_[XX]/[patch_name].png (patches with void markings)\n")
	fmt.Fprintf(&b, "- merge/[type]/[patch_name]_merge.png (merged mask layers)\n")
	fmt.Fprintf(&b, "- summary/[type]_summary.png (type-based void pattern summaries)\n")
	fmt.Fprintf(&b, "- metadata.json: Grid and extraction settings\n")
	fmt.Fprintf(&b, "- coordinates.json: Chip coordinate data\n")
	fmt.Fprintf(&b, "- voids.json: Void detection data\n")
	return b.String()
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/label"
	"tif-patch/internal/domain/port"
	"tif-patch/internal/logging"
)

// FolderLoadVersion тег снимка, собранного из папки экспорта
const FolderLoadVersion = "v2_folder_load"

// Имена файлов и каталогов папки экспорта
const (
	MetadataFile    = "metadata.json"
	CoordinatesFile = "coordinates.json"
	VoidsFile       = "voids.json"
	ReadmeFile      = "README.txt"

	NoVoidsDir = "no_voids"
	SplitDir   = "split"
	MergeDir   = "merge"
	SummaryDir = "summary"
)

var layerDirRe = regexp.MustCompile(`^layer_(\d+)$`)

// SessionState состояние сессии помимо аннотаций
type SessionState struct {
	Metadata    entity.SessionMetadata
	Coordinates []entity.Coordinate
	ChipPoints  []entity.Chip
	Patches     []entity.PatchEntry
}

// RestoreReport итог восстановления
type RestoreReport struct {
	Restored int
	Skipped  []string
}

// ReconstructResult патчи, собранные сканированием папки
type ReconstructResult struct {
	ScanDir  string // no_voids или split
	Patches  []entity.PatchEntry
	Warnings []string
}

// SessionService сохранение и восстановление сессии разметки
type SessionService struct {
	annotations *AnnotationService
	log         *logging.Logger
	now         func() time.Time
}

// NewSessionService создаёт сервис сессий
func NewSessionService(annotations *AnnotationService, log *logging.Logger) *SessionService {
	if log == nil {
		log = logging.Noop()
	}
	return &SessionService{
		annotations: annotations,
		log:         log,
		now:         time.Now,
	}
}

// Serialize снимает состояние сессии вместе со всеми аннотациями.
func (s *SessionService) Serialize(state SessionState) *entity.SessionSnapshot {
	return &entity.SessionSnapshot{
		ID:          uuid.NewString(),
		Version:     entity.SessionVersion,
		CreatedAt:   s.now(),
		Metadata:    state.Metadata,
		Coordinates: state.Coordinates,
		ChipPoints:  state.ChipPoints,
		Patches:     state.Patches,
		Annotations: s.annotations.Reader().ExportAll(),
	}
}

// Restore заменяет содержимое хранилища аннотациями снимка. Некорректные записи
// пропускаются с предупреждением; хранилище подменяется только после разбора всех записей.
func (s *SessionService) Restore(ctx context.Context, snapshot *entity.SessionSnapshot) (RestoreReport, error) {
	if snapshot == nil {
		err := fmt.Errorf("%w: empty session snapshot", entity.ErrParse)
		s.log.LogRestore(ctx, 0, 0, err)
		return RestoreReport{}, err
	}

	report := RestoreReport{}
	seen := make(map[entity.Key]struct{}, len(snapshot.Annotations))
	restored := make([]entity.Annotation, 0, len(snapshot.Annotations))

	for i, rec := range snapshot.Annotations {
		if err := ctx.Err(); err != nil {
			s.log.LogRestore(ctx, 0, 0, err)
			return RestoreReport{}, err
		}

		a, err := rec.Annotation()
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("record %d: %v", i, err))
			s.log.LogSkip(ctx, rec.Key, err.Error())
			continue
		}
		if _, dup := seen[a.Key]; dup {
			report.Skipped = append(report.Skipped, fmt.Sprintf("record %d: duplicate key %s", i, a.Key))
			s.log.LogSkip(ctx, a.Key.String(), "duplicate key")
			continue
		}
		seen[a.Key] = struct{}{}
		restored = append(restored, a)
	}

	s.annotations.replace(restored)
	report.Restored = len(restored)

	s.log.LogRestore(ctx, report.Restored, len(report.Skipped), nil)
	return report, nil
}

// Reconstruct собирает патчи по структуре <root>/<scan>/<type>/layer_<NN>/<label>.<ext>.
// Сканируется no_voids, а при его отсутствии split. Файлы с неразборчивыми
// именами и кристаллы вне списка координат пропускаются с предупреждением.
func (s *SessionService) Reconstruct(ctx context.Context, src port.FolderSource, root string, coords []entity.Coordinate) (ReconstructResult, error) {
	res := ReconstructResult{ScanDir: NoVoidsDir}

	typeDirs, err := listDirsOrEmpty(ctx, src, path.Join(root, NoVoidsDir))
	if err != nil {
		return res, err
	}
	if len(typeDirs) == 0 {
		res.ScanDir = SplitDir
		typeDirs, err = listDirsOrEmpty(ctx, src, path.Join(root, SplitDir))
		if err != nil {
			return res, err
		}
	}
	if len(typeDirs) == 0 {
		return res, fmt.Errorf("%w: neither %s nor %s found under %q", entity.ErrIO, NoVoidsDir, SplitDir, root)
	}

	entries := make(map[entity.Chip]*entity.PatchEntry, len(coords))
	order := make([]entity.Chip, 0, len(coords))
	for _, c := range coords {
		chip := c.Chip()
		if _, ok := entries[chip]; ok {
			continue
		}
		typ := c.Type
		if typ == "" {
			typ = "NA"
		}
		entries[chip] = &entity.PatchEntry{Chip: chip, Type: typ}
		order = append(order, chip)
	}

	warn := func(item, reason string) {
		res.Warnings = append(res.Warnings, item+": "+reason)
		s.log.LogSkip(ctx, item, reason)
	}

	for _, typeDir := range typeDirs {
		typePath := path.Join(root, res.ScanDir, typeDir)
		layerDirs, err := listDirsOrEmpty(ctx, src, typePath)
		if err != nil {
			return res, err
		}

		for _, layerDir := range layerDirs {
			m := layerDirRe.FindStringSubmatch(layerDir)
			if m == nil {
				warn(path.Join(typePath, layerDir), "not a layer folder")
				continue
			}
			layerNum, _ := strconv.Atoi(m[1])

			layerPath := path.Join(typePath, layerDir)
			files, err := src.ListFiles(ctx, layerPath)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return res, fmt.Errorf("%w: list %s: %v", entity.ErrIO, layerPath, err)
			}

			for _, name := range files {
				l, err := label.DecodeFile(name)
				if err != nil {
					warn(path.Join(layerPath, name), "unrecognized patch file name")
					continue
				}
				entry, ok := entries[l.Chip()]
				if !ok {
					warn(path.Join(layerPath, name), fmt.Sprintf("chip %s is not in the coordinate list", label.ChipCoord(l.Chip())))
					continue
				}
				entry.Layers = append(entry.Layers, entity.PatchLayer{
					Label: trimExt(name),
					Layer: layerNum,
					Type:  typeDir,
					Path:  path.Join(layerPath, name),
				})
			}
		}
	}

	for _, chip := range order {
		entry := entries[chip]
		if len(entry.Layers) == 0 {
			continue
		}
		sort.SliceStable(entry.Layers, func(i, j int) bool {
			return entry.Layers[i].Layer < entry.Layers[j].Layer
		})
		res.Patches = append(res.Patches, *entry)
	}

	s.log.InfoContext(ctx, "folder reconstructed",
		"root", root,
		"scan", res.ScanDir,
		"patches", len(res.Patches),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// LoadFolder читает папку экспорта целиком и возвращает снимок, готовый к Restore.
// metadata.json и coordinates.json обязательны, voids.json нет.
func (s *SessionService) LoadFolder(ctx context.Context, src port.FolderSource, root string) (*entity.SessionSnapshot, ReconstructResult, error) {
	var meta entity.SessionMetadata
	if err := readJSON(ctx, src, path.Join(root, MetadataFile), &meta); err != nil {
		return nil, ReconstructResult{}, err
	}

	coordsData, err := src.ReadFile(ctx, path.Join(root, CoordinatesFile))
	if err != nil {
		return nil, ReconstructResult{}, fmt.Errorf("%w: read %s: %v", entity.ErrIO, CoordinatesFile, err)
	}
	coords, err := ParseCoordinateFile(coordsData)
	if err != nil {
		return nil, ReconstructResult{}, err
	}

	var records []entity.Record
	if err := readJSON(ctx, src, path.Join(root, VoidsFile), &records); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, ReconstructResult{}, err
		}
		s.log.WarnContext(ctx, "voids.json not found, loading without annotations", "root", root)
	}

	res, err := s.Reconstruct(ctx, src, root, coords.Coordinates)
	if err != nil {
		return nil, res, err
	}

	chipPoints := coords.ChipPoints
	if len(chipPoints) == 0 {
		for _, c := range coords.Coordinates {
			chipPoints = append(chipPoints, c.Chip())
		}
	}

	return &entity.SessionSnapshot{
		ID:          uuid.NewString(),
		Version:     FolderLoadVersion,
		CreatedAt:   s.now(),
		Metadata:    meta,
		Coordinates: coords.Coordinates,
		ChipPoints:  chipPoints,
		Patches:     res.Patches,
		Annotations: records,
	}, res, nil
}

// ParseCoordinateFile принимает объект {coordinates, chipPoints} или голый массив координат.
func ParseCoordinateFile(data []byte) (entity.CoordinateFile, error) {
	var file entity.CoordinateFile
	if err := json.Unmarshal(data, &file); err == nil {
		return file, nil
	}

	var bare []entity.Coordinate
	if err := json.Unmarshal(data, &bare); err != nil {
		return entity.CoordinateFile{}, fmt.Errorf("%w: %s: %v", entity.ErrParse, CoordinatesFile, err)
	}
	return entity.CoordinateFile{Coordinates: bare}, nil
}

func readJSON(ctx context.Context, src port.FolderSource, name string, v any) error {
	data, err := src.ReadFile(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", entity.ErrIO, name, fs.ErrNotExist)
		}
		return fmt.Errorf("%w: read %s: %v", entity.ErrIO, name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrParse, name, err)
	}
	return nil
}

func listDirsOrEmpty(ctx context.Context, src port.FolderSource, dir string) ([]string, error) {
	dirs, err := src.ListDirs(ctx, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", entity.ErrIO, dir, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

func trimExt(name string) string {
	base := path.Base(name)
	return base[:len(base)-len(path.Ext(base))]
}

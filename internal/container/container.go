package container

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"

	"tif-patch/config"
	app "tif-patch/internal/application"
	"tif-patch/internal/domain/port"
	"tif-patch/internal/infrastructure/folder"
	"tif-patch/internal/infrastructure/storage"
	"tif-patch/internal/infrastructure/vision"
	"tif-patch/internal/logging"
)

// Container собирает сервисы приложения из конфигурации.
type Container struct {
	Config *config.Config
	Log    *logging.Logger

	Workspace         *app.Workspace
	AnnotationService *app.AnnotationService
	Classification    *app.ClassificationService
	SessionService    *app.SessionService
	QuickloadService  *app.QuickloadService
	ExportService     *app.ExportService
	UserService       *app.UserService
	InspectionService *app.InspectionService

	minio *minio.Client
	redis *redis.Client
	slots *storage.RedisSlotStore
}

// New создаёт контейнер. Redis и MinIO подключаются, только если заданы в конфигурации.
func New(cfg *config.Config, log *logging.Logger) (*Container, error) {
	if log == nil {
		log = logging.Noop()
	}
	c := &Container{Config: cfg, Log: log}

	store := storage.NewAnnotationStore(storage.WithSyncMode(*cfg.Annotation.SyncMode))
	annotations := app.NewAnnotationService(store, log, cfg.Annotation.Tolerance)

	var slots port.SlotStore = storage.NewMemorySlotStore()
	if cfg.Redis.Addr != "" {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisSlots, err := storage.NewRedisSlotStore(c.redis, cfg.Quickload.Prefix)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.slots = redisSlots
		slots = redisSlots
	}

	if cfg.Minio.Endpoint != "" {
		client, err := folder.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.minio = client
	}

	render := app.DefaultRenderOptions(*cfg.Colors)
	render.MeasurementType = cfg.Annotation.MeasurementType
	render.RealChipSize = cfg.Annotation.RealChipSize
	render.CanvasChipSize = cfg.Annotation.CanvasChipSize

	exportOpts := app.ExportOptions{
		BatchSize:      cfg.Export.BatchSize,
		MergeBatchSize: cfg.Export.MergeBatchSize,
		PatchSize:      cfg.Export.PatchSize,
		TitleHeight:    cfg.Export.TitleHeight,
		StatsHeight:    cfg.Export.StatsHeight,
		Render:         render,
	}

	overlay := vision.NewGoCVOverlay()
	workspace := app.NewWorkspace()
	sessions := app.NewSessionService(annotations, log)
	users := app.NewUserService(storage.NewMemoryUserRepository(cfg.Annotation.DefaultType))

	c.Workspace = workspace
	c.AnnotationService = annotations
	c.Classification = app.NewClassificationService(annotations.Reader(), *cfg.Bins)
	c.SessionService = sessions
	c.QuickloadService = app.NewQuickloadService(slots, sessions, log, cfg.Quickload.Slots)
	c.ExportService = app.NewExportService(annotations, overlay, workspace, exportOpts, log)
	c.UserService = users
	c.InspectionService = app.NewInspectionService(users, annotations, vision.NewGoCVDetector(), overlay, app.InspectionOptions{
		Radius: cfg.Annotation.DuplicateRadius,
		Render: render,
	}, log)

	return c, nil
}

// Source выбирает источник папки по ссылке: http(s)://, s3://bucket/prefix или локальный путь.
// Второе значение: корень папки внутри источника.
func (c *Container) Source(ref string) (port.FolderSource, string, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		src, err := folder.NewHTTPFolder(ref, nil)
		if err != nil {
			return nil, "", err
		}
		return src, "", nil

	case strings.HasPrefix(ref, "s3://"):
		if c.minio == nil {
			return nil, "", fmt.Errorf("s3 folder %q: minio endpoint is not configured", ref)
		}
		u, err := url.Parse(ref)
		if err != nil {
			return nil, "", fmt.Errorf("parse %q: %w", ref, err)
		}
		return folder.NewMinioFolder(c.minio, u.Host, strings.Trim(u.Path, "/")), "", nil

	default:
		return folder.NewLocalFolder(""), ref, nil
	}
}

// Sink приёмник экспорта: бакет MinIO, если он настроен, иначе каталог output_dir.
func (c *Container) Sink() port.FolderSink {
	if c.minio != nil {
		return folder.NewMinioFolder(c.minio, c.Config.Minio.Bucket, "")
	}
	return folder.NewLocalFolder(c.Config.Export.OutputDir)
}

// Open загружает папку экспорта в рабочее пространство и восстанавливает аннотации.
func (c *Container) Open(ctx context.Context, ref string) (app.ReconstructResult, app.RestoreReport, error) {
	src, root, err := c.Source(ref)
	if err != nil {
		return app.ReconstructResult{}, app.RestoreReport{}, err
	}

	snap, res, err := c.SessionService.LoadFolder(ctx, src, root)
	if err != nil {
		return res, app.RestoreReport{}, err
	}
	report, err := c.SessionService.Restore(ctx, snap)
	if err != nil {
		return res, report, err
	}

	c.Workspace.Open(ref, app.SessionState{
		Metadata:    snap.Metadata,
		Coordinates: snap.Coordinates,
		ChipPoints:  snap.ChipPoints,
		Patches:     snap.Patches,
	}, folder.NewRasters(src))
	return res, report, nil
}

// Close освобождает подключения
func (c *Container) Close() {
	if c.slots != nil {
		c.slots.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.Log.Warn("close redis", "error", err)
		}
	}
}

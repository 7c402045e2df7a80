package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tif-patch/internal/domain/entity"
)

// Config настройки приложения: файл tifpatch.yml плюс переменные окружения
type Config struct {
	TelegramToken string `yaml:"-"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"` // text или json

	Annotation AnnotationConfig    `yaml:"annotation"`
	Bins       *entity.BinTable    `yaml:"bins,omitempty"`
	Colors     *entity.Palette     `yaml:"colors,omitempty"`
	Grid       entity.GridSettings `yaml:"grid"`
	Export     ExportConfig        `yaml:"export"`
	Quickload  QuickloadConfig     `yaml:"quickload"`
	Redis      RedisConfig         `yaml:"redis"`
	Minio      MinioConfig         `yaml:"minio"`
}

// AnnotationConfig параметры редактирования и подписей размеров
type AnnotationConfig struct {
	Tolerance       float64 `yaml:"tolerance"`         // допуск попадания, px
	SyncMode        *bool   `yaml:"sync_mode"`         // показывать аннотации других слоёв
	MeasurementType string  `yaml:"measurement_type"`  // тип, для которого подписывается размер
	RealChipSize    float64 `yaml:"real_chip_size"`    // размер кристалла, мкм
	CanvasChipSize  float64 `yaml:"canvas_chip_size"`  // размер кристалла на холсте, px
	DefaultType     string  `yaml:"default_type"`      // тип для кандидатов детектора
	DuplicateRadius float64 `yaml:"duplicate_radius"`  // расстояние слияния дубликатов, px
}

// ExportConfig параметры экспорта папки
type ExportConfig struct {
	BatchSize      int    `yaml:"batch_size"`       // параллельных записей патчей
	MergeBatchSize int    `yaml:"merge_batch_size"` // параллельных масок кристаллов
	PatchSize      int    `yaml:"patch_size"`       // сторона маски, px
	TitleHeight    int    `yaml:"title_height"`     // полоса заголовка маски
	StatsHeight    int    `yaml:"stats_height"`     // полоса статистики сводки
	OutputDir      string `yaml:"output_dir"`
}

// QuickloadConfig слоты быстрого сохранения
type QuickloadConfig struct {
	Slots  int    `yaml:"slots"`
	Prefix string `yaml:"prefix"`
}

// RedisConfig подключение к Redis; пустой адрес означает слоты в памяти
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

// MinioConfig подключение к MinIO; пустой endpoint отключает удалённые папки
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// DefaultPath файл конфигурации по умолчанию
const DefaultPath = "tifpatch.yml"

// Load читает .env, затем yaml-файл (если есть), затем переопределения из окружения.
// Пустой path означает TIFPATCH_CONFIG или tifpatch.yml; отсутствие файла по умолчанию не ошибка.
func Load(path string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("TIFPATCH_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Minio.Bucket, "MINIO_BUCKET")
	if v, err := strconv.ParseBool(os.Getenv("MINIO_USE_SSL")); err == nil {
		c.Minio.UseSSL = v
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate подставляет значения по умолчанию и проверяет диапазоны
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}

	a := &c.Annotation
	if a.Tolerance == 0 {
		a.Tolerance = 4
	}
	if a.Tolerance < 0 {
		return fmt.Errorf("annotation.tolerance must be >= 0, got %v", a.Tolerance)
	}
	if a.SyncMode == nil {
		enabled := true
		a.SyncMode = &enabled
	}
	if a.MeasurementType == "" {
		a.MeasurementType = "dela"
	}
	if a.RealChipSize == 0 {
		a.RealChipSize = 1000
	}
	if a.CanvasChipSize == 0 {
		a.CanvasChipSize = 100
	}
	if a.RealChipSize < 0 || a.CanvasChipSize < 0 {
		return fmt.Errorf("annotation chip sizes must be positive")
	}
	if a.DefaultType == "" {
		a.DefaultType = "void"
	}
	if a.DuplicateRadius == 0 {
		a.DuplicateRadius = 10
	}

	if c.Bins == nil {
		table := entity.DefaultBinTable()
		c.Bins = &table
	}
	for _, r := range c.Bins.Rules {
		if r.Type == "" {
			return fmt.Errorf("bins: rule without type")
		}
	}
	if c.Bins.Default.Name == "" {
		c.Bins.Default = entity.DefaultBinTable().Default
	}

	if c.Colors == nil {
		palette := entity.DefaultPalette()
		c.Colors = &palette
	}
	for typ, col := range c.Colors.Colors {
		if _, err := entity.ParseColor(col); err != nil {
			return fmt.Errorf("colors.%s: %w", typ, err)
		}
	}

	if c.Grid.Cols < 0 || c.Grid.Rows < 0 {
		return fmt.Errorf("grid size must be >= 0, got %dx%d", c.Grid.Cols, c.Grid.Rows)
	}

	e := &c.Export
	if e.BatchSize == 0 {
		e.BatchSize = 50
	}
	if e.MergeBatchSize == 0 {
		e.MergeBatchSize = 20
	}
	if e.PatchSize == 0 {
		e.PatchSize = 300
	}
	if e.TitleHeight == 0 {
		e.TitleHeight = 40
	}
	if e.StatsHeight == 0 {
		e.StatsHeight = 30
	}
	if e.OutputDir == "" {
		e.OutputDir = "."
	}
	if e.BatchSize < 0 || e.MergeBatchSize < 0 || e.PatchSize < 0 {
		return fmt.Errorf("export sizes must be positive")
	}

	if c.Quickload.Slots == 0 {
		c.Quickload.Slots = 5
	}
	if c.Quickload.Slots < 0 {
		return fmt.Errorf("quickload.slots must be positive, got %d", c.Quickload.Slots)
	}

	if c.Minio.Endpoint != "" && c.Minio.Bucket == "" {
		return fmt.Errorf("minio.bucket is required when minio.endpoint is set")
	}

	return nil
}

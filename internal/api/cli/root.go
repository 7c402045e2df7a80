// Package cli команды командной строки tifpatch.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tif-patch/config"
	"tif-patch/internal/container"
	"tif-patch/internal/logging"
	"tif-patch/internal/printer"
)

var (
	version string

	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tifpatch",
	Short: "tifpatch - разметка пустот на патчах пластины",
	Long: `tifpatch работает с папками экспорта патчей пластины: восстанавливает
сессию разметки, считает бины кристаллов и статистику аннотаций,
экспортирует маски и запускает Telegram-бота для разметки по растрам.

Папка задаётся локальным путём, s3://bucket/prefix (MinIO) или http(s)://.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute запускает корневую команду; ошибки печатает printer.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo задаёт версию для --version
func SetVersionInfo(v, commit, date string) {
	version = v
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "файл конфигурации (по умолчанию tifpatch.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "подробный лог")
}

func out(cmd *cobra.Command) *printer.Printer {
	return printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// setup читает конфигурацию и собирает контейнер
func setup(cmd *cobra.Command) (*container.Container, error) {
	p := out(cmd)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, p.Error("failed to load configuration", err.Error(), []string{
			"Check the YAML syntax of " + config.DefaultPath,
			"Pass another file with --config",
		})
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	c, err := container.New(cfg, logging.FromConfig(cfg.LogFormat, cfg.LogLevel))
	if err != nil {
		return nil, p.Error("failed to initialize", err.Error(), []string{
			"Check redis and minio settings",
		})
	}
	return c, nil
}

// openFolder собирает контейнер и загружает в него папку экспорта
func openFolder(cmd *cobra.Command, ref string) (*container.Container, error) {
	c, err := setup(cmd)
	if err != nil {
		return nil, err
	}

	p := out(cmd)
	p.Step("Opening %s", ref)
	res, report, err := c.Open(cmd.Context(), ref)
	if err != nil {
		c.Close()
		return nil, p.Error("failed to open folder", err.Error(), []string{
			"The folder must contain metadata.json, coordinates.json and no_voids/ or split/",
		})
	}

	for _, w := range res.Warnings {
		p.Warning("%s", w)
	}
	for _, s := range report.Skipped {
		p.Warning("%s", s)
	}
	p.Success("Loaded %d patches from %s, %d annotations", len(res.Patches), res.ScanDir, report.Restored)
	return c, nil
}

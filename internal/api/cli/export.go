package cli

import (
	"github.com/spf13/cobra"

	app "tif-patch/internal/application"
)

var exportName string

var exportCmd = &cobra.Command{
	Use:   "export <folder>",
	Short: "Переэкспортировать разметку папки",
	Long: `Открывает папку экспорта и пишет её заново: metadata.json, coordinates.json,
voids.json, README.txt, затем no_voids/, split/, merge/ и summary/.

Приёмник: бакет MinIO, если он настроен, иначе export.output_dir.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openFolder(cmd, args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		p := out(cmd)
		last := ""
		report, err := c.ExportService.ExportFolder(cmd.Context(), c.Sink(), app.ExportRequest{
			Folder: exportName,
			State:  c.Workspace.State(),
			Progress: func(done, total int, message string) {
				if message != last {
					last = message
					p.Step("%s (%d/%d)", message, done, total)
				}
			},
		})
		if err != nil {
			return p.Error("export failed", err.Error(), []string{
				"Check that the output location is writable",
			})
		}

		for _, w := range report.Warnings {
			p.Warning("%s", w)
		}
		p.Success("Exported %d files to %s", report.Files, report.Folder)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "", "имя папки экспорта (по умолчанию <tiff>_<дата>)")

	rootCmd.AddCommand(exportCmd)
}

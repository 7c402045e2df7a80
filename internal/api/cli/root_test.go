package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tif-patch/config"
	app "tif-patch/internal/application"
	"tif-patch/internal/container"
	"tif-patch/internal/domain/entity"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, verbose, bondingMap, exportName, openOnStart = "", false, false, "", ""

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := Execute()
	return buf.String(), err
}

// exportFixture пишет папку экспорта с одной аннотацией и возвращает её путь.
func exportFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TIFPATCH_CONFIG", "")

	cfgPath := filepath.Join(dir, "tifpatch.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("export:\n  output_dir: "+filepath.Join(dir, "out")+"\n"), 0o644))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	c, err := container.New(cfg, nil)
	require.NoError(t, err)

	c.Workspace.Open("fixture", app.SessionState{
		Metadata: entity.SessionMetadata{
			TiffFileName: "wafer.tif",
			Grid:         entity.GridSettings{Cols: 2, Rows: 2, CellW: 100, CellH: 100},
		},
		Coordinates: []entity.Coordinate{{X: 0, Y: 0, Type: "A"}, {X: 1, Y: 1, Type: "A"}},
		Patches: []entity.PatchEntry{
			{Chip: entity.Chip{X: 0, Y: 0}, Type: "A", Layers: []entity.PatchLayer{{Label: "X00_Y00_L01_LEG:A", Layer: 1, Type: "A"}}},
			{Chip: entity.Chip{X: 1, Y: 1}, Type: "A", Layers: []entity.PatchLayer{{Label: "X01_Y01_L01_LEG:A", Layer: 1, Type: "A"}}},
		},
	}, nil)
	_, err = c.AnnotationService.Paint(context.Background(), "X01_Y01_L01_LEG:A", "void",
		entity.Placement{OriginX: 50, OriginY: 60, ExtentX: 4, ExtentY: 4})
	require.NoError(t, err)

	_, err = c.ExportService.ExportFolder(context.Background(), c.Sink(), app.ExportRequest{
		Folder: "run",
		State:  c.Workspace.State(),
	})
	require.NoError(t, err)
	return filepath.Join(dir, "out", "run"), cfgPath
}

func TestRoot_ShowsHelp(t *testing.T) {
	output, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, output, "Usage:")
	assert.Contains(t, output, "tifpatch")
}

func TestRoot_RejectsUnknownFlags(t *testing.T) {
	_, err := execute(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestStats(t *testing.T) {
	folder, cfgPath := exportFixture(t)

	output, err := execute(t, "stats", folder, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "1 annotations on 1 chips")
	assert.Contains(t, output, "void")
}

func TestBins(t *testing.T) {
	folder, cfgPath := exportFixture(t)

	output, err := execute(t, "bins", folder, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Bin map")
	assert.Contains(t, output, "BIN")

	output, err = execute(t, "bins", folder, "--bonding", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Bonding map")
}

func TestReconstruct(t *testing.T) {
	folder, cfgPath := exportFixture(t)

	output, err := execute(t, "reconstruct", folder, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "from no_voids")
	assert.Contains(t, output, "0,0")
}

func TestExport(t *testing.T) {
	folder, cfgPath := exportFixture(t)

	output, err := execute(t, "export", folder, "--name", "again", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Exported")

	_, err = os.Stat(filepath.Join(filepath.Dir(folder), "again", app.VoidsFile))
	require.NoError(t, err)
}

func TestOpen_MissingFolder(t *testing.T) {
	_, cfgPath := exportFixture(t)

	output, err := execute(t, "stats", filepath.Join(t.TempDir(), "missing"), "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, output, "failed to open folder")
}

func TestBot_RequiresToken(t *testing.T) {
	_, cfgPath := exportFixture(t)
	t.Setenv("TELEGRAM_TOKEN", "")

	output, err := execute(t, "bot", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, output, "TELEGRAM_TOKEN is required")
}

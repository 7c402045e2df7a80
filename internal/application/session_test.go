package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"tif-patch/internal/domain/entity"
)

func sampleState() SessionState {
	return SessionState{
		Metadata: entity.SessionMetadata{
			TiffFileName: "wafer_01.tif",
			Timestamp:    fixedTime,
			Grid:         entity.GridSettings{Cols: 4, Rows: 3, CellW: 100, CellH: 80},
			PatchSize:    300,
		},
		Coordinates: []entity.Coordinate{{X: 1, Y: 2, Type: "A"}, {X: -1, Y: 0, Type: "B"}},
		ChipPoints:  []entity.Chip{{X: 1, Y: 2}, {X: -1, Y: 0}},
		Patches: []entity.PatchEntry{
			{Chip: entity.Chip{X: 1, Y: 2}, Type: "A", Layers: []entity.PatchLayer{
				{Label: "X01_Y02_L01_LEG:A", Layer: 1, Type: "A"},
				{Label: "X01_Y02_L02_LEG:A", Layer: 2, Type: "A"},
			}},
			{Chip: entity.Chip{X: -1, Y: 0}, Type: "B", Layers: []entity.PatchLayer{
				{Label: "XN01_Y00_L01_LEG:B", Layer: 1, Type: "B"},
			}},
		},
	}
}

func TestSession_SerializeRestoreRoundTrip(t *testing.T) {
	src := newAnnotations(t)
	mustCreate(t, src, entity.Loc(1, 2, 1), "void", place(10, 10, 3, 3))
	mustCreate(t, src, entity.Loc(1, 2, 1), "bbox", place(40, 40, 10, 4))
	mustCreate(t, src, entity.Loc(-1, 0, 1), "dela", place(5, 5, 2, 2))

	snap := NewSessionService(src, nil).Serialize(sampleState())
	require.Equal(t, entity.SessionVersion, snap.Version)
	require.NotEmpty(t, snap.ID)
	require.Len(t, snap.Annotations, 3)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded entity.SessionSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	dst := newAnnotations(t)
	mustCreate(t, dst, entity.Loc(9, 9, 9), "void", place(1, 1, 1, 1))

	report, err := NewSessionService(dst, nil).Restore(context.Background(), &decoded)
	require.NoError(t, err)
	require.Equal(t, 3, report.Restored)
	require.Empty(t, report.Skipped)
	require.Equal(t, src.Reader().ExportAll(), dst.Reader().ExportAll())

	// счётчики восстановлены: следующий индекс после максимального
	a := mustCreate(t, dst, entity.Loc(1, 2, 1), "void", place(70, 70, 3, 3))
	require.Equal(t, 2, a.Index)
}

func TestSession_RestoreSkipsBadRecords(t *testing.T) {
	svc := newAnnotations(t)
	sessions := NewSessionService(svc, nil)

	snap := &entity.SessionSnapshot{Annotations: []entity.Record{
		{ChipX: 0, ChipY: 0, Layer: 1, LocalIndex: 0, Shape: entity.ShapeEllipse, Type: "void", OriginX: 5, OriginY: 5, ExtentX: 2, ExtentY: 2},
		{ChipX: 0, ChipY: 0, Layer: 1, LocalIndex: 0, Shape: entity.ShapeEllipse, Type: "void", OriginX: 9, OriginY: 9, ExtentX: 2, ExtentY: 2},
		{ChipX: 0, ChipY: 0, Layer: 1, LocalIndex: 1, Shape: entity.ShapeEllipse, Type: "void", OriginX: 9, OriginY: 9, ExtentX: 0, ExtentY: 2},
	}}

	report, err := sessions.Restore(context.Background(), snap)
	require.NoError(t, err)
	require.Equal(t, 1, report.Restored)
	require.Len(t, report.Skipped, 2)
	require.Equal(t, 1, svc.Reader().Len())
}

func TestSession_RestoreNil(t *testing.T) {
	_, err := NewSessionService(newAnnotations(t), nil).Restore(context.Background(), nil)
	require.ErrorIs(t, err, entity.ErrParse)
}

func TestSession_Reconstruct(t *testing.T) {
	folder := newMemFolder()
	folder.put("out/no_voids/A/layer_01/X01_Y02_L01_LEG_A.png", "p")
	folder.put("out/no_voids/A/layer_03/X01_Y02_L03_LEG_A.png", "p")
	folder.put("out/no_voids/A/layer_02/X01_Y02_L02_LEG_A.png", "p")
	folder.put("out/no_voids/B/layer_01/XN01_Y00_L01_LEG_B.png", "p")
	folder.put("out/no_voids/B/layer_01/X07_Y07_L01_LEG_B.png", "p")
	folder.put("out/no_voids/B/layer_01/notes.txt", "x")

	coords := []entity.Coordinate{{X: 1, Y: 2, Type: "A"}, {X: -1, Y: 0}, {X: 4, Y: 4, Type: "C"}}

	res, err := NewSessionService(newAnnotations(t), nil).Reconstruct(context.Background(), folder, "out", coords)
	require.NoError(t, err)
	require.Equal(t, NoVoidsDir, res.ScanDir)
	require.Len(t, res.Patches, 2)

	first := res.Patches[0]
	require.Equal(t, entity.Chip{X: 1, Y: 2}, first.Chip)
	require.Equal(t, "A", first.Type)
	require.Len(t, first.Layers, 3)
	for i, l := range first.Layers {
		require.Equal(t, i+1, l.Layer)
		require.Equal(t, "A", l.Type)
	}
	require.Equal(t, "X01_Y02_L01_LEG_A", first.Layers[0].Label)
	require.Equal(t, "out/no_voids/A/layer_01/X01_Y02_L01_LEG_A.png", first.Layers[0].Path)

	second := res.Patches[1]
	require.Equal(t, entity.Chip{X: -1, Y: 0}, second.Chip)
	require.Equal(t, "NA", second.Type)

	require.Len(t, res.Warnings, 2)
}

func TestSession_ReconstructFallsBackToSplit(t *testing.T) {
	folder := newMemFolder()
	folder.put("out/split/A/layer_01/X01_Y02_L01_LEG_A.png", "p")

	res, err := NewSessionService(newAnnotations(t), nil).Reconstruct(context.Background(), folder, "out", []entity.Coordinate{{X: 1, Y: 2, Type: "A"}})
	require.NoError(t, err)
	require.Equal(t, SplitDir, res.ScanDir)
	require.Len(t, res.Patches, 1)
}

func TestSession_ReconstructEmptyFolder(t *testing.T) {
	_, err := NewSessionService(newAnnotations(t), nil).Reconstruct(context.Background(), newMemFolder(), "out", nil)
	require.ErrorIs(t, err, entity.ErrIO)
}

func TestSession_LoadFolder(t *testing.T) {
	state := sampleState()
	folder := newMemFolder()

	meta, err := json.Marshal(state.Metadata)
	require.NoError(t, err)
	folder.put("out/metadata.json", string(meta))
	folder.put("out/coordinates.json", `[{"x":1,"y":2,"type":"A"}]`)
	folder.put("out/voids.json", `[{"key":"1,2,1,0","chipX":1,"chipY":2,"layer":1,"localIndex":0,"shape":"ellipse","type":"void","originX":10,"originY":10,"extentX":3,"extentY":3}]`)
	folder.put("out/split/A/layer_01/X01_Y02_L01_LEG_A.png", "p")

	sessions := NewSessionService(newAnnotations(t), nil)
	snap, res, err := sessions.LoadFolder(context.Background(), folder, "out")
	require.NoError(t, err)
	require.Equal(t, FolderLoadVersion, snap.Version)
	require.Equal(t, "wafer_01.tif", snap.Metadata.TiffFileName)
	require.Equal(t, []entity.Chip{{X: 1, Y: 2}}, snap.ChipPoints)
	require.Len(t, snap.Annotations, 1)
	require.Len(t, res.Patches, 1)

	report, err := sessions.Restore(context.Background(), snap)
	require.NoError(t, err)
	require.Equal(t, 1, report.Restored)
}

func TestSession_LoadFolderWithoutVoids(t *testing.T) {
	folder := newMemFolder()
	folder.put("out/metadata.json", `{"tiffFileName":"w.tif"}`)
	folder.put("out/coordinates.json", `{"coordinates":[{"x":1,"y":2,"type":"A"}],"chipPoints":[{"x":1,"y":2},{"x":3,"y":3}]}`)
	folder.put("out/no_voids/A/layer_01/X01_Y02_L01_LEG_A.png", "p")

	snap, _, err := NewSessionService(newAnnotations(t), nil).LoadFolder(context.Background(), folder, "out")
	require.NoError(t, err)
	require.Empty(t, snap.Annotations)
	require.Len(t, snap.ChipPoints, 2)
}

func TestSession_LoadFolderMissingMetadata(t *testing.T) {
	_, _, err := NewSessionService(newAnnotations(t), nil).LoadFolder(context.Background(), newMemFolder(), "out")
	require.ErrorIs(t, err, entity.ErrIO)
}

func TestParseCoordinateFile_Malformed(t *testing.T) {
	_, err := ParseCoordinateFile([]byte(`"nope"`))
	require.ErrorIs(t, err, entity.ErrParse)
}

package telegram

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tif-patch/config"
	app "tif-patch/internal/application"
	"tif-patch/internal/container"
	"tif-patch/internal/domain/entity"
	"tif-patch/internal/infrastructure/vision"
	"tif-patch/internal/logging"
)

type fakeSender struct {
	texts  []string
	photos []tgbotapi.PhotoConfig
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		s.texts = append(s.texts, m.Text)
	case tgbotapi.PhotoConfig:
		s.photos = append(s.photos, m)
	}
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) last() string {
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

type stubDetector struct {
	result *entity.InspectionResult
}

func (d stubDetector) Inspect(context.Context, []byte) (*entity.InspectionResult, error) {
	return d.result, nil
}

func (d stubDetector) HighlightDefects([]byte, *entity.InspectionResult) ([]byte, error) {
	return []byte("highlighted"), nil
}

func newTestBot(t *testing.T) (*Bot, *fakeSender, *container.Container) {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, cfg.Validate())
	cfg.Export.OutputDir = t.TempDir()

	c, err := container.New(cfg, nil)
	require.NoError(t, err)

	s := &fakeSender{}
	b := &Bot{api: s, c: c, log: logging.Noop()}
	b.download = func(string) ([]byte, error) { return testPNG(t), nil }
	return b, s, c
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 100, 100))))
	return buf.Bytes()
}

func command(text string) *tgbotapi.Message {
	cmd := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: 7},
		Chat:     &tgbotapi.Chat{ID: 42},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func photo() *tgbotapi.Message {
	return &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 7},
		Chat:  &tgbotapi.Chat{ID: 42},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}
}

func TestBot_Commands(t *testing.T) {
	b, s, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, command("/start"))
	assert.Equal(t, msgStart, s.last())

	b.handleMessage(ctx, command("/nope"))
	assert.Equal(t, msgUnknownCommand, s.last())

	b.handleMessage(ctx, command("/patch"))
	assert.Equal(t, msgUsagePatch, s.last())

	b.handleMessage(ctx, command("/patch garbage"))
	assert.Contains(t, s.last(), "Неверная метка")

	b.handleMessage(ctx, command("/type dela"))
	assert.Contains(t, s.last(), "dela")

	b.handleMessage(ctx, command("/sync"))
	assert.Contains(t, s.last(), "выключена")

	b.handleMessage(ctx, command("/stats"))
	assert.Equal(t, "📊 Аннотаций нет.", s.last())

	b.handleMessage(ctx, command("/bin 1 x"))
	assert.Equal(t, msgUsageBin, s.last())

	b.handleMessage(ctx, command("/export"))
	assert.Equal(t, msgNoSession, s.last())
}

func TestBot_PhotoWithoutPatch(t *testing.T) {
	b, s, _ := newTestBot(t)

	b.handleMessage(context.Background(), photo())
	assert.Equal(t, msgSelectPatch, s.last())
	assert.Empty(t, s.photos)
}

func TestBot_PhotoCreatesAnnotations(t *testing.T) {
	b, s, c := newTestBot(t)
	ctx := context.Background()

	c.InspectionService = app.NewInspectionService(c.UserService, c.AnnotationService, stubDetector{
		result: &entity.InspectionResult{
			ImageWidth:  100,
			ImageHeight: 100,
			Defects:     []entity.DefectArea{{X: 40, Y: 40, Width: 10, Height: 10, Area: 80}},
			HasDefects:  true,
		},
	}, vision.NewRenderer(), app.InspectionOptions{Radius: 10, Render: app.DefaultRenderOptions(entity.DefaultPalette())}, nil)

	b.handleMessage(ctx, command("/patch X01_Y02_L01_LEG:A"))
	require.Contains(t, s.last(), "X01_Y02_L01_LEG:A")

	b.handleMessage(ctx, photo())
	assert.Contains(t, s.last(), "добавлено аннотаций 1")
	require.Len(t, s.photos, 1)
	assert.Equal(t, "X01_Y02_L01_LEG:A", s.photos[0].Caption)

	// повторный растр не дублирует области
	b.handleMessage(ctx, photo())
	assert.Equal(t, msgNoDefects, s.texts[len(s.texts)-1])
	assert.Equal(t, 1, c.AnnotationService.Reader().Len())

	b.handleMessage(ctx, command("/bin 1 2"))
	assert.Contains(t, s.last(), "void")
	b.handleMessage(ctx, command("/bin (1,2)"))
	assert.Contains(t, s.last(), "Кристалл (1,2): bin 4")

	b.handleMessage(ctx, command("/save 1"))
	assert.Contains(t, s.last(), "сохранено 1")

	b.handleMessage(ctx, command("/slots"))
	assert.Contains(t, s.last(), "1: занят")

	b.handleMessage(ctx, command("/load 3"))
	assert.Contains(t, s.last(), "пуст")
}

func TestFormatStats(t *testing.T) {
	text := formatStats(entity.Stats{
		Total:      3,
		ByType:     map[string]int{"void": 2, "dela": 1},
		ByChip:     map[string]int{"1,2": 3},
		AreaByType: map[string]entity.AreaStat{"void": {Mean: 10}},
	})
	assert.Equal(t, "📊 Всего аннотаций: 3, кристаллов: 1\n• dela: 1 (площадь 0.0 ± 0.0)\n• void: 2 (площадь 10.0 ± 0.0)", text)
}

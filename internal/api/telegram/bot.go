package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "tif-patch/internal/application"
	"tif-patch/internal/container"
	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/label"
	"tif-patch/internal/logging"
)

const (
	msgStart = `👋 Привет! Я бот для разметки пустот на патчах пластины.

📂 Откройте папку экспорта командой /open, выберите патч командой /patch и пришлите его растр.

📋 Команды:
/open <путь> открыть папку экспорта
/patch <метка> выбрать патч
/help справка
/cancel отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ /open <путь|s3://bucket/prefix|https://...> открыть папку
2️⃣ /patch X01_Y02_L01_LEG:A выбрать патч
3️⃣ Пришлите растр патча, найденные области станут аннотациями

📋 Команды:
/type <тип> тип новых аннотаций
/sync показывать другие слои
/stats статистика аннотаций
/bin <x> <y> или /bin (x,y) бин кристалла
/binmap карта бинов
/bonding карта кристаллов
/save <n> /load <n> /slots слоты быстрого сохранения
/export [папка] экспорт разметки
/cancel отменить операцию`

	msgCancelled       = "❌ Операция отменена. Выберите патч командой /patch."
	msgSelectPatch     = "📌 Сначала выберите патч: /patch <метка>."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNoDefects       = "✅ Новых областей не найдено."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте другой растр."
	msgNoDetector      = "⚠️ Детектор недоступен в этой сборке."
	msgNoSession       = "📂 Сессия не открыта: /open <путь>."
	msgUsageOpen       = "Использование: /open <путь>"
	msgUsagePatch      = "Использование: /patch <метка>"
	msgUsageType       = "Использование: /type <тип>"
	msgUsageBin        = "Использование: /bin <x> <y> или /bin (x,y)"
	msgUsageSlot       = "Использование: /save <n> или /load <n>"
)

// sender часть tgbotapi.BotAPI, через которую бот отвечает
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot представляет Telegram-бота
type Bot struct {
	api      sender
	c        *container.Container
	log      *logging.Logger
	download func(fileID string) ([]byte, error)
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	c.Log.Info("authorized", "account", api.Self.UserName)

	b := &Bot{api: api, c: c, log: c.Log.With("component", "telegram")}
	b.download = func(fileID string) ([]byte, error) {
		return downloadFile(api, fileID)
	}
	return b, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx.
func (b *Bot) Run(ctx context.Context) error {
	api, ok := b.api.(*tgbotapi.BotAPI)
	if !ok {
		return errors.New("bot api is not connected")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// растр можно прислать как фото или как файл без сжатия
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg, msg.Photo[len(msg.Photo)-1].FileID)
		return
	}
	if msg.Document != nil {
		b.handlePhoto(ctx, msg, msg.Document.FileID)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSelectPatch)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		if _, err := b.c.UserService.Cancel(ctx, userID, chatID); err != nil {
			b.fail(chatID, "cancel", err)
			return
		}
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "open":
		b.handleOpen(ctx, chatID, args)

	case "patch":
		if len(args) != 1 {
			b.sendMessage(chatID, msgUsagePatch)
			return
		}
		user, err := b.c.UserService.SelectPatch(ctx, userID, chatID, args[0])
		if err != nil {
			b.sendMessage(chatID, fmt.Sprintf("⚠️ Неверная метка патча: %v", err))
			return
		}
		b.sendMessage(chatID, fmt.Sprintf("📸 Патч %s выбран. Пришлите его растр, тип новых областей: %s.", user.Patch, user.VoidType))

	case "type":
		if len(args) != 1 {
			b.sendMessage(chatID, msgUsageType)
			return
		}
		user, err := b.c.UserService.SetVoidType(ctx, userID, chatID, args[0])
		if err != nil {
			b.sendMessage(chatID, msgUsageType)
			return
		}
		b.sendMessage(chatID, "🏷 Тип новых аннотаций: "+user.VoidType)

	case "sync":
		if b.c.AnnotationService.ToggleSync() {
			b.sendMessage(chatID, "🔗 Синхронизация слоёв включена.")
		} else {
			b.sendMessage(chatID, "🔗 Синхронизация слоёв выключена.")
		}

	case "stats":
		b.sendMessage(chatID, formatStats(b.c.AnnotationService.Stats()))

	case "bin":
		b.handleBin(chatID, args)

	case "binmap":
		chips := b.c.Workspace.Chips()
		grid := b.c.Workspace.Grid(b.c.Config.Grid)
		b.sendMessage(chatID, "🗺 Карта бинов\n"+app.BinMapText(b.c.Classification.BinMap(chips, grid), grid))

	case "bonding":
		grid := b.c.Workspace.Grid(b.c.Config.Grid)
		b.sendMessage(chatID, "🗺 Карта кристаллов\n"+app.BondingMapText(b.c.Workspace.Chips(), grid))

	case "save":
		b.handleSave(ctx, chatID, args)

	case "load":
		b.handleLoad(ctx, chatID, args)

	case "slots":
		occupied, err := b.c.QuickloadService.Occupied(ctx)
		if err != nil {
			b.fail(chatID, "list slots", err)
			return
		}
		b.sendMessage(chatID, formatSlots(occupied, b.c.QuickloadService.MaxSlots()))

	case "export":
		b.handleExport(ctx, chatID, args)

	case "cancel":
		if _, err := b.c.UserService.Cancel(ctx, userID, chatID); err != nil {
			b.fail(chatID, "cancel", err)
			return
		}
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleOpen(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.sendMessage(chatID, msgUsageOpen)
		return
	}

	res, report, err := b.c.Open(ctx, args[0])
	if err != nil {
		b.log.Warn("open folder", "ref", args[0], "error", err)
		b.sendMessage(chatID, fmt.Sprintf("⚠️ Не удалось открыть папку: %v", err))
		return
	}

	text := fmt.Sprintf("📂 Открыто: %d патчей (%s), %d аннотаций.", len(res.Patches), res.ScanDir, report.Restored)
	if n := len(res.Warnings) + len(report.Skipped); n > 0 {
		text += fmt.Sprintf("\n⚠️ Пропущено записей: %d", n)
	}
	b.sendMessage(chatID, text)
}

func (b *Bot) handleBin(chatID int64, args []string) {
	chip, ok := chipArg(args)
	if !ok {
		b.sendMessage(chatID, msgUsageBin)
		return
	}

	bin := b.c.Classification.BinFor(chip)
	text := fmt.Sprintf("🔢 Кристалл %s: bin %d (%s)", label.ChipCoord(chip), bin.Bin, bin.Name)
	if len(bin.Types) > 0 {
		text += ", типы: " + strings.Join(bin.Types, ", ")
	}
	b.sendMessage(chatID, text)
}

func (b *Bot) handleSave(ctx context.Context, chatID int64, args []string) {
	slot, ok := slotArg(args)
	if !ok {
		b.sendMessage(chatID, msgUsageSlot)
		return
	}
	snap, err := b.c.QuickloadService.Save(ctx, slot, b.c.Workspace.State())
	if err != nil {
		b.fail(chatID, "quick save", err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("💾 Слот %d: сохранено %d аннотаций.", slot, len(snap.Annotations)))
}

func (b *Bot) handleLoad(ctx context.Context, chatID int64, args []string) {
	slot, ok := slotArg(args)
	if !ok {
		b.sendMessage(chatID, msgUsageSlot)
		return
	}
	snap, report, found, err := b.c.QuickloadService.Load(ctx, slot)
	if err != nil {
		b.fail(chatID, "quick load", err)
		return
	}
	if !found {
		b.sendMessage(chatID, fmt.Sprintf("📭 Слот %d пуст.", slot))
		return
	}
	b.c.Workspace.OpenSnapshot(fmt.Sprintf("slot %d", slot), snap)
	b.sendMessage(chatID, fmt.Sprintf("📥 Слот %d: восстановлено %d аннотаций, пропущено %d.", slot, report.Restored, len(report.Skipped)))
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, args []string) {
	state := b.c.Workspace.State()
	if len(state.Patches) == 0 {
		b.sendMessage(chatID, msgNoSession)
		return
	}

	req := app.ExportRequest{State: state}
	if len(args) > 0 {
		req.Folder = args[0]
	}

	b.sendMessage(chatID, "⏳ Экспортирую...")
	report, err := b.c.ExportService.ExportFolder(ctx, b.c.Sink(), req)
	if err != nil {
		b.fail(chatID, "export", err)
		return
	}
	text := fmt.Sprintf("📦 Экспорт %s: %d файлов.", report.Folder, report.Files)
	if len(report.Warnings) > 0 {
		text += fmt.Sprintf("\n⚠️ Предупреждений: %d", len(report.Warnings))
	}
	b.sendMessage(chatID, text)
}

// handlePhoto обрабатывает растр выбранного патча
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, fileID string) {
	chatID := msg.Chat.ID

	user, err := b.c.UserService.Get(ctx, msg.From.ID, chatID)
	if err != nil {
		b.fail(chatID, "get user", err)
		return
	}
	if user.Patch == "" || user.State != entity.StateAwaitingPhoto {
		b.sendMessage(chatID, msgSelectPatch)
		return
	}

	b.sendMessage(chatID, msgProcessing)

	imageData, err := b.download(fileID)
	if err != nil {
		b.log.Warn("download photo", "error", err)
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	out, err := b.c.InspectionService.ProcessPatchPhoto(ctx, msg.From.ID, chatID, imageData)
	switch {
	case errors.Is(err, entity.ErrNotConfigured):
		b.sendMessage(chatID, msgNoDetector)
		return
	case errors.Is(err, app.ErrNoPatchSelected):
		b.sendMessage(chatID, msgSelectPatch)
		return
	case err != nil:
		b.log.Warn("process photo", "patch", user.Patch, "error", err)
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	if len(out.Created) == 0 {
		b.sendMessage(chatID, msgNoDefects)
	} else {
		b.sendMessage(chatID, fmt.Sprintf("🔍 %s: добавлено аннотаций %d.", out.Patch, len(out.Created)))
	}

	image := out.Overlay
	if image == nil {
		image = out.Highlighted
	}
	if image != nil {
		b.sendPhoto(chatID, out.Patch, image)
	}
}

// downloadFile скачивает файл из Telegram
func downloadFile(api *tgbotapi.BotAPI, fileID string) ([]byte, error) {
	file, err := api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(api.Token)

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// fail логирует ошибку и сообщает о ней оператору
func (b *Bot) fail(chatID int64, op string, err error) {
	b.log.Error(op, "chat", chatID, "error", err)
	b.sendMessage(chatID, fmt.Sprintf("⚠️ Ошибка: %v", err))
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat", chatID, "error", err)
	}
}

func (b *Bot) sendPhoto(chatID int64, caption string, data []byte) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "patch.png", Bytes: data})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("send photo", "chat", chatID, "error", err)
	}
}

// chipArg принимает "<x> <y>" или "(x,y)"
func chipArg(args []string) (entity.Chip, bool) {
	switch len(args) {
	case 1:
		chip, err := label.ParseChipCoord(args[0])
		return chip, err == nil
	case 2:
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		return entity.Chip{X: x, Y: y}, errX == nil && errY == nil
	}
	return entity.Chip{}, false
}

func slotArg(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	return n, err == nil
}

func formatStats(s entity.Stats) string {
	if s.Total == 0 {
		return "📊 Аннотаций нет."
	}

	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Всего аннотаций: %d, кристаллов: %d", s.Total, len(s.ByChip))
	for _, t := range types {
		area := s.AreaByType[t]
		fmt.Fprintf(&sb, "\n• %s: %d (площадь %.1f ± %.1f)", t, s.ByType[t], area.Mean, area.StdDev)
	}
	return sb.String()
}

func formatSlots(occupied []int, maxSlots int) string {
	busy := make(map[int]bool, len(occupied))
	for _, n := range occupied {
		busy[n] = true
	}

	var sb strings.Builder
	sb.WriteString("💾 Слоты:")
	for n := 1; n <= maxSlots; n++ {
		mark := "пусто"
		if busy[n] {
			mark = "занят"
		}
		fmt.Fprintf(&sb, "\n%d: %s", n, mark)
	}
	return sb.String()
}

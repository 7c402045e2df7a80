package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tif-patch/internal/api/telegram"
	"tif-patch/internal/container"
)

var openOnStart string

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Запустить Telegram-бота разметки",
	Long: `Запускает Telegram-бота. Токен берётся из TELEGRAM_TOKEN (можно в .env).
С --open папка экспорта загружается до старта.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := out(cmd)

		var (
			c   *container.Container
			err error
		)
		if openOnStart != "" {
			c, err = openFolder(cmd, openOnStart)
		} else {
			c, err = setup(cmd)
		}
		if err != nil {
			return err
		}
		defer c.Close()

		if c.Config.TelegramToken == "" {
			return p.Error("TELEGRAM_TOKEN is required", "", []string{
				"Set TELEGRAM_TOKEN in the environment or in .env",
			})
		}

		bot, err := telegram.NewBot(c.Config.TelegramToken, c)
		if err != nil {
			return p.Error("failed to create bot", err.Error(), nil)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p.Success("Bot is running")
		return bot.Run(ctx)
	},
}

func init() {
	botCmd.Flags().StringVar(&openOnStart, "open", "", "папка экспорта, открываемая при старте")

	rootCmd.AddCommand(botCmd)
}

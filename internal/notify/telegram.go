package notify

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/agalitsyn/taskboard/internal/model"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts task events into a single chat.
type Telegram struct {
	api    sender
	chatID int64
	log    lgr.L
}

func NewTelegram(token string, chatID int64, log lgr.L) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("could not init telegram bot: %w", err)
	}
	if err := tgbotapi.SetLogger(BotLogger{log: log}); err != nil {
		return nil, err
	}
	log.Logf("[INFO] telegram notifications as @%s to chat %d", bot.Self.UserName, chatID)
	return &Telegram{api: bot, chatID: chatID, log: log}, nil
}

func (t *Telegram) NotifyTask(ctx context.Context, event model.TaskEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := FormatEvent(event, func(s string) string {
		return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
	})
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("could not send telegram message: %w", err)
	}
	t.log.Logf("[DEBUG] sent %s notification for task id=%s", event.Kind, event.Task.ID)
	return nil
}

// BotLogger routes the bot library's own logging into lgr at debug level.
type BotLogger struct {
	log lgr.L
}

func (l BotLogger) Printf(msg string, args ...interface{}) {
	l.log.Logf("[DEBUG] telegram: "+msg, args...)
}

func (l BotLogger) Println(v ...interface{}) {
	l.log.Logf("[DEBUG] telegram: %s", fmt.Sprint(v...))
}

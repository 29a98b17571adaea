// Package telegram delivers signal updates through the Telegram bot API.
// Forum-topic routing goes through a reply to the topic root message,
// which threads the post under the requested topic.
package telegram

import (
	"context"
	"strconv"
	"time"

	"github.com/quantline/signal-engine/internal/service/notification"
	tb "gopkg.in/tucnak/telebot.v2"
)

var _ notification.Notifier = (*Notifier)(nil)

type Notifier struct {
	bot *tb.Bot
}

func New(token string) (*Notifier, error) {
	bot, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Notifier{bot: bot}, nil
}

func NewWithBot(bot *tb.Bot) *Notifier {
	return &Notifier{bot: bot}
}

func (n *Notifier) Send(ctx context.Context, dest notification.Destination, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	opts := &tb.SendOptions{
		ParseMode:             tb.ModeHTML,
		DisableWebPagePreview: true,
	}
	if dest.TopicID != 0 {
		opts.ReplyTo = &tb.Message{ID: dest.TopicID, Chat: &tb.Chat{ID: dest.GroupID}}
	}
	msg, err := n.bot.Send(tb.ChatID(dest.GroupID), text, opts)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(msg.ID), nil
}

func (n *Notifier) Delete(ctx context.Context, dest notification.Destination, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.bot.Delete(&tb.StoredMessage{MessageID: messageID, ChatID: dest.GroupID})
}

func (n *Notifier) Pin(ctx context.Context, dest notification.Destination, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.bot.Pin(&tb.StoredMessage{MessageID: messageID, ChatID: dest.GroupID}, &tb.SendOptions{
		DisableNotification: true,
	})
}

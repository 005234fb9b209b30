// Package telegram connects the chat handler to the Telegram Bot API using
// long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/chris/todocoach/internal/bot"
)

const pollTimeout = 60

// Handler is the part of bot.Handler the adapter drives.
type Handler interface {
	HandleMessage(ctx context.Context, m bot.Message) []bot.Reply
	HandleCallback(ctx context.Context, cb bot.Callback) (string, error)
}

// api is the subset of *tgbotapi.BotAPI in use.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	client  *tgbotapi.BotAPI
	api     api
	handler Handler
	log     *zap.Logger
}

func NewBot(token string, h Handler, log *zap.Logger) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to Telegram: %w", err)
	}
	log = log.Named("telegram")
	log.Info("telegram bot connected", zap.String("username", client.Self.UserName))
	return &Bot{client: client, api: client, handler: h, log: log}, nil
}

// RegisterCommands publishes the command menu.
func (b *Bot) RegisterCommands() error {
	cmds := make([]tgbotapi.BotCommand, len(bot.Commands))
	for i, c := range bot.Commands {
		cmds[i] = tgbotapi.BotCommand{Command: c.Name, Description: c.Description}
	}
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	return nil
}

// Run polls for updates until ctx is canceled. Updates are handled one at a
// time so a user's /add conversation stays ordered.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.client.GetUpdatesChan(u)
	defer b.client.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.onCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		b.onMessage(ctx, update.Message)
	}
}

func (b *Bot) onMessage(ctx context.Context, m *tgbotapi.Message) {
	msg := bot.Message{ChatID: m.Chat.ID, Text: m.Text}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.Username = m.From.UserName
		msg.FirstName = m.From.FirstName
	} else {
		msg.UserID = m.Chat.ID
	}
	for _, r := range b.handler.HandleMessage(ctx, msg) {
		if err := b.sendReply(m.Chat.ID, r); err != nil {
			b.log.Warn("sending reply failed", zap.Int64("chat_id", m.Chat.ID), zap.Error(err))
		}
	}
}

func (b *Bot) onCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		b.answer(tgbotapi.NewCallback(q.ID, ""))
		return
	}
	cb := bot.Callback{
		ChatID:      q.Message.Chat.ID,
		UserID:      q.From.ID,
		Data:        q.Data,
		MessageText: q.Message.Text,
	}
	text, err := b.handler.HandleCallback(ctx, cb)
	switch {
	case errors.Is(err, bot.ErrUnauthorized):
		b.answer(tgbotapi.NewCallbackWithAlert(q.ID, bot.UnauthorizedText))
		return
	case err != nil:
		b.answer(tgbotapi.NewCallbackWithAlert(q.ID, bot.ErrorText))
		return
	}
	b.answer(tgbotapi.NewCallback(q.ID, ""))
	if text == "" {
		return
	}
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("editing message failed", zap.Int64("chat_id", q.Message.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) answer(c tgbotapi.CallbackConfig) {
	if _, err := b.api.Request(c); err != nil {
		b.log.Warn("answering callback failed", zap.Error(err))
	}
}

// Send delivers a scheduled message to a user's private chat.
func (b *Bot) Send(ctx context.Context, userID int64, r bot.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.sendReply(userID, r)
}

// sendReply splits long text; buttons go on the last chunk.
func (b *Bot) sendReply(chatID int64, r bot.Reply) error {
	chunks := bot.SplitMessage(r.Text, bot.TelegramMaxLen)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == len(chunks)-1 && len(r.Buttons) > 0 {
			msg.ReplyMarkup = keyboard(r.Buttons)
		}
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("sending message: %w", err)
		}
	}
	return nil
}

func keyboard(rows [][]bot.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, len(rows))
	for i, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, len(row))
		for j, btn := range row {
			buttons[j] = tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data)
		}
		out[i] = tgbotapi.NewInlineKeyboardRow(buttons...)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

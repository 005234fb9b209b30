// Package discord connects the chat handler to Discord. It answers direct
// messages and mentions, and maps inline buttons to message components.
package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/chris/todocoach/internal/bot"
)

// Handler is the part of bot.Handler the adapter drives.
type Handler interface {
	HandleMessage(ctx context.Context, m bot.Message) []bot.Reply
	HandleCallback(ctx context.Context, cb bot.Callback) (string, error)
}

// session is the subset of *discordgo.Session in use.
type session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

type Bot struct {
	session *discordgo.Session
	api     session
	handler Handler
	log     *zap.Logger
}

func NewBot(token string, h Handler, log *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	b := &Bot{session: s, api: s, handler: h, log: log.Named("discord")}
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onInteractionCreate)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	b.log.Info("discord bot connected", zap.String("username", s.State.User.Username))
	return b, nil
}

// Run blocks until ctx is canceled, then closes the gateway connection.
func (b *Bot) Run(ctx context.Context) error {
	<-ctx.Done()
	return b.Close()
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// Send delivers a scheduled message to a user's DM channel.
func (b *Bot) Send(ctx context.Context, userID int64, r bot.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := b.api.UserChannelCreate(strconv.FormatInt(userID, 10))
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	return b.sendReply(ch.ID, r)
}

// sendReply splits long text; buttons go on the last chunk.
func (b *Bot) sendReply(channelID string, r bot.Reply) error {
	chunks := bot.SplitMessage(r.Text, bot.DiscordMaxLen)
	for i, chunk := range chunks {
		msg := &discordgo.MessageSend{Content: chunk}
		if i == len(chunks)-1 {
			msg.Components = components(r.Buttons)
		}
		if _, err := b.api.ChannelMessageSendComplex(channelID, msg); err != nil {
			return fmt.Errorf("sending message: %w", err)
		}
	}
	return nil
}

func components(rows [][]bot.Button) []discordgo.MessageComponent {
	if len(rows) == 0 {
		return nil
	}
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		buttons := make([]discordgo.MessageComponent, len(row))
		for i, btn := range row {
			buttons[i] = discordgo.Button{Label: btn.Label, Style: buttonStyle(btn.Data), CustomID: btn.Data}
		}
		out = append(out, discordgo.ActionsRow{Components: buttons})
	}
	return out
}

func buttonStyle(data string) discordgo.ButtonStyle {
	switch {
	case hasAction(data, bot.ActionDelete):
		return discordgo.DangerButton
	case hasAction(data, bot.ActionDone), hasAction(data, bot.ActionChoreDone):
		return discordgo.SuccessButton
	default:
		return discordgo.SecondaryButton
	}
}

func hasAction(data, action string) bool {
	return strings.HasPrefix(data, action+":")
}

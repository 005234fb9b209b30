package discord

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/chris/todocoach/internal/bot"
)

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(context.Background(), s.State.User.ID, m.Message)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	b.handleComponent(context.Background(), i.Interaction)
}

func (b *Bot) handleMessage(ctx context.Context, selfID string, m *discordgo.Message) {
	// Ignore own messages
	if m.Author == nil || m.Author.ID == selfID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == selfID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	content := strings.TrimSpace(stripMention(m.Content, selfID))
	if content == "" {
		return
	}

	userID, err := parseSnowflake(m.Author.ID)
	if err != nil {
		b.log.Warn("bad author id", zap.String("author_id", m.Author.ID), zap.Error(err))
		return
	}
	chatID, _ := parseSnowflake(m.ChannelID)

	_ = b.api.ChannelTyping(m.ChannelID)
	replies := b.handler.HandleMessage(ctx, bot.Message{
		ChatID:    chatID,
		UserID:    userID,
		Username:  m.Author.Username,
		FirstName: m.Author.GlobalName,
		Text:      content,
	})
	for _, r := range replies {
		if err := b.sendReply(m.ChannelID, r); err != nil {
			b.log.Warn("sending reply failed", zap.String("channel_id", m.ChannelID), zap.Error(err))
		}
	}
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.Interaction) {
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil || i.Message == nil {
		return
	}
	userID, err := parseSnowflake(user.ID)
	if err != nil {
		return
	}
	chatID, _ := parseSnowflake(i.ChannelID)

	text, err := b.handler.HandleCallback(ctx, bot.Callback{
		ChatID:      chatID,
		UserID:      userID,
		Data:        i.MessageComponentData().CustomID,
		MessageText: i.Message.Content,
	})
	var resp *discordgo.InteractionResponse
	switch {
	case errors.Is(err, bot.ErrUnauthorized):
		resp = ephemeral(bot.UnauthorizedText)
	case err != nil:
		resp = ephemeral(bot.ErrorText)
	case text == "":
		resp = &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	default:
		// Drop the buttons once the action is applied.
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    text,
				Components: []discordgo.MessageComponent{},
			},
		}
	}
	if err := b.api.InteractionRespond(i, resp); err != nil {
		b.log.Warn("responding to interaction failed", zap.Error(err))
	}
}

func ephemeral(text string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral},
	}
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func parseSnowflake(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

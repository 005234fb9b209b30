package discord

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/chris/todocoach/internal/bot"
)

type fakeSession struct {
	sent      map[string][]*discordgo.MessageSend
	responses []*discordgo.InteractionResponse
	typing    int
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sent == nil {
		f.sent = map[string][]*discordgo.MessageSend{}
	}
	f.sent[channelID] = append(f.sent[channelID], data)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	f.typing++
	return nil
}

func (f *fakeSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

type fakeHandler struct {
	messages  []bot.Message
	callbacks []bot.Callback
	replies   []bot.Reply
	edit      string
	err       error
}

func (f *fakeHandler) HandleMessage(ctx context.Context, m bot.Message) []bot.Reply {
	f.messages = append(f.messages, m)
	return f.replies
}

func (f *fakeHandler) HandleCallback(ctx context.Context, cb bot.Callback) (string, error) {
	f.callbacks = append(f.callbacks, cb)
	return f.edit, f.err
}

func newTestBot(h Handler) (*Bot, *fakeSession) {
	s := &fakeSession{}
	return &Bot{api: s, handler: h, log: zap.NewNop()}, s
}

const selfID = "1000"

// --- stripMention ---

func TestStripMention_Standard(t *testing.T) {
	got := stripMention("<@123456> hello", "123456")
	want := " hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripMention_Nickname(t *testing.T) {
	got := stripMention("<@!123456> hello", "123456")
	want := " hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripMention_WrongUser(t *testing.T) {
	input := "<@999> hello"
	got := stripMention(input, "123")
	if got != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

// --- messages ---

func TestHandleMessage_DM(t *testing.T) {
	h := &fakeHandler{replies: []bot.Reply{{Text: "[1] Call lead", Buttons: bot.TodoButtons(1)}}}
	b, s := newTestBot(h)

	b.handleMessage(context.Background(), selfID, &discordgo.Message{
		ChannelID: "55",
		Content:   "/list",
		Author:    &discordgo.User{ID: "7", Username: "chris", GlobalName: "Chris"},
	})

	if len(h.messages) != 1 {
		t.Fatalf("expected 1 handled message, got %d", len(h.messages))
	}
	want := bot.Message{ChatID: 55, UserID: 7, Username: "chris", FirstName: "Chris", Text: "/list"}
	if h.messages[0] != want {
		t.Errorf("got %+v, want %+v", h.messages[0], want)
	}
	sent := s.sent["55"]
	if len(sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(sent))
	}
	if len(sent[0].Components) != 1 {
		t.Fatalf("expected one action row, got %d", len(sent[0].Components))
	}
	row := sent[0].Components[0].(discordgo.ActionsRow)
	del := row.Components[1].(discordgo.Button)
	if del.CustomID != "delete:1" || del.Style != discordgo.DangerButton {
		t.Errorf("unexpected delete button: %+v", del)
	}
	if s.typing != 1 {
		t.Errorf("expected typing indicator, got %d", s.typing)
	}
}

func TestHandleMessage_IgnoresGuildWithoutMention(t *testing.T) {
	h := &fakeHandler{}
	b, _ := newTestBot(h)

	b.handleMessage(context.Background(), selfID, &discordgo.Message{
		GuildID: "g", ChannelID: "55", Content: "hello", Author: &discordgo.User{ID: "7"},
	})
	b.handleMessage(context.Background(), selfID, &discordgo.Message{
		ChannelID: "55", Content: "echo", Author: &discordgo.User{ID: selfID},
	})

	if len(h.messages) != 0 {
		t.Errorf("expected no handled messages, got %d", len(h.messages))
	}
}

func TestHandleMessage_MentionStripped(t *testing.T) {
	h := &fakeHandler{}
	b, _ := newTestBot(h)

	b.handleMessage(context.Background(), selfID, &discordgo.Message{
		GuildID:   "g",
		ChannelID: "55",
		Content:   "<@" + selfID + "> /checkin",
		Author:    &discordgo.User{ID: "7"},
		Mentions:  []*discordgo.User{{ID: selfID}},
	})

	if len(h.messages) != 1 || h.messages[0].Text != "/checkin" {
		t.Errorf("expected stripped /checkin, got %+v", h.messages)
	}
}

// --- components ---

func componentInteraction(data string) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: "55",
		User:      &discordgo.User{ID: "7"},
		Message:   &discordgo.Message{Content: "[1] Call lead"},
		Data:      discordgo.MessageComponentInteractionData{CustomID: data},
	}
}

func TestHandleComponent_UpdatesMessage(t *testing.T) {
	h := &fakeHandler{edit: "[1] Call lead\n\nStatus: completed."}
	b, s := newTestBot(h)

	b.handleComponent(context.Background(), componentInteraction("done:1"))

	if len(h.callbacks) != 1 || h.callbacks[0].Data != "done:1" || h.callbacks[0].UserID != 7 {
		t.Fatalf("unexpected callbacks: %+v", h.callbacks)
	}
	if len(s.responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(s.responses))
	}
	resp := s.responses[0]
	if resp.Type != discordgo.InteractionResponseUpdateMessage || resp.Data.Content != "[1] Call lead\n\nStatus: completed." {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleComponent_Unauthorized(t *testing.T) {
	h := &fakeHandler{err: bot.ErrUnauthorized}
	b, s := newTestBot(h)

	b.handleComponent(context.Background(), componentInteraction("done:1"))

	resp := s.responses[0]
	if resp.Data.Content != bot.UnauthorizedText || resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Errorf("expected ephemeral unauthorized notice, got %+v", resp.Data)
	}
}

// --- send ---

func TestSend_SplitsAtDiscordLimit(t *testing.T) {
	b, s := newTestBot(&fakeHandler{})
	long := strings.Repeat("coaching line\n", 300)

	if err := b.Send(context.Background(), 7, bot.Reply{Text: long, Buttons: bot.ChoreActionButtons(2)}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := s.sent["dm-7"]
	if len(sent) < 2 {
		t.Fatalf("expected several chunks, got %d", len(sent))
	}
	for i, m := range sent {
		if len(m.Content) > bot.DiscordMaxLen {
			t.Errorf("chunk %d has %d bytes", i, len(m.Content))
		}
		if last := i == len(sent)-1; last != (len(m.Components) > 0) {
			t.Errorf("chunk %d: buttons should only be on the last chunk", i)
		}
	}
}

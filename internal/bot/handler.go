// Package bot turns chat messages and button presses into replies. It knows
// nothing about a particular chat service; the telegram and discord packages
// adapt it.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/chris/todocoach/internal/coach"
	"github.com/chris/todocoach/internal/model"
	"go.uber.org/zap"
)

const (
	UnauthorizedText = "Unauthorized chat."
	ErrorText        = "Something went wrong. Try again?"
)

// ErrUnauthorized is returned for button presses from a chat that is not
// allowed to use the bot.
var ErrUnauthorized = errors.New("unauthorized chat")

type Button struct {
	Label string
	Data  string
}

// Reply is one outgoing message. Buttons are laid out in rows.
type Reply struct {
	Text    string
	Buttons [][]Button
}

type Message struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	Text      string
}

// Callback is a pressed inline button. MessageText is the text of the
// message that carried the button.
type Callback struct {
	ChatID      int64
	UserID      int64
	Data        string
	MessageText string
}

// Store is the persistence the handler needs, scoped per user.
type Store interface {
	UpsertUser(ctx context.Context, userID int64, username, firstName string) (*model.UserProfile, error)
	GetUserProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
	SetMainGoal(ctx context.Context, userID int64, goal string) error

	AddTodo(ctx context.Context, t model.Todo) (*model.Todo, error)
	ListActiveTodos(ctx context.Context, userID int64, limit int) ([]model.Todo, error)
	MarkTodoDone(ctx context.Context, userID, id int64) (bool, error)
	DeleteTodo(ctx context.Context, userID, id int64) (bool, error)

	ListChores(ctx context.Context, userID int64, limit int) ([]model.Chore, error)
	ListDueChores(ctx context.Context, userID int64, day time.Time, limit int) ([]model.Chore, error)
	MarkChoreDone(ctx context.Context, userID, id int64, at time.Time) (*model.Chore, error)
	PassChoreWeekend(ctx context.Context, userID, id int64, at time.Time) (*model.Chore, error)

	EnsureDailyReflection(ctx context.Context, userID int64, key, question string, at time.Time) (bool, error)
	GetPendingReflection(ctx context.Context, userID int64) (*model.Reflection, error)
	CountPendingReflections(ctx context.Context, userID int64) (int, error)
	SavePendingReflectionAnswer(ctx context.Context, userID int64, answer string) (bool, error)
	PassPendingReflection(ctx context.Context, userID int64, note string) (bool, error)

	AddJournalEntry(ctx context.Context, userID int64, text, source string) error
}

// Coach renders coaching messages on demand.
type Coach interface {
	CoachingMessage(ctx context.Context, userID int64, weekly bool) (string, error)
	ImprovementMessage(ctx context.Context, userID int64) (string, error)
}

type Handler struct {
	store      Store
	coach      Coach
	classifier coach.Classifier
	allowed    *int64
	now        func() time.Time
	log        *zap.Logger

	mu     sync.Mutex
	drafts map[int64]*addDraft
}

type Option func(*Handler)

// WithAllowedChat restricts the bot to a single chat.
func WithAllowedChat(chatID int64) Option {
	return func(h *Handler) { h.allowed = &chatID }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.log = l }
}

func New(store Store, c Coach, classifier coach.Classifier, opts ...Option) *Handler {
	h := &Handler{
		store:      store,
		coach:      c,
		classifier: classifier,
		now:        time.Now,
		log:        zap.NewNop(),
		drafts:     make(map[int64]*addDraft),
	}
	for _, o := range opts {
		o(h)
	}
	h.log = h.log.Named("bot")
	return h
}

// Authorized reports whether the chat may use the bot.
func (h *Handler) Authorized(chatID int64) bool {
	return h.allowed == nil || *h.allowed == chatID
}

// HandleMessage answers one incoming text message. Store failures become a
// generic error reply; they are logged, not returned.
func (h *Handler) HandleMessage(ctx context.Context, m Message) []Reply {
	if !h.Authorized(m.ChatID) {
		return []Reply{{Text: UnauthorizedText}}
	}
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return nil
	}
	if _, err := h.store.UpsertUser(ctx, m.UserID, m.Username, m.FirstName); err != nil {
		return h.fail(m.UserID, "upserting user", err)
	}

	var (
		replies []Reply
		err     error
	)
	if name, args, ok := parseCommand(text); ok {
		replies, err = h.command(ctx, m.UserID, name, args)
	} else if d, ok := h.draft(m.UserID); ok {
		replies, err = h.continueAdd(ctx, m.UserID, d, text)
	} else {
		replies, err = h.captureNote(ctx, m.UserID, text)
	}
	if err != nil {
		return h.fail(m.UserID, "handling message", err)
	}
	return replies
}

// HandleCallback applies a button press and returns the new text for the
// message that carried it. An empty string leaves the message unchanged.
func (h *Handler) HandleCallback(ctx context.Context, cb Callback) (string, error) {
	if !h.Authorized(cb.ChatID) {
		return "", ErrUnauthorized
	}
	action, rawID, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return "", nil
	}
	status, err := h.callback(ctx, cb.UserID, action, rawID)
	if err != nil {
		h.log.Error("handling callback", zap.Int64("user_id", cb.UserID), zap.String("data", cb.Data), zap.Error(err))
		return "", err
	}
	if status == "" {
		return "", nil
	}
	return cb.MessageText + "\n\nStatus: " + status, nil
}

func (h *Handler) fail(userID int64, what string, err error) []Reply {
	h.log.Error(what, zap.Int64("user_id", userID), zap.Error(err))
	return []Reply{{Text: ErrorText}}
}

// parseCommand splits "/name@bot args" into name and args.
func parseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, rest = head[:i], head[i:]
	}
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func textReply(lines ...string) []Reply {
	out := make([]Reply, len(lines))
	for i, l := range lines {
		out[i] = Reply{Text: l}
	}
	return out
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chris/todocoach/internal/db"
	"github.com/chris/todocoach/internal/model"
)

const (
	listLimit  = 30
	choreLimit = 25
)

func (h *Handler) command(ctx context.Context, userID int64, name, args string) ([]Reply, error) {
	switch name {
	case "start":
		return textReply("To-Do Coach is active.\n\n" + HelpText), nil
	case "help":
		return textReply(HelpText), nil
	case "add":
		return h.add(ctx, userID, args)
	case "cancel":
		h.dropDraft(userID)
		return textReply("Add flow canceled."), nil
	case "list":
		return h.list(ctx, userID)
	case "goal":
		return h.goal(ctx, userID, args)
	case "checkin", "review":
		msg, err := h.coach.CoachingMessage(ctx, userID, name == "review")
		if err != nil {
			return nil, err
		}
		return textReply(msg), nil
	case "improve":
		msg, err := h.coach.ImprovementMessage(ctx, userID)
		if err != nil {
			return nil, err
		}
		return textReply(msg), nil
	case "reflect":
		return h.reflect(ctx, userID)
	case "pass":
		return h.passReflection(ctx, userID)
	case "chores":
		return h.chores(ctx, userID)
	default:
		return textReply("Unknown command. Send /help for the list."), nil
	}
}

func (h *Handler) add(ctx context.Context, userID int64, args string) ([]Reply, error) {
	if args == "" {
		h.startDraft(userID)
		return textReply("Send task title."), nil
	}
	h.dropDraft(userID)
	p, err := model.ParseAddPayload(args)
	if err != nil {
		return textReply(err.Error() + "\nExample: /add Call lead | high | 2026-03-01"), nil
	}
	saved, err := h.saveTodo(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	return textReply(addedMessage(saved)), nil
}

func (h *Handler) list(ctx context.Context, userID int64) ([]Reply, error) {
	todos, err := h.store.ListActiveTodos(ctx, userID, listLimit)
	if err != nil {
		return nil, err
	}
	if len(todos) == 0 {
		return textReply("No active tasks."), nil
	}
	now := h.now()
	replies := textReply("Active tasks. Use each task's buttons to mark done or delete.")
	for i, t := range todos {
		replies = append(replies, Reply{Text: todoMessage(t, i+1, now), Buttons: TodoButtons(t.ID)})
	}
	return replies, nil
}

func (h *Handler) goal(ctx context.Context, userID int64, args string) ([]Reply, error) {
	if args != "" {
		if err := h.store.SetMainGoal(ctx, userID, args); err != nil {
			return nil, err
		}
		return textReply("Main goal updated: " + args), nil
	}
	p, err := h.store.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return textReply("Current main goal: " + p.MainGoal), nil
}

func (h *Handler) chores(ctx context.Context, userID int64) ([]Reply, error) {
	due, err := h.store.ListDueChores(ctx, userID, h.now(), choreLimit)
	if err != nil {
		return nil, err
	}
	if len(due) > 0 {
		replies := textReply("Weekend chores pending confirmation. Mark each one when done:")
		for _, c := range due {
			replies = append(replies, Reply{
				Text:    fmt.Sprintf("%s\nDue since: %s", c.Name, FormatDate(c.NextDueDate)),
				Buttons: ChoreDoneButtons(c.ID),
			})
		}
		return replies, nil
	}
	all, err := h.store.ListChores(ctx, userID, choreLimit)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return textReply("No recurring chores configured."), nil
	}
	return textReply(choreSchedule(all)), nil
}

func (h *Handler) reflect(ctx context.Context, userID int64) ([]Reply, error) {
	now := h.now()
	var replies []Reply
	for _, q := range model.DailyReflections {
		created, err := h.store.EnsureDailyReflection(ctx, userID, q.Key, q.Question, now)
		if err != nil {
			return nil, err
		}
		if created {
			replies = append(replies, Reply{Text: ReflectionPrompt(q.Question)})
		}
	}
	if len(replies) > 0 {
		return replies, nil
	}

	pending, err := h.pendingReflection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return textReply("Today's reflection questions are already answered or skipped."), nil
	}
	remaining, err := h.store.CountPendingReflections(ctx, userID)
	if err != nil {
		return nil, err
	}
	text := ReflectionPrompt(pending.Question)
	if remaining > 1 {
		text += pendingSuffix(remaining)
	}
	return textReply(text), nil
}

func (h *Handler) passReflection(ctx context.Context, userID int64) ([]Reply, error) {
	pending, err := h.pendingReflection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return textReply("No pending reflection to skip right now."), nil
	}
	ok, err := h.store.PassPendingReflection(ctx, userID, "pass_command")
	if err != nil {
		return nil, err
	}
	if !ok {
		return textReply("Could not skip reflection right now."), nil
	}
	return h.withNextReflection(ctx, userID, textReply("Skipped: "+pending.Question))
}

// captureNote handles plain text: it skips or answers today's pending
// reflection, or stores the text as a journal note.
func (h *Handler) captureNote(ctx context.Context, userID int64, text string) ([]Reply, error) {
	lowered := strings.ToLower(text)
	if lowered == "pass" || lowered == "skip" {
		ok, err := h.store.PassPendingReflection(ctx, userID, lowered)
		if err != nil {
			return nil, err
		}
		if ok {
			return h.withNextReflection(ctx, userID, textReply("Reflection skipped for today."))
		}
	}

	pending, err := h.pendingReflection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		ok, err := h.store.SavePendingReflectionAnswer(ctx, userID, text)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := h.store.AddJournalEntry(ctx, userID, pending.Question+" -> "+text, model.SourceReflection); err != nil {
				return nil, err
			}
			return h.withNextReflection(ctx, userID, textReply("Saved your daily reflection."))
		}
	}
	return nil, h.store.AddJournalEntry(ctx, userID, text, model.SourceChat)
}

// withNextReflection appends the next pending question, if any.
func (h *Handler) withNextReflection(ctx context.Context, userID int64, replies []Reply) ([]Reply, error) {
	remaining, err := h.store.CountPendingReflections(ctx, userID)
	if err != nil || remaining == 0 {
		return replies, err
	}
	next, err := h.pendingReflection(ctx, userID)
	if err != nil || next == nil {
		return replies, err
	}
	return append(replies, Reply{Text: ReflectionPrompt(next.Question) + pendingSuffix(remaining)}), nil
}

// pendingReflection returns nil without error when nothing is pending.
func (h *Handler) pendingReflection(ctx context.Context, userID int64) (*model.Reflection, error) {
	r, err := h.store.GetPendingReflection(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

func (h *Handler) callback(ctx context.Context, userID int64, action, rawID string) (string, error) {
	const notFound = "not found/already updated."
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return notFound, nil
	}
	switch action {
	case ActionDone:
		ok, err := h.store.MarkTodoDone(ctx, userID, id)
		return pick(ok, "completed.", notFound), err
	case ActionDelete:
		ok, err := h.store.DeleteTodo(ctx, userID, id)
		return pick(ok, "deleted.", notFound), err
	case ActionChoreDone:
		c, err := h.store.MarkChoreDone(ctx, userID, id, h.now())
		if errors.Is(err, db.ErrNotFound) {
			return notFound, nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("confirmed done. Next due: %s.", FormatDate(c.NextDueDate)), nil
	case ActionChoreNotDone:
		return "not done yet. It stays in weekend reminders.", nil
	case ActionChorePassWeekend:
		c, err := h.store.PassChoreWeekend(ctx, userID, id, h.now())
		if errors.Is(err, db.ErrNotFound) {
			return notFound, nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("passed for this weekend. Next due: %s.", FormatDate(c.NextDueDate)), nil
	default:
		return "", nil
	}
}

func pick(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

package bot

import (
	"context"
	"strings"

	"github.com/chris/todocoach/internal/model"
)

type addStep int

const (
	stepTitle addStep = iota
	stepPriority
	stepDeadline
)

// addDraft is a /add conversation in progress.
type addDraft struct {
	step     addStep
	title    string
	priority int
}

// draft returns a copy of the user's draft. Updates go through saveDraft.
func (h *Handler) draft(userID int64) (addDraft, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.drafts[userID]
	if !ok {
		return addDraft{}, false
	}
	return *d, true
}

func (h *Handler) saveDraft(userID int64, d addDraft) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drafts[userID] = &d
}

func (h *Handler) startDraft(userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drafts[userID] = &addDraft{step: stepTitle}
}

// dropDraft reports whether a draft existed.
func (h *Handler) dropDraft(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.drafts[userID]
	delete(h.drafts, userID)
	return ok
}

func (h *Handler) continueAdd(ctx context.Context, userID int64, d addDraft, text string) ([]Reply, error) {
	switch d.step {
	case stepTitle:
		title := strings.TrimSpace(text)
		if title == "" {
			return textReply("Title cannot be empty. Send task title."), nil
		}
		d.title, d.step = title, stepPriority
		h.saveDraft(userID, d)
		return textReply("Send priority: high/medium/low (or 1/2/3)."), nil

	case stepPriority:
		p, ok := model.ParsePriority(text)
		if !ok {
			return textReply("Invalid priority. Use high/medium/low or 1/2/3."), nil
		}
		d.priority, d.step = p, stepDeadline
		h.saveDraft(userID, d)
		return textReply("Send deadline in YYYY-MM-DD, or skip for default (+1 month)."), nil

	default:
		deadline, err := model.ParseDeadline(text)
		if err != nil {
			return textReply(err.Error()), nil
		}
		h.dropDraft(userID)
		if d.title == "" {
			return textReply("Task title missing. Start again with /add."), nil
		}
		saved, err := h.saveTodo(ctx, userID, model.AddPayload{Title: d.title, Priority: d.priority, Deadline: deadline})
		if err != nil {
			return nil, err
		}
		return textReply(addedMessage(saved)), nil
	}
}

func (h *Handler) saveTodo(ctx context.Context, userID int64, p model.AddPayload) (*model.Todo, error) {
	return h.store.AddTodo(ctx, model.Todo{
		UserID:      userID,
		Title:       p.Title,
		Priority:    p.Priority,
		ProjectType: h.classifier.InferProjectType(p.Title),
		Deadline:    p.Deadline,
	})
}

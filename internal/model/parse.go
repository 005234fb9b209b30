package model

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrEmptyTask       = errors.New("Empty task. Use: /add Task | high | 2026-03-01")
	ErrTitleRequired   = errors.New("Task title is required.")
	ErrInvalidPriority = errors.New("Priority must be high/medium/low, p1/p2/p3, or 1/2/3.")
	ErrInvalidDeadline = errors.New("Deadline must be in YYYY-MM-DD format, or use skip.")
)

var (
	datePattern     = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	priorityPattern = regexp.MustCompile(`(?i)\b(p[123]|high|medium|med|low|urgent|[123])\b`)
)

// AddPayload is a parsed /add request.
type AddPayload struct {
	Title    string
	Priority int
	Deadline *time.Time
}

// ParsePriority maps 1/2/3, p1..p3 and the high/medium/low words to a priority.
func ParsePriority(raw string) (int, bool) {
	p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// ParseDeadline parses a YYYY-MM-DD date into end of day UTC. Empty input and
// the words skip, none and "-" mean no deadline.
func ParseDeadline(raw string) (*time.Time, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "", "skip", "none", "-":
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, ErrInvalidDeadline
	}
	end := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
	return &end, nil
}

// ParseAddPayload accepts either "title | priority | deadline" or free text
// with an embedded date and priority word, e.g. "call client high 2026-03-01".
func ParseAddPayload(raw string) (AddPayload, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return AddPayload{}, ErrEmptyTask
	}

	if strings.Contains(payload, "|") {
		parts := strings.Split(payload, "|")
		for len(parts) < 3 {
			parts = append(parts, "")
		}
		title := strings.TrimSpace(parts[0])
		prioRaw := strings.TrimSpace(parts[1])
		if title == "" {
			return AddPayload{}, ErrTitleRequired
		}
		priority := PriorityMedium
		if prioRaw != "" {
			p, ok := ParsePriority(prioRaw)
			if !ok {
				return AddPayload{}, ErrInvalidPriority
			}
			priority = p
		}
		deadline, err := ParseDeadline(parts[2])
		if err != nil {
			return AddPayload{}, err
		}
		return AddPayload{Title: title, Priority: priority, Deadline: deadline}, nil
	}

	working := payload
	out := AddPayload{Priority: PriorityMedium}

	if loc := datePattern.FindStringSubmatchIndex(working); loc != nil {
		deadline, err := ParseDeadline(working[loc[2]:loc[3]])
		if err != nil {
			return AddPayload{}, err
		}
		out.Deadline = deadline
		working = strings.TrimSpace(working[:loc[0]] + working[loc[1]:])
	}

	if loc := priorityPattern.FindStringSubmatchIndex(working); loc != nil {
		if p, ok := ParsePriority(working[loc[2]:loc[3]]); ok {
			out.Priority = p
			working = strings.TrimSpace(working[:loc[0]] + working[loc[1]:])
		}
	}

	out.Title = strings.Join(strings.Fields(working), " ")
	if out.Title == "" {
		return AddPayload{}, ErrTitleRequired
	}
	return out, nil
}

// CollapseText joins whitespace runs into single spaces and cuts the result
// to at most limit runes.
func CollapseText(text string, limit int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if r := []rune(clean); len(r) > limit {
		clean = string(r[:limit])
	}
	return clean
}

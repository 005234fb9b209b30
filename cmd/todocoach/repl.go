package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chris/todocoach/internal/bot"
)

const prompt = "todo> "

type chatHandler interface {
	HandleMessage(ctx context.Context, m bot.Message) []bot.Reply
	HandleCallback(ctx context.Context, cb bot.Callback) (string, error)
}

// repl is the local transport used when no chat token is configured. Lines
// are sent as chat messages; "@<data>" presses a button shown earlier.
type repl struct {
	in      io.Reader
	handler chatHandler
	userID  int64

	mu      sync.Mutex
	out     io.Writer
	buttons map[string]string // callback data -> text of the message carrying it
}

func newREPL(in io.Reader, out io.Writer, h chatHandler, userID int64) *repl {
	return &repl{in: in, out: out, handler: h, userID: userID, buttons: map[string]string{}}
}

// Run reads input until EOF, "exit" or ctx cancellation.
func (r *repl) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r.write(prompt)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input := strings.TrimSpace(line)
			if input == "exit" || input == "quit" {
				return nil
			}
			if input != "" {
				r.handle(ctx, input)
			}
			r.write(prompt)
		}
	}
}

func (r *repl) handle(ctx context.Context, input string) {
	if data, ok := strings.CutPrefix(input, "@"); ok {
		r.press(ctx, data)
		return
	}
	replies := r.handler.HandleMessage(ctx, bot.Message{
		ChatID:    r.userID,
		UserID:    r.userID,
		Username:  "local",
		FirstName: "Local",
		Text:      input,
	})
	for _, reply := range replies {
		r.print(reply)
	}
}

func (r *repl) press(ctx context.Context, data string) {
	r.mu.Lock()
	text, known := r.buttons[data]
	r.mu.Unlock()
	if !known {
		r.write("No such button: @" + data + "\n")
		return
	}

	updated, err := r.handler.HandleCallback(ctx, bot.Callback{
		ChatID:      r.userID,
		UserID:      r.userID,
		Data:        data,
		MessageText: text,
	})
	switch {
	case errors.Is(err, bot.ErrUnauthorized):
		r.write(bot.UnauthorizedText + "\n")
	case err != nil:
		r.write(bot.ErrorText + "\n")
	case updated != "":
		r.mu.Lock()
		delete(r.buttons, data)
		r.mu.Unlock()
		r.write(updated + "\n\n")
	}
}

// Send prints a scheduled message between prompts.
func (r *repl) Send(ctx context.Context, userID int64, reply bot.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.print(reply)
	return nil
}

func (r *repl) print(reply bot.Reply) {
	var b strings.Builder
	b.WriteString(reply.Text)
	b.WriteString("\n")
	for _, row := range reply.Buttons {
		labels := make([]string, len(row))
		for i, btn := range row {
			labels[i] = fmt.Sprintf("[%s] @%s", btn.Label, btn.Data)
		}
		b.WriteString("  " + strings.Join(labels, "  ") + "\n")
	}
	b.WriteString("\n")

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range reply.Buttons {
		for _, btn := range row {
			r.buttons[btn.Data] = reply.Text
		}
	}
	io.WriteString(r.out, b.String())
}

func (r *repl) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.out, s)
}

package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds one Generate call across all completers.
const DefaultTimeout = 60 * time.Second

// Completer is a single text-generation API shape.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Generator tries its completers in order and returns the first non-empty
// answer. Errors are logged, never returned: "" means no text is available.
type Generator struct {
	completers []Completer
	timeout    time.Duration
	log        *zap.Logger
}

func NewGeneratorFrom(completers []Completer, timeout time.Duration, log *zap.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{completers: completers, timeout: timeout, log: log}
}

// Available reports whether any completer is configured.
func (g *Generator) Available() bool {
	return g != nil && len(g.completers) > 0
}

func (g *Generator) Generate(ctx context.Context, system, user string) string {
	if !g.Available() {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.log.Debug("generating", zap.Int("prompt_tokens", EstimatePromptTokens(system, user)))
	for _, c := range g.completers {
		start := time.Now()
		text, err := c.Complete(ctx, system, user)
		if err != nil {
			g.log.Warn("completion failed", zap.String("backend", c.Name()), zap.Error(err))
			if ctx.Err() != nil {
				return ""
			}
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			g.log.Debug("completion done",
				zap.String("backend", c.Name()),
				zap.Int("response_tokens", EstimateTokens(text)),
				zap.Duration("took", time.Since(start)),
			)
			return text
		}
		g.log.Warn("empty completion", zap.String("backend", c.Name()))
	}
	return ""
}

package coach

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chris/todocoach/internal/model"
	"gopkg.in/yaml.v3"
)

// GeneralProjectType is assigned when no rule matches a title.
const GeneralProjectType = "general"

type ProjectTypeRule struct {
	Type     string   `yaml:"type"`
	Keywords []string `yaml:"keywords"`
}

// Classifier holds the keyword heuristics behind project types, willingness
// signals and money alignment. Matching is case-insensitive substring search.
type Classifier struct {
	MomentumWords     []string          `yaml:"momentum_words"`
	ResistanceWords   []string          `yaml:"resistance_words"`
	MoneyKeywords     []string          `yaml:"money_keywords"`
	MoneyProjectTypes []string          `yaml:"money_project_types"`
	ProjectTypes      []ProjectTypeRule `yaml:"project_types"`
}

func DefaultClassifier() Classifier {
	return Classifier{
		MomentumWords: []string{
			"done", "completed", "finished", "shipped", "sent",
			"called", "closed", "progress", "focused", "win",
		},
		ResistanceWords: []string{
			"stuck", "avoid", "avoiding", "procrast", "later", "tired",
			"blocked", "overwhelmed", "distracted", "hard", "cannot", "can't",
		},
		MoneyKeywords: []string{
			"sales", "sell", "client", "lead", "prospect", "revenue", "invoice", "pricing",
			"offer", "proposal", "outreach", "contract", "funnel", "ads", "campaign", "market",
		},
		MoneyProjectTypes: []string{"sales", "marketing", "product"},
		ProjectTypes: []ProjectTypeRule{
			{Type: "sales", Keywords: []string{"sale", "sell", "client", "lead", "prospect", "invoice", "deal", "proposal", "contract", "call"}},
			{Type: "marketing", Keywords: []string{"market", "campaign", "ads", "post", "newsletter", "seo", "content", "funnel", "brand"}},
			{Type: "product", Keywords: []string{"feature", "build", "ship", "release", "bug", "deploy", "prototype", "mvp", "product"}},
			{Type: "learning", Keywords: []string{"learn", "read", "course", "study", "book", "practice", "tutorial"}},
			{Type: "admin", Keywords: []string{"tax", "bank", "bill", "email", "paperwork", "form", "insurance", "renew", "admin"}},
			{Type: "health", Keywords: []string{"gym", "run", "workout", "doctor", "dentist", "sleep", "meditat", "walk"}},
			{Type: "home", Keywords: []string{"clean", "laundry", "grocer", "cook", "repair", "plant", "fix"}},
		},
	}
}

// LoadClassifier reads a YAML override file. Lists missing from the file keep
// their defaults. An empty path returns the defaults.
func LoadClassifier(path string) (Classifier, error) {
	c := DefaultClassifier()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading classifier file: %w", err)
	}
	var override Classifier
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return c, fmt.Errorf("parsing classifier file: %w", err)
	}
	if len(override.MomentumWords) > 0 {
		c.MomentumWords = lowerAll(override.MomentumWords)
	}
	if len(override.ResistanceWords) > 0 {
		c.ResistanceWords = lowerAll(override.ResistanceWords)
	}
	if len(override.MoneyKeywords) > 0 {
		c.MoneyKeywords = lowerAll(override.MoneyKeywords)
	}
	if len(override.MoneyProjectTypes) > 0 {
		c.MoneyProjectTypes = override.MoneyProjectTypes
	}
	if len(override.ProjectTypes) > 0 {
		rules := make([]ProjectTypeRule, 0, len(override.ProjectTypes))
		for _, r := range override.ProjectTypes {
			if r.Type == "" {
				return c, errors.New("project type rule without type")
			}
			rules = append(rules, ProjectTypeRule{Type: r.Type, Keywords: lowerAll(r.Keywords)})
		}
		c.ProjectTypes = rules
	}
	return c, nil
}

// InferProjectType returns the first rule type with a keyword in title.
func (c Classifier) InferProjectType(title string) string {
	text := strings.ToLower(title)
	for _, rule := range c.ProjectTypes {
		if containsAny(text, rule.Keywords) {
			return rule.Type
		}
	}
	return GeneralProjectType
}

// CountSignals counts vocabulary hits across notes. Each word counts at most
// once per note, and one note can add to both totals.
func (c Classifier) CountSignals(notes []string) (momentum, resistance int) {
	for _, note := range notes {
		text := strings.ToLower(note)
		momentum += countMatches(text, c.MomentumWords)
		resistance += countMatches(text, c.ResistanceWords)
	}
	return momentum, resistance
}

// MoneyAligned reports whether a todo supports earning: a money keyword in
// the title or a money project type.
func (c Classifier) MoneyAligned(t model.Todo) bool {
	if containsAny(strings.ToLower(t.Title), c.MoneyKeywords) {
		return true
	}
	for _, pt := range c.MoneyProjectTypes {
		if t.ProjectType == pt {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func countMatches(text string, words []string) int {
	n := 0
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}

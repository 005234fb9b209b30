package model

import "time"

const (
	SourceChat       = "chat"
	SourceReflection = "reflection"
)

// MaxJournalLength caps stored journal text, in runes.
const MaxJournalLength = 1200

type Reflection struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	QuestionKey  string     `json:"question_key"`
	Question     string     `json:"question"`
	AskedForDate string     `json:"asked_for_date"`
	AskedAt      time.Time  `json:"asked_at"`
	Answer       *string    `json:"answer,omitempty"`
	AnsweredAt   *time.Time `json:"answered_at,omitempty"`
	Skipped      bool       `json:"skipped"`
	SkipNote     string     `json:"skip_note,omitempty"`
}

type ReflectionQuestion struct {
	Key      string
	Question string
}

// DailyReflections are asked once per day, in this order.
var DailyReflections = []ReflectionQuestion{
	{Key: "who_am_i", Question: "Answer the question on a daily basis for 5 min: Who am I?"},
	{Key: "lower_expectations", Question: "Need to work on lowering expectations so that I am happier."},
}

type JournalEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

package model

import "time"

// MessageRole is the author of a dialog message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Dialog is one conversation with the assistant.
type Dialog struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DialogMessage is a single message inside a dialog. System messages carry
// rolling summaries produced when the history grows past the configured
// window.
type DialogMessage struct {
	ID        int64       `json:"id" db:"id"`
	DialogID  int64       `json:"dialog_id" db:"dialog_id"`
	Role      MessageRole `json:"role" db:"role"`
	Content   string      `json:"content" db:"content"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// DialogSettings overrides assistant behavior per dialog. Temperature and
// MaxTokens are numeric with validated ranges, not strings.
type DialogSettings struct {
	ID           int64     `json:"id" db:"id"`
	DialogID     int64     `json:"dialog_id" db:"dialog_id"`
	SystemPrompt string    `json:"system_prompt" db:"system_prompt"`
	Model        string    `json:"model" db:"model"`
	Temperature  float64   `json:"temperature" db:"temperature"`
	MaxTokens    int       `json:"max_tokens" db:"max_tokens"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ClampSettings forces temperature and max tokens into sane ranges.
func (s *DialogSettings) ClampSettings() {
	if s.Temperature < 0 {
		s.Temperature = 0
	}
	if s.Temperature > 2 {
		s.Temperature = 2
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = 1000
	}
	if s.MaxTokens > 8192 {
		s.MaxTokens = 8192
	}
}

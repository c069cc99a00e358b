// Package chat implements the dialog assistant: persisted conversations with
// per-dialog model settings and rolling summarization of long histories.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/model"
	"github.com/agb-search/agb-searcher/internal/store"
	"github.com/agb-search/agb-searcher/pkg/llm"
)

// defaultSystemPrompt keeps answers in Russian and in Markdown. Dialogs can
// override it through their settings.
const defaultSystemPrompt = `Ты - помощник по поиску информации о компаниях и оборудовании.
Ты помогаешь пользователям находить информацию о российских компаниях, их контактах,
оборудовании и деятельности. Отвечай на русском языке, будь полезным и информативным.
Если пользователь спрашивает о компаниях или оборудовании, предложи использовать
функции поиска в системе.

**ВАЖНО**: Всегда форматируй свои ответы в Markdown для лучшей читаемости:
- Используй заголовки (# ## ###) для структурирования
- Используй списки (- или 1.) для перечислений
- Выделяй важные моменты **жирным** или *курсивом*
- Используй ` + "`код`" + ` для технических терминов
- Создавай таблицы для структурированных данных
- Используй > для цитат и важных замечаний`

const summarizeSystemPrompt = `Ты - помощник для создания краткого резюме диалога.
Создай краткое резюме (не более 200 слов) основного содержания диалога между пользователем и AI помощником.
Сохрани ключевые темы, вопросы пользователя и важные ответы AI.
Резюме должно быть на русском языке и помогать продолжить диалог с сохранением контекста.`

// errorReply is returned to the user when the model call fails. The failure
// itself is logged; the dialog keeps going.
const errorReply = "Извините, произошла ошибка при обращении к AI. Попробуйте позже."

const (
	defaultModel       = "gpt-4o"
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000

	summaryMaxTokens   = 300
	summaryTemperature = 0.3
)

// Config tunes the assistant.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// SummarizeThreshold is the message count at which the history is
	// compacted. Zero disables compaction.
	SummarizeThreshold int
	// KeepRecent messages survive compaction verbatim.
	KeepRecent int
}

// Assistant answers user messages inside persisted dialogs.
type Assistant struct {
	llm   llm.Client
	store store.Store
	cfg   Config
}

// New creates an Assistant. Zero config fields fall back to defaults.
func New(client llm.Client, st store.Store, cfg Config) *Assistant {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = 6
	}
	return &Assistant{llm: client, store: st, cfg: cfg}
}

// Send appends the user message to the dialog, asks the model, stores the
// assistant reply, and returns it. A model failure is not an error to the
// caller: a canned apology is stored and returned instead, so history stays
// consistent.
func (a *Assistant) Send(ctx context.Context, dialogID int64, userMessage string) (*model.DialogMessage, error) {
	dialog, err := a.store.GetDialog(ctx, dialogID)
	if err != nil {
		return nil, eris.Wrap(err, "chat: load dialog")
	}
	if dialog == nil {
		return nil, eris.Errorf("chat: dialog %d not found", dialogID)
	}

	if _, err := a.store.AddDialogMessage(ctx, dialogID, model.RoleUser, userMessage); err != nil {
		return nil, eris.Wrap(err, "chat: store user message")
	}

	history, err := a.store.ListDialogMessages(ctx, dialogID)
	if err != nil {
		return nil, eris.Wrap(err, "chat: load history")
	}

	settings, err := a.store.GetDialogSettings(ctx, dialogID)
	if err != nil {
		return nil, eris.Wrap(err, "chat: load settings")
	}

	reply := a.generate(ctx, history, settings)

	stored, err := a.store.AddDialogMessage(ctx, dialogID, model.RoleAssistant, reply)
	if err != nil {
		return nil, eris.Wrap(err, "chat: store assistant message")
	}

	if a.cfg.SummarizeThreshold > 0 && len(history)+1 >= a.cfg.SummarizeThreshold {
		if err := a.compact(ctx, dialogID); err != nil {
			zap.L().Warn("chat: history compaction failed",
				zap.Int64("dialog_id", dialogID),
				zap.Error(err))
		}
	}

	return stored, nil
}

func (a *Assistant) generate(ctx context.Context, history []model.DialogMessage, settings *model.DialogSettings) string {
	systemPrompt := defaultSystemPrompt
	modelName := a.cfg.Model
	temperature := a.cfg.Temperature
	maxTokens := a.cfg.MaxTokens
	if settings != nil {
		if settings.SystemPrompt != "" {
			systemPrompt = settings.SystemPrompt
		}
		if settings.Model != "" {
			modelName = settings.Model
		}
		if settings.Temperature > 0 {
			temperature = settings.Temperature
		}
		if settings.MaxTokens > 0 {
			maxTokens = settings.MaxTokens
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}

	reply, err := a.llm.Chat(ctx, llm.ChatRequest{
		Model:       modelName,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		zap.L().Warn("chat: model call failed", zap.Error(err))
		return errorReply
	}
	return reply
}

// compact replaces older history with a model-written summary, keeping the
// most recent messages verbatim.
func (a *Assistant) compact(ctx context.Context, dialogID int64) error {
	history, err := a.store.ListDialogMessages(ctx, dialogID)
	if err != nil {
		return eris.Wrap(err, "chat: load history for compaction")
	}
	if len(history) <= a.cfg.KeepRecent {
		return nil
	}
	older := history[:len(history)-a.cfg.KeepRecent]

	summary, err := a.Summarize(ctx, older)
	if err != nil {
		return err
	}

	if err := a.store.CompactDialog(ctx, dialogID, "Резюме предыдущего диалога:\n"+summary, a.cfg.KeepRecent); err != nil {
		return eris.Wrap(err, "chat: compact dialog")
	}
	zap.L().Info("chat: dialog history compacted",
		zap.Int64("dialog_id", dialogID),
		zap.Int("summarized", len(older)),
		zap.Int("kept", a.cfg.KeepRecent))
	return nil
}

// Summarize condenses a message run into a short Russian summary.
func (a *Assistant) Summarize(ctx context.Context, messages []model.DialogMessage) (string, error) {
	var b strings.Builder
	for _, m := range messages {
		role := "Пользователь"
		switch m.Role {
		case model.RoleAssistant:
			role = "Помощник"
		case model.RoleSystem:
			role = "Система"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}

	summary, err := a.llm.Chat(ctx, llm.ChatRequest{
		Model: a.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: summarizeSystemPrompt},
			{Role: "user", Content: "Создай резюме этого диалога:\n\n" + b.String()},
		},
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", eris.Wrap(err, "chat: summarize")
	}
	return summary, nil
}

package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/model"
)

func dialogID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "dialogID"), 10, 64)
	return id, err == nil
}

func (s *Server) handleListDialogs(w http.ResponseWriter, r *http.Request) {
	dialogs, err := s.store.ListDialogs(r.Context())
	if err != nil {
		zap.L().Error("server: list dialogs", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при получении списка диалогов")
		return
	}
	if dialogs == nil {
		dialogs = []model.Dialog{}
	}
	respondJSON(w, http.StatusOK, dialogs)
}

func (s *Server) handleCreateDialog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверное тело запроса")
		return
	}
	if req.Title == "" {
		req.Title = "Новый диалог"
	}
	dialog, err := s.store.CreateDialog(r.Context(), req.Title)
	if err != nil {
		zap.L().Error("server: create dialog", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при создании диалога")
		return
	}
	respondJSON(w, http.StatusCreated, dialog)
}

func (s *Server) handleGetDialog(w http.ResponseWriter, r *http.Request) {
	id, ok := dialogID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Неверный идентификатор диалога")
		return
	}
	dialog, err := s.store.GetDialog(r.Context(), id)
	if err != nil {
		zap.L().Error("server: get dialog", zap.Int64("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при получении диалога")
		return
	}
	if dialog == nil {
		respondError(w, http.StatusNotFound, "Диалог не найден")
		return
	}
	respondJSON(w, http.StatusOK, dialog)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := dialogID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Неверный идентификатор диалога")
		return
	}
	messages, err := s.store.ListDialogMessages(r.Context(), id)
	if err != nil {
		zap.L().Error("server: list messages", zap.Int64("dialog_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при получении сообщений")
		return
	}
	if messages == nil {
		messages = []model.DialogMessage{}
	}
	respondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := dialogID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Неверный идентификатор диалога")
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверное тело запроса")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "Сообщение не может быть пустым")
		return
	}

	reply, err := s.assistant.Send(r.Context(), id, req.Message)
	if err != nil {
		zap.L().Error("server: send message", zap.Int64("dialog_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при отправке сообщения")
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := dialogID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Неверный идентификатор диалога")
		return
	}
	settings, err := s.store.GetDialogSettings(r.Context(), id)
	if err != nil {
		zap.L().Error("server: get settings", zap.Int64("dialog_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при получении настроек")
		return
	}
	if settings == nil {
		// Defaults apply until the dialog saves its own settings.
		settings = &model.DialogSettings{
			DialogID:    id,
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   1000,
		}
	}
	respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := dialogID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Неверный идентификатор диалога")
		return
	}
	var settings model.DialogSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "Неверное тело запроса")
		return
	}
	settings.DialogID = id

	saved, err := s.store.UpsertDialogSettings(r.Context(), settings)
	if err != nil {
		zap.L().Error("server: update settings", zap.Int64("dialog_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при сохранении настроек")
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверное тело запроса")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "Email не может быть пустым")
		return
	}

	result, err := s.checker.Check(r.Context(), req.Email)
	if err != nil {
		zap.L().Warn("server: email check", zap.String("email", req.Email), zap.Error(err))
		respondError(w, http.StatusBadGateway, "Проверка email временно недоступна")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/model"
)

type equipmentSearchResult struct {
	Companies     []companySearchResult `json:"companies"`
	EquipmentName string                `json:"equipment_name"`
	TotalFound    int                   `json:"total_found"`
}

// handleSearchEquipment finds companies that purchased a given piece of
// equipment. Found companies are saved, and the equipment catalog entry is
// refreshed with the result count.
func (s *Server) handleSearchEquipment(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверное тело запроса")
		return
	}
	equipmentName := model.NormalizeName(req.Query)
	if equipmentName == "" {
		respondError(w, http.StatusBadRequest, "Название оборудования не может быть пустым")
		return
	}

	logID, err := s.store.LogSearch(r.Context(), model.SearchTypeEquipment, equipmentName)
	if err != nil {
		zap.L().Warn("server: log search", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.LookupTimeout)
	defer cancel()

	records, err := s.searcher.SearchCompaniesByEquipment(ctx, equipmentName)
	if err != nil {
		zap.L().Error("server: equipment search",
			zap.String("equipment", equipmentName),
			zap.Error(err))
		respondError(w, http.StatusBadGateway, "Поиск временно недоступен. Попробуйте позже.")
		return
	}

	if logID != 0 {
		if err := s.store.SetSearchResults(r.Context(), logID, len(records)); err != nil {
			zap.L().Warn("server: update search log", zap.Error(err))
		}
	}
	if err := s.store.UpsertEquipment(r.Context(), equipmentName, len(records)); err != nil {
		zap.L().Warn("server: save equipment", zap.Error(err))
	}

	results := make([]companySearchResult, 0, len(records))
	for _, rec := range records {
		if _, err := s.store.UpsertCompany(r.Context(), rec); err != nil {
			zap.L().Warn("server: save company from equipment search",
				zap.String("company", rec.Name),
				zap.Error(err))
		}
		results = append(results, toSearchResult(rec))
	}

	respondJSON(w, http.StatusOK, equipmentSearchResult{
		Companies:     results,
		EquipmentName: equipmentName,
		TotalFound:    len(results),
	})
}

func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	items, err := s.store.ListEquipment(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("server: list equipment", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при получении списка оборудования")
		return
	}
	if items == nil {
		items = []model.Equipment{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleListSearchLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	logs, err := s.store.ListSearchLogs(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("server: list search logs", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при получении истории поисков")
		return
	}
	if logs == nil {
		logs = []model.SearchLog{}
	}
	respondJSON(w, http.StatusOK, logs)
}

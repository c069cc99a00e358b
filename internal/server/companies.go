package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/model"
)

// searchRequest is the body of both search endpoints.
type searchRequest struct {
	Query string `json:"query"`
}

// companySearchResult mirrors what a single lookup returns to the UI.
type companySearchResult struct {
	Name        string           `json:"name"`
	Website     string           `json:"website"`
	Email       string           `json:"email"`
	Address     string           `json:"address"`
	Phone       string           `json:"phone"`
	Description string           `json:"description"`
	Equipment   string           `json:"equipment"`
	Provenance  model.Provenance `json:"provenance"`
}

func toSearchResult(rec model.CompanyRecord) companySearchResult {
	return companySearchResult{
		Name:        rec.Name,
		Website:     rec.Website,
		Email:       rec.Email,
		Address:     rec.Address,
		Phone:       rec.Phone,
		Description: rec.Description,
		Equipment:   rec.Equipment,
		Provenance:  rec.Provenance,
	}
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	companies, err := s.store.ListCompanies(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("server: list companies", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при получении списка компаний")
		return
	}
	if companies == nil {
		companies = []model.CompanyRecord{}
	}
	respondJSON(w, http.StatusOK, companies)
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный идентификатор компании")
		return
	}
	company, err := s.store.GetCompany(r.Context(), id)
	if err != nil {
		zap.L().Error("server: get company", zap.Int64("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при получении компании")
		return
	}
	if company == nil {
		respondError(w, http.StatusNotFound, "Компания не найдена")
		return
	}
	respondJSON(w, http.StatusOK, company)
}

func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Неверный идентификатор компании")
		return
	}
	var update model.CompanyUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "Неверное тело запроса")
		return
	}
	company, err := s.store.UpdateCompany(r.Context(), id, update)
	if err != nil {
		zap.L().Error("server: update company", zap.Int64("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Ошибка при обновлении компании")
		return
	}
	if company == nil {
		respondError(w, http.StatusNotFound, "Компания не найдена")
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// handleSearchCompany runs the full lookup pipeline for one name. The search
// is logged before the lookup starts; the log is updated with the outcome.
func (s *Server) handleSearchCompany(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверное тело запроса")
		return
	}
	name := model.NormalizeName(req.Query)
	if name == "" {
		respondError(w, http.StatusBadRequest, "Название компании не может быть пустым")
		return
	}

	logID, err := s.store.LogSearch(r.Context(), model.SearchTypeCompany, name)
	if err != nil {
		zap.L().Warn("server: log search", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.LookupTimeout)
	defer cancel()

	record := s.searcher.SearchCompanyInfo(ctx, name)

	if logID != 0 {
		if err := s.store.SetSearchResults(r.Context(), logID, 1); err != nil {
			zap.L().Warn("server: update search log", zap.Error(err))
		}
	}

	if _, err := s.store.UpsertCompany(r.Context(), record); err != nil {
		zap.L().Warn("server: save search result", zap.String("company", name), zap.Error(err))
	}

	respondJSON(w, http.StatusOK, toSearchResult(record))
}

// handleBulkSearch accepts a multipart upload of an XLSX or CSV file with
// company names in the first column and enriches every unknown name.
func (s *Server) handleBulkSearch(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Файл не передан")
		return
	}
	defer file.Close()

	summary, err := s.importer.ImportReader(r.Context(), file, header.Filename)
	if err != nil {
		zap.L().Error("server: bulk search", zap.String("file", header.Filename), zap.Error(err))
		respondError(w, http.StatusBadRequest, "Поддерживаются только файлы Excel (.xlsx) и CSV")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Обработано " + strconv.Itoa(summary.Processed) +
			" компаний, найдено информации для " + strconv.Itoa(summary.Found),
		"companies_processed": summary.Processed,
		"companies_found":     summary.Found,
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

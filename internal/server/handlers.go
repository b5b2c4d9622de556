package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"ctfdojo/internal/catalog"

	"github.com/go-chi/chi/v5"
)

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CatalogSummary is the list entry for GET /api/catalogs.
type CatalogSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Total    int    `json:"total"`
	Duration int    `json:"duration"`
}

// CatalogDetail is the public view of a catalog. Flags and hints stay on the
// server.
type CatalogDetail struct {
	CatalogSummary
	StyleVariant string            `json:"style_variant,omitempty"`
	Wording      catalog.Wording   `json:"wording"`
	Challenges   []PublicChallenge `json:"challenges"`
}

type PublicChallenge struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Hints       int    `json:"hints"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := apiResponse{
		Error: &apiError{Code: code, Message: message},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "catalogs": len(s.catalogs)})
}

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	out := make([]CatalogSummary, 0, len(s.catalogs))
	for _, cat := range s.catalogs {
		out = append(out, s.summary(cat))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := catalog.Find(s.catalogs, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "catalog_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	detail := CatalogDetail{
		CatalogSummary: s.summary(cat),
		StyleVariant:   cat.StyleVariant,
		Wording:        cat.Wording,
		Challenges:     make([]PublicChallenge, 0, len(cat.Challenges)),
	}
	for _, ch := range cat.Challenges {
		detail.Challenges = append(detail.Challenges, PublicChallenge{
			ID:          ch.ID,
			Title:       ch.Title,
			Description: ch.Description,
			Hints:       len(ch.Hints),
		})
	}
	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) summary(cat catalog.Catalog) CatalogSummary {
	return CatalogSummary{
		ID:       cat.CatalogID,
		Name:     cat.Name,
		Total:    cat.Total(),
		Duration: s.duration,
	}
}

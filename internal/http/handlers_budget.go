package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"dentalbudget/internal/core"
)

type categoryRequest struct {
	ParentID   *int64 `json:"parent_id"`
	Name       string `json:"name"`
	Type       string `json:"category_type"`
	IsComputed bool   `json:"is_computed"`
	Formula    string `json:"formula"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.ListCategories(r.Context())
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	out := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}

	created, err := s.categories.CreateCategory(r.Context(), user, core.AccountCategory{
		ParentID:   req.ParentID,
		Name:       req.Name,
		Type:       core.CategoryType(req.Type),
		IsComputed: req.IsComputed,
		Formula:    req.Formula,
	})
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryView(created))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	id, ok := parseID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := s.categories.DeleteCategory(r.Context(), user, id); err != nil {
		errorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setAmountRequest struct {
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type updateLineRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type actualRequest struct {
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Source     string          `json:"source"`
}

func (s *Server) handleListLines(w http.ResponseWriter, r *http.Request) {
	periodID, ok := parseID(w, r, "periodID")
	if !ok {
		return
	}
	lines, err := s.budget.Lines(r.Context(), periodID)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	out := make([]resolvedLineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, toResolvedLineView(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetAmount(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	periodID, ok := parseID(w, r, "periodID")
	if !ok {
		return
	}
	var req setAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}
	if req.CategoryID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "category_id is required")
		return
	}

	line, err := s.budget.SetAmount(r.Context(), user, periodID, req.CategoryID, req.Amount)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineView(line))
}

func (s *Server) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	lineID, ok := parseID(w, r, "lineID")
	if !ok {
		return
	}
	var req updateLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}

	line, err := s.budget.UpdateLine(r.Context(), user, lineID, req.Amount)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineView(line))
}

func (s *Server) handleDeleteLine(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	lineID, ok := parseID(w, r, "lineID")
	if !ok {
		return
	}
	if err := s.budget.DeleteLine(r.Context(), user, lineID); err != nil {
		errorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePeriodTotal(w http.ResponseWriter, r *http.Request) {
	periodID, ok := parseID(w, r, "periodID")
	if !ok {
		return
	}
	ct := core.CategoryType(r.URL.Query().Get("type"))

	total, err := s.budget.TotalForPeriod(r.Context(), periodID, ct)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period_id":     periodID,
		"category_type": ct,
		"total":         total,
	})
}

func (s *Server) handleRecordActual(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	periodID, ok := parseID(w, r, "periodID")
	if !ok {
		return
	}
	var req actualRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}
	if req.CategoryID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "category_id is required")
		return
	}

	entry, err := s.budget.RecordActual(r.Context(), user, periodID, req.CategoryID, req.Amount, req.Source)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActualView(entry))
}

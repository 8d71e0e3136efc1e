package http

import (
	"net/http"

	"dentalbudget/internal/core"
)

type practiceRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

func (s *Server) handleListPractices(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	practices, err := s.registry.ListPractices(r.Context(), p.Offset, p.Limit)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	out := make([]practiceView, 0, len(practices))
	for _, pr := range practices {
		out = append(out, toPracticeView(pr))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePractice(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	var req practiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}

	created, err := s.registry.CreatePractice(r.Context(), user, core.Practice{
		Name:     req.Name,
		Location: req.Location,
		Status:   core.PracticeStatus(req.Status),
	})
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPracticeView(created))
}

func (s *Server) handleGetPractice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "practiceID")
	if !ok {
		return
	}
	practice, err := s.registry.GetPractice(r.Context(), id)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPracticeView(practice))
}

func (s *Server) handleUpdatePractice(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	id, ok := parseID(w, r, "practiceID")
	if !ok {
		return
	}
	var req practiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}

	updated, err := s.registry.UpdatePractice(r.Context(), user, core.Practice{
		ID:       id,
		Name:     req.Name,
		Location: req.Location,
		Status:   core.PracticeStatus(req.Status),
	})
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPracticeView(updated))
}

func (s *Server) handleDeletePractice(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	id, ok := parseID(w, r, "practiceID")
	if !ok {
		return
	}
	if err := s.registry.DeletePractice(r.Context(), user, id); err != nil {
		errorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fiscalYearRequest struct {
	Year int `json:"year"`
}

type fiscalYearResponse struct {
	fiscalYearView
	Periods []periodView `json:"periods"`
}

func (s *Server) handleListFiscalYears(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "practiceID")
	if !ok {
		return
	}
	years, err := s.registry.ListFiscalYears(r.Context(), id)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	out := make([]fiscalYearView, 0, len(years))
	for _, fy := range years {
		out = append(out, toFiscalYearView(fy))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateFiscalYear(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	id, ok := parseID(w, r, "practiceID")
	if !ok {
		return
	}
	var req fiscalYearRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}

	fy, periods, err := s.registry.CreateFiscalYear(r.Context(), user, id, req.Year)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}

	resp := fiscalYearResponse{
		fiscalYearView: toFiscalYearView(fy),
		Periods:        make([]periodView, 0, len(periods)),
	}
	for _, p := range periods {
		resp.Periods = append(resp.Periods, toPeriodView(p))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "fiscalYearID")
	if !ok {
		return
	}
	periods, err := s.registry.ListPeriods(r.Context(), id)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	out := make([]periodView, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

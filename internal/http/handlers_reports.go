package http

import (
	"net/http"
	"time"
)

func (s *Server) handleVarianceReport(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := parseID(w, r, "practiceID")
	if !ok {
		return
	}
	periodID, ok := parseID(w, r, "periodID")
	if !ok {
		return
	}

	report, err := s.reports.Variance(r.Context(), practiceID, periodID)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVarianceReportView(report))
}

func (s *Server) handlePLReport(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := parseID(w, r, "practiceID")
	if !ok {
		return
	}

	start, err := time.Parse(dateLayout, r.URL.Query().Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "end_date must be YYYY-MM-DD")
		return
	}

	report, err := s.reports.ProfitAndLoss(r.Context(), practiceID, start, end)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPLReportView(report))
}

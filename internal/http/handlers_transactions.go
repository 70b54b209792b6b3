package http

import (
	"net/http"
	"strconv"
)

// handleCreateTransaction expands a template into one or more ledger
// records and returns the user's refreshed ledger.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	req, err := decodeTransactionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tpl, err := req.toTemplate()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	records, err := s.svc.CreateFromTemplate(r.Context(), userID, tpl, s.clock.Now())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	writeJSON(w, http.StatusCreated, recordsToResponse(records))
}

// handleListTransactions lists the user's records visible as of the
// asOf query date (today when absent). Scheduled future records stay
// hidden. Optional year/month query parameters narrow the list to one
// calendar month.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	asOf, err := parseAsOf(r, s.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.svc.ListVisible(r.Context(), userID, asOf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if q := r.URL.Query(); q.Get("year") != "" || q.Get("month") != "" {
		year, month := parseYearMonth(r, s.clock.Now())
		filtered := records[:0]
		for _, rec := range records {
			if rec.Date.Year() == year && rec.Date.Month() == month {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	writeJSON(w, http.StatusOK, recordsToResponse(records))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.svc.DeleteRecord(r.Context(), userID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	w.WriteHeader(http.StatusNoContent)
}

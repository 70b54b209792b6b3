package http

import (
	"net/http"
	"strings"
)

// handleGetSeries returns the reconciled view of one series: counts,
// current index, next due date, and any detected drift.
func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	groupID := strings.TrimSpace(r.PathValue("groupId"))
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group id")
		return
	}

	asOf, err := parseAsOf(r, s.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.DescribeSeries(r.Context(), userID, groupID, asOf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesToResponse(view))
}

// handleRegenerateSeries replaces every record of a series with a fresh
// expansion of the edited template and returns the refreshed ledger.
func (s *Server) handleRegenerateSeries(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	groupID := strings.TrimSpace(r.PathValue("groupId"))
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group id")
		return
	}

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

	records, err := s.svc.RegenerateSeries(r.Context(), userID, groupID, tpl, s.clock.Now())
	if err != nil {
		// A partial failure still mutated the ledger; drop the user's
		// cached summaries either way.
		s.invalidateSummaries(userID)
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	writeJSON(w, http.StatusOK, recordsToResponse(records))
}

func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	groupID := strings.TrimSpace(r.PathValue("groupId"))
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "missing group id")
		return
	}

	if err := s.svc.DeleteSeries(r.Context(), userID, groupID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	w.WriteHeader(http.StatusNoContent)
}

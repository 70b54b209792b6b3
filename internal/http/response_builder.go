// This file implements utilities for building HTTP responses: the record
// wire shape, JSON encoding, and mapping domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	applog "poupai/internal/log"

	"poupai/internal/core"
	"poupai/internal/services"
	"poupai/internal/store"
)

// recordResponse is the JSON wire representation of a transaction record.
type recordResponse struct {
	ID           int64  `json:"id"`
	UserID       string `json:"userId"`
	GroupID      string `json:"groupId,omitempty"`
	SeriesIndex  int    `json:"seriesIndex,omitempty"`
	SeriesLength int    `json:"seriesLength,omitempty"`
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	Kind         string `json:"kind"`
	Category     string `json:"category"`
	Recurrence   string `json:"recurrence"`
	Date         string `json:"date"`
	IsScheduled  bool   `json:"isScheduled,omitempty"`
}

func recordToResponse(rec core.TransactionRecord) recordResponse {
	return recordResponse{
		ID:           rec.ID,
		UserID:       rec.UserID,
		GroupID:      rec.GroupID,
		SeriesIndex:  rec.SeriesIndex,
		SeriesLength: rec.SeriesLength,
		Description:  rec.Description,
		Amount:       rec.Amount.String(),
		Kind:         string(rec.Kind),
		Category:     rec.Category,
		Recurrence:   string(rec.Recurrence),
		Date:         rec.Date.Input(),
		IsScheduled:  rec.IsScheduled,
	}
}

func recordsToResponse(recs []core.TransactionRecord) []recordResponse {
	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordToResponse(rec))
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

// partialRegenerationResponse reports how far a regeneration got before
// failing. Clients use the counts to decide how to recover.
type partialRegenerationResponse struct {
	Error   string `json:"error"`
	GroupID string `json:"groupId"`
	Phase   string `json:"phase"`
	Deleted int    `json:"deleted"`
	Created int    `json:"created"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var partial *core.PartialRegenerationError
	switch {
	case errors.As(err, &partial):
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Series regeneration left partial state",
			"group_id", partial.GroupID,
			"phase", string(partial.Phase),
			"deleted", partial.Deleted,
			"created", partial.Created,
			"error", partial.Err,
		)
		writeJSON(w, http.StatusBadGateway, partialRegenerationResponse{
			Error:   "series regeneration incomplete, refresh before retrying",
			GroupID: partial.GroupID,
			Phase:   string(partial.Phase),
			Deleted: partial.Deleted,
			Created: partial.Created,
		})
	case errors.Is(err, core.ErrDuplicateDescription):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrEmptySeries), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrStoreUnavailable):
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Backing store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "backing store unavailable")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Unhandled request error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyDescription,
		core.ErrInvalidAmount,
		core.ErrInvalidKind,
		core.ErrInvalidRecurrence,
		core.ErrMissingStartDate,
		core.ErrEndBeforeStart,
		core.ErrFixedRangeTooLong,
		core.ErrInstallmentCount,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

type seriesResponse struct {
	GroupID      string           `json:"groupId"`
	Length       int              `json:"length"`
	PaidCount    int              `json:"paidCount"`
	PendingCount int              `json:"pendingCount"`
	CurrentIndex int              `json:"currentIndex"`
	NextDueDate  string           `json:"nextDueDate,omitempty"`
	Drift        driftResponse    `json:"drift"`
	Records      []recordResponse `json:"records"`
}

type driftResponse struct {
	Clean            bool     `json:"clean"`
	IndexMismatch    bool     `json:"indexMismatch"`
	MissingPeriods   []string `json:"missingPeriods,omitempty"`
	DuplicatePeriods []string `json:"duplicatePeriods,omitempty"`
}

func seriesToResponse(view services.SeriesView) seriesResponse {
	resp := seriesResponse{
		GroupID:      view.GroupID,
		Length:       view.Length,
		PaidCount:    view.PaidCount,
		PendingCount: view.PendingCount,
		CurrentIndex: view.CurrentIndex,
		Drift: driftResponse{
			Clean:            view.Drift.Clean(),
			IndexMismatch:    view.Drift.IndexMismatch,
			MissingPeriods:   view.Drift.MissingPeriods,
			DuplicatePeriods: view.Drift.DuplicatePeriods,
		},
		Records: recordsToResponse(view.Records),
	}
	if view.NextDueDate != nil {
		resp.NextDueDate = view.NextDueDate.Input()
	}
	return resp
}

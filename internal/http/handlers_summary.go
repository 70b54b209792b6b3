package http

import (
	"fmt"
	"net/http"

	"poupai/internal/services"
)

// monthSummaryResponse is the JSON shape of one month's aggregates.
type monthSummaryResponse struct {
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	Income     string             `json:"income"`
	Expense    string             `json:"expense"`
	Balance    string             `json:"balance"`
	ByCategory map[string]string  `json:"byCategory"`
	ByKind     kindTotalsResponse `json:"byKind"`
}

type kindTotalsResponse struct {
	Single      string `json:"single"`
	Fixed       string `json:"fixed"`
	Installment string `json:"installment"`
}

func summaryToResponse(year, month int, summary services.MonthSummary) monthSummaryResponse {
	byCategory := make(map[string]string, len(summary.ByCategory))
	for category, total := range summary.ByCategory {
		byCategory[category] = total.String()
	}
	return monthSummaryResponse{
		Year:       year,
		Month:      month,
		Income:     summary.Income.String(),
		Expense:    summary.Expense.String(),
		Balance:    summary.Balance.String(),
		ByCategory: byCategory,
		ByKind: kindTotalsResponse{
			Single:      summary.ByKind.Single.String(),
			Fixed:       summary.ByKind.Fixed.String(),
			Installment: summary.ByKind.Installment.String(),
		},
	}
}

func summaryCacheKey(userID string, year, month int) string {
	return fmt.Sprintf("%s:%d-%02d", userID, year, month)
}

// invalidateSummaries drops the user's cached summaries after a ledger
// mutation.
func (s *Server) invalidateSummaries(userID string) {
	s.summaryCache.DeletePrefix(userID + ":")
}

// handleMonthSummary aggregates one month over the user's visible
// records. Results are cached until a mutation or the TTL invalidates
// them.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	asOf, err := parseAsOf(r, s.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, month := parseYearMonth(r, s.clock.Now())

	// asOf only defaults to today; an explicit asOf bypasses the cache
	// rather than keying every possible date.
	cacheable := r.URL.Query().Get("asOf") == ""
	key := summaryCacheKey(userID, year, month)

	if cacheable {
		if cached, ok := s.summaryCache.Get(key); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	summary, err := s.svc.Summarize(r.Context(), userID, year, month, asOf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := summaryToResponse(year, month, summary)
	if cacheable {
		s.summaryCache.Set(key, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: the transaction template payload, the acting user, and the
// year/month and as-of query parameters.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"poupai/internal/core"
	"poupai/internal/store"
)

// requestUserID resolves the acting user from the X-User-ID header.
func requestUserID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return defaultUserID
}

// transactionRequest is the JSON payload for creating or editing a
// transaction template.
type transactionRequest struct {
	Description      string `json:"description"`
	Amount           string `json:"amount"`
	Kind             string `json:"kind"`
	Category         string `json:"category"`
	Recurrence       string `json:"recurrence"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate,omitempty"`
	InstallmentCount int    `json:"installmentCount,omitempty"`
	Scheduled        bool   `json:"scheduled,omitempty"`
}

func decodeTransactionRequest(r *http.Request) (transactionRequest, error) {
	var req transactionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return transactionRequest{}, fmt.Errorf("decode request body: %w", err)
	}
	return req, nil
}

// toTemplate converts the wire payload to a domain template. Validation
// proper happens in the domain; this only parses the typed fields.
func (req transactionRequest) toTemplate() (core.TransactionTemplate, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return core.TransactionTemplate{}, fmt.Errorf("invalid amount %q: %w", req.Amount, err)
	}

	startDate, err := core.ParseLocalDate(req.StartDate)
	if err != nil {
		return core.TransactionTemplate{}, fmt.Errorf("invalid start date: %w", err)
	}

	tpl := core.TransactionTemplate{
		Description:      sanitizeInput(req.Description),
		Amount:           amount,
		Kind:             core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Category:         sanitizeInput(req.Category),
		Recurrence:       core.Recurrence(strings.ToLower(strings.TrimSpace(req.Recurrence))),
		StartDate:        startDate,
		InstallmentCount: req.InstallmentCount,
		Scheduled:        req.Scheduled,
	}
	if req.EndDate != "" {
		endDate, err := core.ParseLocalDate(req.EndDate)
		if err != nil {
			return core.TransactionTemplate{}, fmt.Errorf("invalid end date: %w", err)
		}
		tpl.EndDate = endDate
	}
	return tpl, nil
}

// parseAsOf reads the asOf query parameter, defaulting to the clock's
// today. Visibility of scheduled records hangs off this date.
func parseAsOf(r *http.Request, clock store.Clock) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("asOf"))
	if v == "" {
		return core.DateOf(clock.Now()), nil
	}
	d, err := core.ParseLocalDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid asOf date: %w", err)
	}
	return d, nil
}

// parseYearMonth extracts year and month from query parameters, using the
// clock's current month as default.
func parseYearMonth(r *http.Request, now time.Time) (year, month int) {
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

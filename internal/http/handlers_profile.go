package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"poupai/internal/core"
	"poupai/internal/store"
)

type profileRequest struct {
	MonthlyIncome     string `json:"monthlyIncome"`
	PaymentDay        int    `json:"paymentDay"`
	MonthlyBudgetGoal string `json:"monthlyBudgetGoal,omitempty"`

	// SalaryDeferredUntil opts in to deferring the automatic salary
	// posting until the given date. The deferral is consumed by the
	// salary worker once the date arrives.
	SalaryDeferredUntil string `json:"salaryDeferredUntil,omitempty"`
}

type profileResponse struct {
	UserID            string `json:"userId"`
	MonthlyIncome     string `json:"monthlyIncome"`
	PaymentDay        int    `json:"paymentDay"`
	MonthlyBudgetGoal string `json:"monthlyBudgetGoal"`
}

func profileToResponse(p core.Profile) profileResponse {
	return profileResponse{
		UserID:            p.UserID,
		MonthlyIncome:     p.MonthlyIncome.String(),
		PaymentDay:        p.PaymentDay,
		MonthlyBudgetGoal: p.MonthlyBudgetGoal.String(),
	}
}

func (req profileRequest) toProfile(userID string) (core.Profile, error) {
	income, err := decimal.NewFromString(strings.TrimSpace(req.MonthlyIncome))
	if err != nil {
		return core.Profile{}, fmt.Errorf("invalid monthly income %q: %w", req.MonthlyIncome, err)
	}
	if income.IsNegative() {
		return core.Profile{}, errors.New("monthly income must not be negative")
	}
	if req.PaymentDay < 1 || req.PaymentDay > 31 {
		return core.Profile{}, errors.New("payment day must be between 1 and 31")
	}

	budgetGoal := decimal.Zero
	if strings.TrimSpace(req.MonthlyBudgetGoal) != "" {
		budgetGoal, err = decimal.NewFromString(strings.TrimSpace(req.MonthlyBudgetGoal))
		if err != nil {
			return core.Profile{}, fmt.Errorf("invalid budget goal %q: %w", req.MonthlyBudgetGoal, err)
		}
		if budgetGoal.IsNegative() {
			return core.Profile{}, errors.New("budget goal must not be negative")
		}
	}

	return core.Profile{
		UserID:            userID,
		MonthlyIncome:     income,
		PaymentDay:        req.PaymentDay,
		MonthlyBudgetGoal: budgetGoal,
	}, nil
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	profile, err := s.ledger.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(profile))
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req profileRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request body: %v", err))
		return
	}

	profile, err := req.toProfile(userID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var deferredUntil core.Date
	if strings.TrimSpace(req.SalaryDeferredUntil) != "" {
		deferredUntil, err = core.ParseLocalDate(req.SalaryDeferredUntil)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid salary deferral date: %v", err))
			return
		}
		if !deferredUntil.After(core.DateOf(s.clock.Now())) {
			writeError(w, http.StatusUnprocessableEntity, "salary deferral date must be in the future")
			return
		}
	}

	if err := s.ledger.SaveProfile(r.Context(), profile); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if !deferredUntil.IsZero() {
		deferral := core.SalaryDeferral{
			UserID:        userID,
			ScheduledDate: deferredUntil,
			Amount:        profile.MonthlyIncome,
		}
		if err := s.ledger.SaveSalaryDeferral(r.Context(), deferral); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, profileToResponse(profile))
}

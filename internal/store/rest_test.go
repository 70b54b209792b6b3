package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"poupai/internal/core"
)

func TestRestClientListParsesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions" {
			t.Errorf("path = %s, want /transactions", r.URL.Path)
		}
		if got := r.URL.Query().Get("userId"); got != "u1" {
			t.Errorf("userId = %q, want u1", got)
		}
		json.NewEncoder(w).Encode([]wireRecord{{
			ID: 7, UserID: "u1", Description: "Rent", Category: "Housing",
			Kind: "expense", Recurrence: "fixed", Amount: "-800", Date: "2025-06-01",
		}})
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL, "")
	records, err := c.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("List() returned %d records, want 1", len(records))
	}
	r := records[0]
	if r.ID != 7 || r.Kind != core.Expense || r.Amount.String() != "-800" {
		t.Errorf("List() = %+v, want record 7 expense -800", r)
	}
	if !core.SameDay(r.Date, core.NewDate(2025, 6, 1)) {
		t.Errorf("Date = %s, want 2025-06-01", r.Date.Input())
	}
}

func TestRestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]wireRecord{})
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL, "secret")
	if _, err := c.List(context.Background(), "u1"); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestRestClientUnreachableIsStoreUnavailable(t *testing.T) {
	c := NewRestClient("http://127.0.0.1:1", "")
	_, err := c.List(context.Background(), "u1")
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Errorf("List() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestRestClientDeleteByGroupFallsBack(t *testing.T) {
	// The remote has no bulk group endpoint: the first group delete gets a
	// 404, and the client degrades to listing the group and deleting each
	// record individually - permanently.
	var (
		mu           sync.Mutex
		groupCalls   int
		deletedPaths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/transactions/group/"):
			groupCalls++
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodDelete:
			deletedPaths = append(deletedPaths, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			json.NewEncoder(w).Encode([]wireRecord{
				{ID: 1, UserID: "u1", GroupID: "g1", Description: "Laptop", Kind: "expense", Recurrence: "installment", Amount: "-100", Date: "2025-01-15"},
				{ID: 2, UserID: "u1", GroupID: "g1", Description: "Laptop", Kind: "expense", Recurrence: "installment", Amount: "-100", Date: "2025-02-15"},
				{ID: 3, UserID: "u1", GroupID: "other", Description: "Rent", Kind: "expense", Recurrence: "fixed", Amount: "-800", Date: "2025-01-01"},
			})
		}
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL, "")
	if err := c.DeleteByGroup(context.Background(), "u1", "g1"); err != nil {
		t.Fatalf("DeleteByGroup() error = %v", err)
	}

	mu.Lock()
	if groupCalls != 1 {
		t.Errorf("group endpoint called %d times, want 1", groupCalls)
	}
	want := []string{"/transactions/1", "/transactions/2"}
	if len(deletedPaths) != len(want) {
		mu.Unlock()
		t.Fatalf("deleted %v, want %v", deletedPaths, want)
	}
	for i, p := range deletedPaths {
		if p != want[i] {
			t.Errorf("delete %d hit %s, want %s", i, p, want[i])
		}
	}
	mu.Unlock()

	// The next group delete skips the bulk endpoint entirely.
	if err := c.DeleteByGroup(context.Background(), "u1", "g1"); err != nil {
		t.Fatalf("DeleteByGroup() second call error = %v", err)
	}
	mu.Lock()
	if groupCalls != 1 {
		t.Errorf("group endpoint called %d times after fallback, want still 1", groupCalls)
	}
	mu.Unlock()
}

func TestRestClientDeleteByIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL, "")
	if err := c.DeleteByID(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteByID() error = %v, want ErrNotFound", err)
	}
}

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"poupai/internal/core"
)

// RestClient is a TransactionStore backed by an external REST transaction
// API. It only covers the ledger surface; profiles and deferrals stay in
// the local store.
type RestClient struct {
	baseURL string
	token   string
	http    *http.Client

	// groupDelete is disabled after the remote answers 404/405 for the
	// bulk endpoint; from then on DeleteByGroup degrades to N single
	// deletes, per the store contract.
	groupDelete bool
}

// NewRestClient creates a client for the given API base URL. An empty
// token disables the Authorization header.
func NewRestClient(baseURL, token string) *RestClient {
	return &RestClient{
		baseURL:     baseURL,
		token:       token,
		http:        &http.Client{Timeout: 15 * time.Second},
		groupDelete: true,
	}
}

// wire mirrors the remote API's transaction shape.
type wireRecord struct {
	ID           int64  `json:"id"`
	UserID       string `json:"userId"`
	GroupID      string `json:"groupId,omitempty"`
	SeriesIndex  int    `json:"seriesIndex,omitempty"`
	SeriesLength int    `json:"seriesLength,omitempty"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Kind         string `json:"kind"`
	Recurrence   string `json:"recurrence"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	IsScheduled  bool   `json:"isScheduled"`
}

func toWire(d core.TransactionDraft) wireRecord {
	return wireRecord{
		UserID:       d.UserID,
		GroupID:      d.GroupID,
		SeriesIndex:  d.SeriesIndex,
		SeriesLength: d.SeriesLength,
		Description:  d.Description,
		Category:     d.Category,
		Kind:         string(d.Kind),
		Recurrence:   string(d.Recurrence),
		Amount:       d.Amount.String(),
		Date:         d.Date.Input(),
		IsScheduled:  d.IsScheduled,
	}
}

func fromWire(w wireRecord) (core.TransactionRecord, error) {
	amount, err := decimal.NewFromString(w.Amount)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("parse amount %q: %w", w.Amount, err)
	}
	date, err := core.ParseLocalDate(w.Date)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("parse date: %w", err)
	}
	return core.TransactionRecord{
		ID:           w.ID,
		UserID:       w.UserID,
		GroupID:      w.GroupID,
		SeriesIndex:  w.SeriesIndex,
		SeriesLength: w.SeriesLength,
		Description:  w.Description,
		Category:     w.Category,
		Kind:         core.Kind(w.Kind),
		Recurrence:   core.Recurrence(w.Recurrence),
		Amount:       amount,
		Date:         date,
		IsScheduled:  w.IsScheduled,
	}, nil
}

func (c *RestClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", core.ErrStoreUnavailable, method, path, err)
	}
	return resp, nil
}

func (c *RestClient) List(ctx context.Context, userID string) ([]core.TransactionRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/transactions?userId="+url.QueryEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list returned %d", core.ErrStoreUnavailable, resp.StatusCode)
	}

	var wires []wireRecord
	if err := json.NewDecoder(resp.Body).Decode(&wires); err != nil {
		return nil, fmt.Errorf("decode transaction list: %w", err)
	}
	records := make([]core.TransactionRecord, 0, len(wires))
	for _, w := range wires {
		rec, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", w.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *RestClient) ListGroup(ctx context.Context, userID, groupID string) ([]core.TransactionRecord, error) {
	all, err := c.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []core.TransactionRecord
	for _, r := range all {
		if r.GroupID == groupID && groupID != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *RestClient) Create(ctx context.Context, draft core.TransactionDraft) (core.TransactionRecord, error) {
	resp, err := c.do(ctx, http.MethodPost, "/transactions", toWire(draft))
	if err != nil {
		return core.TransactionRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return core.TransactionRecord{}, fmt.Errorf("%w: create returned %d", core.ErrStoreUnavailable, resp.StatusCode)
	}

	var w wireRecord
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("decode created transaction: %w", err)
	}
	return fromWire(w)
}

func (c *RestClient) DeleteByID(ctx context.Context, id int64) error {
	resp, err := c.do(ctx, http.MethodDelete, "/transactions/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: delete returned %d", core.ErrStoreUnavailable, resp.StatusCode)
	}
}

func (c *RestClient) DeleteByGroup(ctx context.Context, userID, groupID string) error {
	if c.groupDelete {
		resp, err := c.do(ctx, http.MethodDelete, "/transactions/group/"+url.PathEscape(groupID), nil)
		if err != nil {
			return err
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent:
			return nil
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			// Remote has no bulk endpoint; fall through to single deletes.
			c.groupDelete = false
			slog.WarnContext(ctx, "Remote store lacks group delete, falling back to per-record deletes",
				"group_id", groupID, "status", resp.StatusCode)
		default:
			return fmt.Errorf("%w: group delete returned %d", core.ErrStoreUnavailable, resp.StatusCode)
		}
	}

	records, err := c.ListGroup(ctx, userID, groupID)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := c.DeleteByID(ctx, r.ID); err != nil {
			return fmt.Errorf("delete record %d of group %s: %w", r.ID, groupID, err)
		}
	}
	return nil
}

package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/slotwise/booking-api/pkg/circuitbreaker"
)

type BaserowConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// BaserowStore talks to the Baserow REST API. Tables are addressed by
// numeric table id; user_field_names keeps the wire format aligned with the
// Airtable field naming so the domain adapters stay backend-agnostic.
type BaserowStore struct {
	baseURL string
	token   string
	client  *http.Client
	cb      *circuitbreaker.CircuitBreaker
}

func NewBaserowStore(cfg BaserowConfig) *BaserowStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BaserowStore{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "baserow",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

type baserowListResponse struct {
	Count   int                      `json:"count"`
	Next    string                   `json:"next"`
	Results []map[string]interface{} `json:"results"`
}

func (s *BaserowStore) rowsURL(table string) string {
	return fmt.Sprintf("%s/api/database/rows/table/%s/", s.baseURL, url.PathEscape(table))
}

func recordFromRow(row map[string]interface{}) Record {
	fields := make(map[string]interface{}, len(row))
	var id string
	for k, v := range row {
		switch k {
		case "id":
			if n, ok := v.(float64); ok {
				id = strconv.FormatInt(int64(n), 10)
			}
		case "order":
			// row ordering metadata, not a user field
		default:
			fields[k] = v
		}
	}
	return Record{ID: id, Fields: fields}
}

func (s *BaserowStore) ListRecords(ctx context.Context, table string, filter *Filter) ([]Record, error) {
	q := url.Values{}
	q.Set("user_field_names", "true")
	q.Set("size", "200")
	if filter != nil {
		op := "equal"
		if filter.Exclude {
			op = "not_equal"
		}
		q.Set(fmt.Sprintf("filter__%s__%s", filter.Field, op), filter.Value)
	}

	endpoint := s.rowsURL(table) + "?" + q.Encode()

	var records []Record
	for endpoint != "" {
		var page baserowListResponse
		if err := s.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}
		for _, row := range page.Results {
			records = append(records, recordFromRow(row))
		}
		endpoint = page.Next
	}
	return records, nil
}

func (s *BaserowStore) CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (*Record, error) {
	endpoint := s.rowsURL(table) + "?user_field_names=true"

	var row map[string]interface{}
	if err := s.do(ctx, http.MethodPost, endpoint, fields, &row); err != nil {
		return nil, err
	}
	created := recordFromRow(row)
	return &created, nil
}

func (s *BaserowStore) FindByField(ctx context.Context, table, field, value string) ([]Record, error) {
	return s.ListRecords(ctx, table, &Filter{Field: field, Value: value})
}

func (s *BaserowStore) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	return s.cb.Execute(func() error {
		var reqBody io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request: %w", err)
			}
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Token "+s.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
			return fmt.Errorf("%w: baserow status %d: %s", ErrUpstream, res.StatusCode, msg)
		}

		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
		}
		return nil
	})
}

package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/slotwise/booking-api/pkg/circuitbreaker"
)

const airtableAPIBase = "https://api.airtable.com/v0"

type AirtableConfig struct {
	BaseID  string
	APIKey  string
	BaseURL string // overridable for tests
	Timeout time.Duration
}

// AirtableStore talks to the Airtable REST API. All calls run behind a
// circuit breaker and inherit the caller's context deadline.
type AirtableStore struct {
	baseURL string
	baseID  string
	apiKey  string
	client  *http.Client
	cb      *circuitbreaker.CircuitBreaker
}

func NewAirtableStore(cfg AirtableConfig) *AirtableStore {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = airtableAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AirtableStore{
		baseURL: baseURL,
		baseID:  cfg.BaseID,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "airtable",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

type airtableRecord struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

type airtableListResponse struct {
	Records []airtableRecord `json:"records"`
	Offset  string           `json:"offset"`
}

func formulaFor(filter *Filter) string {
	if filter == nil {
		return ""
	}
	if filter.Exclude {
		return fmt.Sprintf(`NOT({%s} = %q)`, filter.Field, filter.Value)
	}
	return fmt.Sprintf(`{%s} = %q`, filter.Field, filter.Value)
}

func (s *AirtableStore) ListRecords(ctx context.Context, table string, filter *Filter) ([]Record, error) {
	var records []Record
	offset := ""

	for {
		q := url.Values{}
		if formula := formulaFor(filter); formula != "" {
			q.Set("filterByFormula", formula)
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		endpoint := fmt.Sprintf("%s/%s/%s", s.baseURL, s.baseID, url.PathEscape(table))
		if len(q) > 0 {
			endpoint += "?" + q.Encode()
		}

		var page airtableListResponse
		if err := s.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, r := range page.Records {
			records = append(records, Record{ID: r.ID, Fields: r.Fields})
		}

		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

func (s *AirtableStore) CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (*Record, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", s.baseURL, s.baseID, url.PathEscape(table))
	body := map[string]interface{}{"fields": fields}

	var created airtableRecord
	if err := s.do(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}
	return &Record{ID: created.ID, Fields: created.Fields}, nil
}

func (s *AirtableStore) FindByField(ctx context.Context, table, field, value string) ([]Record, error) {
	return s.ListRecords(ctx, table, &Filter{Field: field, Value: value})
}

func (s *AirtableStore) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
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
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
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
			return fmt.Errorf("%w: airtable status %d: %s", ErrUpstream, res.StatusCode, msg)
		}

		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
		}
		return nil
	})
}

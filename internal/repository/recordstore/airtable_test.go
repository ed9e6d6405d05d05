package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAirtableTestStore(url string) *AirtableStore {
	return NewAirtableStore(AirtableConfig{
		BaseID:  "appBASE",
		APIKey:  "key-test",
		BaseURL: url,
	})
}

func TestAirtableListRecords(t *testing.T) {
	var gotAuth, gotFormula string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFormula = r.URL.Query().Get("filterByFormula")
		require.Equal(t, "/appBASE/Bookings", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"id": "rec1", "fields": map[string]any{"Name": "Ada", "DurationMin": 20}},
				{"id": "rec2", "fields": map[string]any{"Name": "Bob"}},
			},
		})
	}))
	defer server.Close()

	store := newAirtableTestStore(server.URL)
	records, err := store.ListRecords(context.Background(), "Bookings", &Filter{
		Field: "Status", Value: "cancelled", Exclude: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer key-test", gotAuth)
	assert.Equal(t, `NOT({Status} = "cancelled")`, gotFormula)
	require.Len(t, records, 2)
	assert.Equal(t, "rec1", records[0].ID)
	assert.Equal(t, "Ada", records[0].StringField("Name"))
	assert.Equal(t, float64(20), records[0].NumberField("DurationMin"))
}

func TestAirtableListRecordsFollowsOffset(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("offset") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{{"id": "rec1", "fields": map[string]any{}}},
				"offset":  "page2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{{"id": "rec2", "fields": map[string]any{}}},
		})
	}))
	defer server.Close()

	store := newAirtableTestStore(server.URL)
	records, err := store.ListRecords(context.Background(), "Bookings", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, records, 2)
	assert.Equal(t, "rec2", records[1].ID)
}

func TestAirtableCreateRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Fields map[string]any `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada", body.Fields["Name"])

		json.NewEncoder(w).Encode(map[string]any{"id": "recNEW", "fields": body.Fields})
	}))
	defer server.Close()

	store := newAirtableTestStore(server.URL)
	created, err := store.CreateRecord(context.Background(), "Bookings", map[string]any{"Name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "recNEW", created.ID)
}

func TestAirtableUpstreamErrorIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := newAirtableTestStore(server.URL)
	_, err := store.ListRecords(context.Background(), "Bookings", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

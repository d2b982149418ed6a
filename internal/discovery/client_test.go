package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestFetchCandidates(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("expected path /events, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("series_id") != "btc-updown" {
			t.Errorf("expected series_id btc-updown, got %s", r.URL.Query().Get("series_id"))
		}
		if r.URL.Query().Get("active") != "true" || r.URL.Query().Get("closed") != "false" {
			t.Error("expected active=true&closed=false")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{
				"id": "evt-1",
				"markets": [
					{
						"id": "mkt-1",
						"conditionId": "0xabc",
						"question": "Bitcoin Up or Down - 2:45PM-3:00PM ET",
						"endDate": "2026-07-31T15:00:00Z",
						"outcomes": "[\"Up\", \"Down\"]",
						"clobTokenIds": "[\"tok-up\", \"tok-down\"]"
					},
					{
						"id": "mkt-2",
						"conditionId": "0xdef",
						"question": "Will it rain tomorrow?",
						"endDate": "2026-07-31T15:00:00Z",
						"outcomes": "[\"Yes\", \"No\"]",
						"clobTokenIds": "[\"tok-yes\", \"tok-no\"]"
					}
				]
			}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "btc-updown", logger)
	candidates, err := client.FetchCandidates(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate (non-BTC market filtered out), got %d", len(candidates))
	}
	if candidates[0].ID != "0xabc" {
		t.Errorf("expected candidate id 0xabc, got %s", candidates[0].ID)
	}
}

func TestFetchCandidates_ErrorStatus(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "btc-updown", logger)
	_, err := client.FetchCandidates(context.Background())
	if err == nil {
		t.Error("expected error for 500 status")
	}
}

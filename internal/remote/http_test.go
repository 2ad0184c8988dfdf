package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
)

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(HTTPClientConfig{
		BaseURL:            srv.URL,
		APIToken:           "test-token",
		RequestTimeout:     5 * time.Second,
		MinRequestInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHTTPClient() failed: %v", err)
	}
	return client, srv
}

func TestFetch_DecodesRecords(t *testing.T) {
	var gotPath, gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"acc_1","name":"Acme"},{"id":"acc_2","name":"Globex"}]}`))
	}))

	records, err := client.Fetch(context.Background(), schema.EntityAccounts)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if gotPath != "/v2/accounts/records" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["id"] != "acc_1" || records[1]["name"] != "Globex" {
		t.Errorf("records = %+v", records)
	}
}

func TestFetch_EmptyTable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))

	records, err := client.Fetch(context.Background(), schema.EntityContacts)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %v, want empty non-nil slice", records)
	}
}

func TestFetch_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, KindAuth},
		{"forbidden", http.StatusForbidden, `{}`, KindAuth},
		{"rate limited", http.StatusTooManyRequests, `{}`, KindRateLimited},
		{"server error", http.StatusInternalServerError, `{}`, KindNetwork},
		{"malformed body", http.StatusOK, `{"data": [{`, KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := client.Fetch(context.Background(), schema.EntityContacts)
			if err == nil {
				t.Fatal("Fetch() succeeded, want error")
			}
			re, ok := AsError(err)
			if !ok {
				t.Fatalf("error %v is not a *remote.Error", err)
			}
			if re.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", re.Kind, tt.wantKind)
			}
			if re.EntityType != schema.EntityContacts {
				t.Errorf("EntityType = %q, want contacts", re.EntityType)
			}
		})
	}
}

func TestFetch_RetryableClassification(t *testing.T) {
	retryable := &Error{Kind: KindRateLimited, EntityType: schema.EntityAccounts, Err: errors.New("HTTP 429")}
	if !retryable.Retryable() {
		t.Error("rate_limited should be retryable")
	}
	fatal := &Error{Kind: KindAuth, EntityType: schema.EntityAccounts, Err: errors.New("HTTP 401")}
	if fatal.Retryable() {
		t.Error("auth failures should not be retryable")
	}
}

func TestFetch_MissingToken(t *testing.T) {
	client, err := NewHTTPClient(HTTPClientConfig{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("NewHTTPClient() failed: %v", err)
	}
	_, err = client.Fetch(context.Background(), schema.EntityAccounts)
	re, ok := AsError(err)
	if !ok || re.Kind != KindAuth {
		t.Errorf("missing token error = %v, want auth kind", err)
	}
}

func TestFetch_ThrottleSpacing(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":[]}`))
	}))
	client.minInterval = 30 * time.Millisecond

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), schema.EntityAccounts); err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("three throttled fetches took %v, want >= 60ms", elapsed)
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d calls, want 3", calls.Load())
	}
}

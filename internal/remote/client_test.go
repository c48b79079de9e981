package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/teamvault/budgetvault/internal/dedup"
	"github.com/teamvault/budgetvault/internal/types"
)

func testKey() dedup.ContentKey {
	return dedup.ContentKey{
		OwnerID:      "u1",
		Kind:         types.KindExpense,
		Amount:       "50.00",
		OccurredDate: "01/01/2025",
		Category:     "Food",
	}
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(DocumentList{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	if _, err := c.QueryCreatedAfter(context.Background(), "u1", types.KindExpense, 0); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	// Given: a server that fails twice before answering
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(DocumentList{Documents: []Document{{ID: "d1"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	docs, err := c.QueryCreatedAfter(context.Background(), "u1", types.KindExpense, 0)
	if err != nil {
		t.Fatalf("expected the retried call to succeed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestClient_AuthFailureIsUnavailableNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.FindByContentKey(context.Background(), testKey())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("auth failures must not be retried, got %d attempts", got)
	}
}

func TestClient_NetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "k")
	_, err := c.QueryCreatedAfter(context.Background(), "u1", types.KindExpense, 0)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_ClientErrorIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.Append(context.Background(), Document{OwnerID: "u1", Kind: types.KindExpense})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("a validation rejection is not a connectivity problem")
	}
}

func TestClient_AppendNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	if _, err := c.Append(context.Background(), Document{OwnerID: "u1", Kind: types.KindExpense}); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("appends must be attempted exactly once, got %d", got)
	}
}

func TestClient_LookupWireDistinguishesDescriptionPresence(t *testing.T) {
	var bodies []map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		json.NewEncoder(w).Encode(DocumentList{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")

	withoutDescription := testKey()
	if _, err := c.FindByContentKey(context.Background(), withoutDescription); err != nil {
		t.Fatal(err)
	}

	withEmpty := testKey()
	withEmpty.HasDescription = true
	withEmpty.Description = ""
	if _, err := c.FindByContentKey(context.Background(), withEmpty); err != nil {
		t.Fatal(err)
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 lookup requests, got %d", len(bodies))
	}
	if string(bodies[0]["description"]) != "null" {
		t.Errorf("absent description must serialize as null, got %s", bodies[0]["description"])
	}
	if string(bodies[1]["description"]) != `""` {
		t.Errorf("empty description must serialize as \"\", got %s", bodies[1]["description"])
	}
}

func TestClient_QueryPathAndParameters(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("created_after")
		json.NewEncoder(w).Encode(DocumentList{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	if _, err := c.QueryCreatedAfter(context.Background(), "u1", types.KindIncome, 1736000000000); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/v1/users/u1/records/income" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotQuery != "1736000000000" {
		t.Errorf("unexpected created_after %q", gotQuery)
	}
}

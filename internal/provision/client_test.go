package provision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

func newClientTest(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.ProvisionConfig{
		BaseURL:   server.URL,
		APIKey:    "key",
		Locations: []string{"Netherlands", "Germany"},
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return client
}

func TestIssueCredential(t *testing.T) {
	userID := uuid.New()
	blob := []byte("[Interface]\nPrivateKey=...\n")

	client := newClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/credentials" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "key" {
			t.Fatalf("unexpected api key %q", r.Header.Get("X-Api-Key"))
		}
		var req issueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.UserID != userID.String() || req.ServerLocation != "Germany" {
			t.Fatalf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"credential":"` + base64.StdEncoding.EncodeToString(blob) + `"}`))
	})

	credential, err := client.Issue(context.Background(), userID, "Germany")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(credential) != string(blob) {
		t.Fatalf("unexpected credential %q", credential)
	}
}

func TestIssueServerError(t *testing.T) {
	client := newClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Issue(context.Background(), uuid.New(), "Germany")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestPickLocationStaysInList(t *testing.T) {
	client := &Client{locations: []string{"Netherlands", "Germany", "Japan"}}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[client.PickLocation()] = true
	}
	for location := range seen {
		if location != "Netherlands" && location != "Germany" && location != "Japan" {
			t.Fatalf("unexpected location %q", location)
		}
	}
}

func TestPickLocationEmptyListFallsBack(t *testing.T) {
	client := &Client{}
	if client.PickLocation() != "Netherlands" {
		t.Fatal("expected fallback location")
	}
}

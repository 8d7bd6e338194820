package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

func newYooMoneyTest(t *testing.T, handler http.HandlerFunc) (*YooMoney, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gateway, err := NewYooMoney(config.YooMoneyConfig{Token: "token", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return gateway, server
}

func TestYooMoneyCreateSuccess(t *testing.T) {
	gateway, _ := newYooMoneyTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/request-payment" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("amount"); got != "799.00" {
			t.Fatalf("expected ruble amount 799.00, got %q", got)
		}
		if got := r.PostForm.Get("label"); got != "order-1" {
			t.Fatalf("expected order id label, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","request_id":"req-42"}`))
	})

	result, err := gateway.Create(context.Background(), CreateParams{
		AmountKopecks: 79900,
		OrderID:       "order-1",
		Description:   "VPN subscription 3 months",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExternalID != "req-42" {
		t.Fatalf("unexpected external id %s", result.ExternalID)
	}
	if result.PayURL != yoomoneyCheckoutURL+"?request_id=req-42" {
		t.Fatalf("unexpected pay url %s", result.PayURL)
	}
}

func TestYooMoneyCreateRejected(t *testing.T) {
	gateway, _ := newYooMoneyTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"refused","error":"limit_exceeded"}`))
	})

	_, err := gateway.Create(context.Background(), CreateParams{AmountKopecks: 100, OrderID: "o"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeProviderRejected) {
		t.Fatalf("expected provider rejection, got %v", err)
	}
}

func TestYooMoneyCreateUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	gateway, err := NewYooMoney(config.YooMoneyConfig{Token: "token", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = gateway.Create(context.Background(), CreateParams{AmountKopecks: 100, OrderID: "o"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
}

func TestYooMoneyCheckStatusMapping(t *testing.T) {
	cases := []struct {
		raw  string
		want enums.CanonicalStatus
	}{
		{"success", enums.CanonicalStatusCompleted},
		{"refused", enums.CanonicalStatusFailed},
		{"failed", enums.CanonicalStatusFailed},
		{"in_progress", enums.CanonicalStatusPending},
		{"hold", enums.CanonicalStatusPending},
		{"something_new", enums.CanonicalStatusUnknown},
		{"", enums.CanonicalStatusUnknown},
	}

	for _, tc := range cases {
		raw := tc.raw
		gateway, _ := newYooMoneyTest(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/operation-details" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"status":"` + raw + `"}`))
		})

		status, err := gateway.Check(context.Background(), "req-42")
		if err != nil {
			t.Fatalf("status %q: unexpected error: %v", tc.raw, err)
		}
		if status != tc.want {
			t.Fatalf("status %q: expected %s, got %s", tc.raw, tc.want, status)
		}
	}
}

func TestYooMoneyCheckMalformedResponse(t *testing.T) {
	gateway, _ := newYooMoneyTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway error</html>`))
	})

	status, err := gateway.Check(context.Background(), "req-42")
	if !pkgerrors.IsCode(err, pkgerrors.CodeProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
	if status != enums.CanonicalStatusUnknown {
		t.Fatalf("malformed responses must map to unknown, got %s", status)
	}
}

func TestYooMoneyRequiresToken(t *testing.T) {
	if _, err := NewYooMoney(config.YooMoneyConfig{}); err == nil {
		t.Fatal("expected error without token")
	}
}

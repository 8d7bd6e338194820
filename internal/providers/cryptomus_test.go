package providers

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

func newCryptomusTest(t *testing.T, handler http.HandlerFunc) *Cryptomus {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gateway, err := NewCryptomus(config.CryptomusConfig{
		APIKey:     "secret-key",
		MerchantID: "merchant-1",
		BaseURL:    server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return gateway
}

func TestCryptomusSignatureReproducible(t *testing.T) {
	gateway := &Cryptomus{apiKey: "secret-key"}

	first, err := canonicalBody(map[string]any{"b": 2, "a": "one", "c": true})
	if err != nil {
		t.Fatalf("canonical body: %v", err)
	}
	second, err := canonicalBody(map[string]any{"c": true, "a": "one", "b": 2})
	if err != nil {
		t.Fatalf("canonical body: %v", err)
	}

	if string(first) != string(second) {
		t.Fatalf("canonical bodies differ: %s vs %s", first, second)
	}
	if gateway.sign(first) != gateway.sign(second) {
		t.Fatal("signatures differ for equal logical input")
	}
}

func TestCryptomusCreateSignsBody(t *testing.T) {
	gateway := newCryptomusTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("merchant") != "merchant-1" {
			t.Fatalf("unexpected merchant header %q", r.Header.Get("merchant"))
		}

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		mac := hmac.New(md5.New, []byte("secret-key"))
		mac.Write(raw)
		if got := r.Header.Get("sign"); got != hex.EncodeToString(mac.Sum(nil)) {
			t.Fatalf("signature does not match body: %s", got)
		}

		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["amount"] != "2699.00" || body["currency"] != "RUB" {
			t.Fatalf("unexpected amount fields: %v %v", body["amount"], body["currency"])
		}
		if body["order_id"] != "order-12" {
			t.Fatalf("unexpected order id %v", body["order_id"])
		}

		_, _ = w.Write([]byte(`{"state":0,"result":{"uuid":"inv-12","url":"https://pay.cryptomus.com/pay/inv-12"}}`))
	})

	result, err := gateway.Create(context.Background(), CreateParams{
		AmountKopecks: 269900,
		OrderID:       "order-12",
		Description:   "VPN subscription 12 months",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExternalID != "inv-12" {
		t.Fatalf("unexpected external id %s", result.ExternalID)
	}
	if result.PayURL != "https://pay.cryptomus.com/pay/inv-12" {
		t.Fatalf("unexpected pay url %s", result.PayURL)
	}
}

func TestCryptomusCreateRejected(t *testing.T) {
	gateway := newCryptomusTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":1,"message":"amount too small"}`))
	})

	_, err := gateway.Create(context.Background(), CreateParams{AmountKopecks: 1, OrderID: "o"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeProviderRejected) {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestCryptomusCheckStatusMapping(t *testing.T) {
	cases := []struct {
		raw  string
		want enums.CanonicalStatus
	}{
		{"paid", enums.CanonicalStatusCompleted},
		{"paid_over", enums.CanonicalStatusCompleted},
		{"fail", enums.CanonicalStatusFailed},
		{"cancel", enums.CanonicalStatusFailed},
		{"wrong_amount", enums.CanonicalStatusFailed},
		{"check", enums.CanonicalStatusPending},
		{"process", enums.CanonicalStatusPending},
		{"something_new", enums.CanonicalStatusUnknown},
	}

	for _, tc := range cases {
		raw := tc.raw
		gateway := newCryptomusTest(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payment/info" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"state":0,"result":{"uuid":"inv-12","url":"u","payment_status":"` + raw + `"}}`))
		})

		status, err := gateway.Check(context.Background(), "inv-12")
		if err != nil {
			t.Fatalf("status %q: unexpected error: %v", tc.raw, err)
		}
		if status != tc.want {
			t.Fatalf("status %q: expected %s, got %s", tc.raw, tc.want, status)
		}
	}
}

func TestCryptomusConstructorValidation(t *testing.T) {
	if _, err := NewCryptomus(config.CryptomusConfig{MerchantID: "m"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewCryptomus(config.CryptomusConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing merchant id")
	}
}

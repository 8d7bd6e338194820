package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
)

var (
	errCryptomusKeyRequired      = errors.New("cryptomus api key is required")
	errCryptomusMerchantRequired = errors.New("cryptomus merchant id is required")
)

// Cryptomus talks to the Cryptomus crypto payment API. Requests carry an
// HMAC-MD5 signature over the exact body bytes; the body is serialized
// canonically (lexicographic key order, no inserted whitespace) so the
// signature is byte-reproducible for the same logical input.
type Cryptomus struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	merchantID  string
	callbackURL string
	returnURL   string
}

// CryptomusOption configures optional client behavior.
type CryptomusOption func(*Cryptomus)

// WithCryptomusHTTPClient overrides the default HTTP client.
func WithCryptomusHTTPClient(client *http.Client) CryptomusOption {
	return func(g *Cryptomus) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewCryptomus builds the Cryptomus gateway from config.
func NewCryptomus(cfg config.CryptomusConfig, opts ...CryptomusOption) (*Cryptomus, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errCryptomusKeyRequired
	}
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errCryptomusMerchantRequired
	}

	gateway := &Cryptomus{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      apiKey,
		merchantID:  merchantID,
		callbackURL: cfg.CallbackURL,
		returnURL:   cfg.ReturnURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gateway)
		}
	}
	return gateway, nil
}

// Name implements Gateway.
func (g *Cryptomus) Name() enums.Provider {
	return enums.ProviderCryptomus
}

type cryptomusEnvelope struct {
	State   int             `json:"state"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type cryptomusPayment struct {
	UUID          string `json:"uuid"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
}

// Create opens a crypto invoice priced in rubles, settled in USDT.
func (g *Cryptomus) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	body := map[string]any{
		"amount":              rubles(params.AmountKopecks),
		"currency":            "RUB",
		"order_id":            params.OrderID,
		"merchant":            g.merchantID,
		"url_callback":        g.callbackURL,
		"url_return":          g.returnURL,
		"url_success":         g.returnURL,
		"is_payment_multiple": false,
		"lifetime":            int(invoiceTTL.Seconds()),
		"to_currency":         "USDT",
	}

	var payment cryptomusPayment
	if err := g.post(ctx, "/payment", body, &payment); err != nil {
		return nil, err
	}
	if payment.UUID == "" || payment.URL == "" {
		return nil, protocolError(g.Name(), nil, "missing uuid or url in response")
	}

	return &CreateResult{
		ExternalID: payment.UUID,
		PayURL:     payment.URL,
		ExpiresAt:  time.Now().UTC().Add(invoiceTTL),
	}, nil
}

// Check maps the payment status onto the canonical vocabulary.
func (g *Cryptomus) Check(ctx context.Context, externalID string) (enums.CanonicalStatus, error) {
	body := map[string]any{
		"merchant": g.merchantID,
		"uuid":     externalID,
	}

	var payment cryptomusPayment
	if err := g.post(ctx, "/payment/info", body, &payment); err != nil {
		return enums.CanonicalStatusUnknown, err
	}

	switch payment.PaymentStatus {
	case "paid", "paid_over":
		return enums.CanonicalStatusCompleted, nil
	case "fail", "cancel", "system_fail", "wrong_amount":
		return enums.CanonicalStatusFailed, nil
	case "check", "process", "confirm_check":
		return enums.CanonicalStatusPending, nil
	default:
		return enums.CanonicalStatusUnknown, nil
	}
}

// sign computes the HMAC-MD5 hex digest over the serialized body.
func (g *Cryptomus) sign(body []byte) string {
	mac := hmac.New(md5.New, []byte(g.apiKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalBody serializes the request deterministically. encoding/json
// writes map keys in lexicographic order with fixed separators, so equal
// logical input always yields equal bytes; the provider verifies the
// signature against these exact bytes.
func canonicalBody(body map[string]any) ([]byte, error) {
	return json.Marshal(body)
}

func (g *Cryptomus) post(ctx context.Context, path string, body map[string]any, out any) error {
	encoded, err := canonicalBody(body)
	if err != nil {
		return protocolError(g.Name(), err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return protocolError(g.Name(), err, "building request")
	}
	req.Header.Set("merchant", g.merchantID)
	req.Header.Set("sign", g.sign(encoded))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return transportError(g.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(g.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return protocolError(g.Name(), nil, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var envelope cryptomusEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return protocolError(g.Name(), err, "decoding response")
	}
	if envelope.State != 0 {
		return rejectionError(g.Name(), envelope.Message)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return protocolError(g.Name(), err, "decoding result")
	}
	return nil
}

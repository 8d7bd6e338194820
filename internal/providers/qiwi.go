package providers

import (
	"bytes"
	"context"
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

var errQiwiTokenRequired = errors.New("qiwi token is required")

// Qiwi talks to the QIWI partner billing API.
type Qiwi struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// QiwiOption configures optional client behavior.
type QiwiOption func(*Qiwi)

// WithQiwiHTTPClient overrides the default HTTP client.
func WithQiwiHTTPClient(client *http.Client) QiwiOption {
	return func(g *Qiwi) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewQiwi builds the QIWI gateway from config.
func NewQiwi(cfg config.QiwiConfig, opts ...QiwiOption) (*Qiwi, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errQiwiTokenRequired
	}

	gateway := &Qiwi{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      token,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gateway)
		}
	}
	return gateway, nil
}

// Name implements Gateway.
func (g *Qiwi) Name() enums.Provider {
	return enums.ProviderQiwi
}

type qiwiAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type qiwiCreateRequest struct {
	Amount             qiwiAmount        `json:"amount"`
	Comment            string            `json:"comment"`
	ExpirationDateTime string            `json:"expirationDateTime"`
	Customer           map[string]string `json:"customer"`
	CustomFields       map[string]string `json:"customFields"`
}

type qiwiBillResponse struct {
	BillID string `json:"billId"`
	PayURL string `json:"payUrl"`
	Status struct {
		Value string `json:"value"`
	} `json:"status"`
}

// Create issues a bill keyed by the order id. QIWI treats the PUT as
// idempotent per bill id.
func (g *Qiwi) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	expiresAt := time.Now().UTC().Add(invoiceTTL)
	payload := qiwiCreateRequest{
		Amount: qiwiAmount{
			Currency: "RUB",
			Value:    rubles(params.AmountKopecks),
		},
		Comment:            params.Description,
		ExpirationDateTime: expiresAt.Format(time.RFC3339),
		Customer:           map[string]string{},
		CustomFields:       map[string]string{},
	}

	var bill qiwiBillResponse
	if err := g.do(ctx, http.MethodPut, "/partner/bill/v1/bills/"+params.OrderID, payload, &bill); err != nil {
		return nil, err
	}
	if bill.BillID == "" || bill.PayURL == "" {
		return nil, protocolError(g.Name(), nil, "missing billId or payUrl in response")
	}

	return &CreateResult{
		ExternalID: bill.BillID,
		PayURL:     bill.PayURL,
		ExpiresAt:  expiresAt,
	}, nil
}

// Check maps the bill status onto the canonical vocabulary.
func (g *Qiwi) Check(ctx context.Context, externalID string) (enums.CanonicalStatus, error) {
	var bill qiwiBillResponse
	if err := g.do(ctx, http.MethodGet, "/partner/bill/v1/bills/"+externalID, nil, &bill); err != nil {
		return enums.CanonicalStatusUnknown, err
	}

	switch bill.Status.Value {
	case "PAID":
		return enums.CanonicalStatusCompleted, nil
	case "REJECTED", "EXPIRED":
		return enums.CanonicalStatusFailed, nil
	case "WAITING":
		return enums.CanonicalStatusPending, nil
	default:
		return enums.CanonicalStatusUnknown, nil
	}
}

func (g *Qiwi) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return protocolError(g.Name(), err, "encoding request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return protocolError(g.Name(), err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

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
	if err := json.Unmarshal(raw, out); err != nil {
		return protocolError(g.Name(), err, "decoding response")
	}
	return nil
}

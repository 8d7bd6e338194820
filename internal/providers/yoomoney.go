package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
)

const yoomoneyCheckoutURL = "https://yoomoney.ru/checkout/payments/v2/contract"

var errYooMoneyTokenRequired = errors.New("yoomoney token is required")

// YooMoney talks to the YooMoney peer-to-peer payment API.
type YooMoney struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// YooMoneyOption configures optional client behavior.
type YooMoneyOption func(*YooMoney)

// WithYooMoneyHTTPClient overrides the default HTTP client.
func WithYooMoneyHTTPClient(client *http.Client) YooMoneyOption {
	return func(g *YooMoney) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewYooMoney builds the YooMoney gateway from config.
func NewYooMoney(cfg config.YooMoneyConfig, opts ...YooMoneyOption) (*YooMoney, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errYooMoneyTokenRequired
	}

	gateway := &YooMoney{
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
func (g *YooMoney) Name() enums.Provider {
	return enums.ProviderYooMoney
}

type yoomoneyCreateResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// Create opens a p2p transfer request and returns the hosted checkout URL.
func (g *YooMoney) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	form := url.Values{}
	form.Set("pattern_id", "p2p")
	form.Set("to", g.token)
	form.Set("amount", rubles(params.AmountKopecks))
	form.Set("comment", params.Description)
	form.Set("message", params.Description)
	form.Set("label", params.OrderID)

	var payload yoomoneyCreateResponse
	if err := g.postForm(ctx, "/request-payment", form, &payload); err != nil {
		return nil, err
	}

	if payload.Status != "success" {
		return nil, rejectionError(g.Name(), payload.Error)
	}
	if payload.RequestID == "" {
		return nil, protocolError(g.Name(), nil, "missing request_id in response")
	}

	return &CreateResult{
		ExternalID: payload.RequestID,
		PayURL:     yoomoneyCheckoutURL + "?request_id=" + url.QueryEscape(payload.RequestID),
		ExpiresAt:  time.Now().UTC().Add(invoiceTTL),
	}, nil
}

type yoomoneyCheckResponse struct {
	Status string `json:"status"`
}

// Check maps the operation status onto the canonical vocabulary.
func (g *YooMoney) Check(ctx context.Context, externalID string) (enums.CanonicalStatus, error) {
	form := url.Values{}
	form.Set("operation_id", externalID)

	var payload yoomoneyCheckResponse
	if err := g.postForm(ctx, "/operation-details", form, &payload); err != nil {
		return enums.CanonicalStatusUnknown, err
	}

	switch payload.Status {
	case "success":
		return enums.CanonicalStatusCompleted, nil
	case "refused", "failed":
		return enums.CanonicalStatusFailed, nil
	case "in_progress", "hold":
		return enums.CanonicalStatusPending, nil
	default:
		return enums.CanonicalStatusUnknown, nil
	}
}

func (g *YooMoney) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return protocolError(g.Name(), err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return transportError(g.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(g.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return protocolError(g.Name(), nil, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return protocolError(g.Name(), err, "decoding response")
	}
	return nil
}

package provision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

var (
	errBaseURLRequired = errors.New("provision base url is required")
	errAPIKeyRequired  = errors.New("provision api key is required")
)

// Issuer hands out VPN credentials for activated subscriptions.
type Issuer interface {
	Issue(ctx context.Context, userID uuid.UUID, serverLocation string) ([]byte, error)
}

// Client talks to the VPN provisioning API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	locations  []string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the provisioning client from config.
func NewClient(cfg config.ProvisionConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		locations:  cfg.Locations,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// PickLocation chooses a server location at random. Random assignment spreads
// users across the fleet.
func (c *Client) PickLocation() string {
	if len(c.locations) == 0 {
		return "Netherlands"
	}
	return c.locations[rand.Intn(len(c.locations))]
}

type issueRequest struct {
	UserID         string `json:"user_id"`
	ServerLocation string `json:"server_location"`
}

type issueResponse struct {
	Credential string `json:"credential"`
}

// Issue requests an opaque credential blob for the user on the given server.
func (c *Client) Issue(ctx context.Context, userID uuid.UUID, serverLocation string) ([]byte, error) {
	payload := issueRequest{
		UserID:         userID.String(),
		ServerLocation: serverLocation,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/credentials", bytes.NewReader(encoded))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling provisioner")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading provisioner response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("provisioner returned status %d", resp.StatusCode))
	}

	var parsed issueResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding provisioner response")
	}
	credential, err := base64.StdEncoding.DecodeString(parsed.Credential)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding credential")
	}
	if len(credential) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provisioner returned an empty credential")
	}
	return credential, nil
}

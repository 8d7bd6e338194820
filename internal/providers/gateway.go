package providers

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

// invoiceTTL is how long providers keep a created invoice payable.
const invoiceTTL = 15 * time.Minute

// CreateParams describes the payment to open with a provider. Amount is in
// kopecks; each gateway converts to its native unit at the wire boundary.
type CreateParams struct {
	AmountKopecks int64
	OrderID       string
	Description   string
}

// CreateResult carries the provider-assigned identifiers for a new invoice.
type CreateResult struct {
	ExternalID string
	PayURL     string
	ExpiresAt  time.Time
}

// Gateway is the uniform capability each payment provider variant
// implements: open an invoice and report its canonical status.
type Gateway interface {
	Name() enums.Provider
	Create(ctx context.Context, params CreateParams) (*CreateResult, error)
	Check(ctx context.Context, externalID string) (enums.CanonicalStatus, error)
}

// rubles renders a kopeck amount as a fixed two-decimal ruble string.
func rubles(kopecks int64) string {
	return decimal.NewFromInt(kopecks).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// transportError wraps network and timeout failures talking to a provider.
func transportError(provider enums.Provider, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, string(provider)+" unreachable")
	}
	return pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, string(provider)+" request failed")
}

// protocolError wraps malformed or unexpected provider responses.
func protocolError(provider enums.Provider, err error, detail string) error {
	return pkgerrors.Wrap(pkgerrors.CodeProtocol, err, string(provider)+": "+detail)
}

// rejectionError wraps a definitive provider-side business failure.
func rejectionError(provider enums.Provider, detail string) error {
	return pkgerrors.New(pkgerrors.CodeProviderRejected, string(provider)+": "+detail)
}

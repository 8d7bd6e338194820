package providers

import (
	"context"
	"testing"

	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

type fakeGateway struct {
	name   enums.Provider
	result *CreateResult
	status enums.CanonicalStatus
	err    error
}

func (f *fakeGateway) Name() enums.Provider { return f.name }

func (f *fakeGateway) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeGateway) Check(ctx context.Context, externalID string) (enums.CanonicalStatus, error) {
	if f.err != nil {
		return enums.CanonicalStatusUnknown, f.err
	}
	return f.status, nil
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistryFromGateways(
		&fakeGateway{name: enums.ProviderQiwi},
		&fakeGateway{name: enums.ProviderYooMoney},
	)

	gateway, err := registry.Get(enums.ProviderQiwi)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gateway.Name() != enums.ProviderQiwi {
		t.Fatalf("unexpected gateway %s", gateway.Name())
	}

	_, err = registry.Get(enums.ProviderCryptomus)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unregistered provider, got %v", err)
	}
}

func TestRegistryAvailableOrder(t *testing.T) {
	registry := NewRegistryFromGateways(
		&fakeGateway{name: enums.ProviderCryptomus},
		&fakeGateway{name: enums.ProviderYooMoney},
	)

	available := registry.Available()
	if len(available) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(available))
	}
	if available[0] != enums.ProviderYooMoney || available[1] != enums.ProviderCryptomus {
		t.Fatalf("unexpected order %v", available)
	}
}

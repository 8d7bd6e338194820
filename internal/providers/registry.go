package providers

import (
	"context"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

// Registry resolves provider ids to gateways. It is built once at startup;
// only providers with credentials configured are registered.
type Registry struct {
	gateways map[enums.Provider]Gateway
}

// NewRegistry constructs gateways for every configured provider.
func NewRegistry(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Registry, error) {
	registry := &Registry{gateways: make(map[enums.Provider]Gateway)}

	if cfg.YooMoney.Token != "" {
		gateway, err := NewYooMoney(cfg.YooMoney)
		if err != nil {
			return nil, err
		}
		registry.register(gateway)
	}
	if cfg.Qiwi.Token != "" {
		gateway, err := NewQiwi(cfg.Qiwi)
		if err != nil {
			return nil, err
		}
		registry.register(gateway)
	}
	if cfg.Cryptomus.APIKey != "" {
		gateway, err := NewCryptomus(cfg.Cryptomus)
		if err != nil {
			return nil, err
		}
		registry.register(gateway)
	}

	if logg != nil {
		names := make([]string, 0, len(registry.gateways))
		for _, provider := range registry.Available() {
			names = append(names, string(provider))
		}
		logg.Info(logg.WithField(ctx, "providers", names), "payment provider registry initialized")
	}
	return registry, nil
}

// NewRegistryFromGateways builds a registry from explicit gateways, used by
// tests and wiring code with fakes.
func NewRegistryFromGateways(gateways ...Gateway) *Registry {
	registry := &Registry{gateways: make(map[enums.Provider]Gateway, len(gateways))}
	for _, gateway := range gateways {
		registry.register(gateway)
	}
	return registry
}

func (r *Registry) register(gateway Gateway) {
	if gateway == nil {
		return
	}
	r.gateways[gateway.Name()] = gateway
}

// Get resolves a gateway or fails validation for unknown/unconfigured
// providers.
func (r *Registry) Get(provider enums.Provider) (Gateway, error) {
	gateway, ok := r.gateways[provider]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment provider not available").
			WithDetails(map[string]string{"provider": string(provider)})
	}
	return gateway, nil
}

// Available lists registered providers in stable enum order.
func (r *Registry) Available() []enums.Provider {
	ordered := []enums.Provider{enums.ProviderYooMoney, enums.ProviderQiwi, enums.ProviderCryptomus}
	out := make([]enums.Provider, 0, len(r.gateways))
	for _, provider := range ordered {
		if _, ok := r.gateways[provider]; ok {
			out = append(out, provider)
		}
	}
	return out
}

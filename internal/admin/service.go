package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	dErrors "vaultgate/pkg/domain-errors"
	"vaultgate/pkg/requestcontext"
)

// Service applies owner-initiated settings updates. Ownership is enforced by
// the admin middleware before a request reaches this layer.
type Service struct {
	store  SettingsStore
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store SettingsStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("settings store is required")
	}

	svc := &Service{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Settings returns the current oracle settings.
func (s *Service) Settings(ctx context.Context) (OracleSettings, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return OracleSettings{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read oracle settings")
	}
	return settings, nil
}

// UpdateScript replaces the verification script source.
func (s *Service) UpdateScript(ctx context.Context, source string) error {
	if source == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "script source is required")
	}
	return s.update(ctx, "script", func(settings *OracleSettings) {
		settings.Script = source
	})
}

// UpdateSecrets replaces the encrypted credentials payload.
func (s *Service) UpdateSecrets(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "secrets payload is required")
	}
	return s.update(ctx, "secrets", func(settings *OracleSettings) {
		settings.Secrets = append([]byte(nil), payload...)
	})
}

// UpdateSubscriptionID replaces the billing subscription identifier.
func (s *Service) UpdateSubscriptionID(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subscription id is required")
	}
	return s.update(ctx, "subscription_id", func(settings *OracleSettings) {
		settings.SubscriptionID = subscriptionID
	})
}

// UpdateEndpoint replaces the oracle endpoint URL.
func (s *Service) UpdateEndpoint(ctx context.Context, endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "endpoint must be an absolute http(s) URL")
	}
	return s.update(ctx, "endpoint", func(settings *OracleSettings) {
		settings.Endpoint = endpoint
	})
}

// UpdateGasLimit replaces the dispatch gas budget.
func (s *Service) UpdateGasLimit(ctx context.Context, gasLimit uint64) error {
	if gasLimit == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "gas limit must be positive")
	}
	return s.update(ctx, "gas_limit", func(settings *OracleSettings) {
		settings.GasLimit = gasLimit
	})
}

func (s *Service) update(ctx context.Context, field string, apply func(*OracleSettings)) error {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read oracle settings")
	}

	apply(&settings)
	settings.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Save(ctx, settings); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save oracle settings")
	}

	s.logger.InfoContext(ctx, "oracle settings updated",
		"field", field,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

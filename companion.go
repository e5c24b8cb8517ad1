// Package companion wires the extension subsystems together: the
// durable auth store, the runtime message bus, the background arbiter,
// and the per-page relay, presenter, and initiator surfaces.
package companion

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/tripthread/companion/arbiter"
	"github.com/tripthread/companion/initiator"
	"github.com/tripthread/companion/messaging"
	"github.com/tripthread/companion/presenter"
	"github.com/tripthread/companion/protocol"
	"github.com/tripthread/companion/relay"
	"github.com/tripthread/companion/store"
	sqlstore "github.com/tripthread/companion/store/sql"
)

type Service struct {
	config         Config
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
	errorMapper    ErrorMapper
	store          store.Store
	verifier       arbiter.Verifier
	bus            *messaging.Bus
	arbiter        *arbiter.Arbiter
	presenter      *presenter.Presenter
}

// New resolves configuration through the defaults/config/runtime layer
// stack, then builds the full background context: store, verifier,
// bus, arbiter with its handlers registered, and presenter.
func New(ctx context.Context, runtime Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(runtime)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	loggerProvider, logger := glog.Resolve("companion", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)

	defaults := DefaultConfig()
	configProvider := builder.configProvider
	if configProvider == nil {
		configProvider = NewCfgxConfigProvider(nil)
	}
	loaded, err := configProvider.Load(ctx, defaults)
	if err != nil {
		return nil, fmt.Errorf("companion: config load failed: %w", err)
	}
	resolver := builder.optionsResolver
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	resolved, err := resolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, fmt.Errorf("companion: config resolution failed: %w", err)
	}

	mapper := builder.errorMapper
	if mapper == nil {
		mapper = companionErrorMapper
	}

	authStore, err := resolveStore(builder, resolved)
	if err != nil {
		return nil, err
	}

	verifier := builder.verifier
	if verifier == nil {
		verifier, err = arbiter.NewHTTPVerifier(arbiter.HTTPVerifierConfig{
			ServerOrigin: resolved.ServerOrigin,
			HTTPClient:   builder.httpClient,
		})
		if err != nil {
			return nil, err
		}
	}

	bus := messaging.NewBus(messaging.BusConfig{Logger: logger})

	arb, err := arbiter.New(arbiter.Config{
		ServerOrigin:       resolved.ServerOrigin,
		TokenPrefix:        resolved.TokenPrefix,
		RevalidateInterval: resolved.RevalidateInterval(),
		Store:              authStore,
		Verifier:           verifier,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}
	if err := arb.RegisterHandlers(bus); err != nil {
		return nil, err
	}

	pres, err := presenter.New(presenter.Config{
		Store:               authStore,
		DefaultServerOrigin: resolved.ServerOrigin,
		Logger:              logger,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		config:         resolved,
		logger:         logger,
		loggerProvider: loggerProvider,
		errorMapper:    mapper,
		store:          authStore,
		verifier:       verifier,
		bus:            bus,
		arbiter:        arb,
		presenter:      pres,
	}, nil
}

func resolveStore(builder serviceBuilder, cfg Config) (store.Store, error) {
	if builder.store != nil {
		return builder.store, nil
	}
	if builder.persistenceClient != nil {
		durable, err := sqlstore.New(builder.persistenceClient)
		if err != nil {
			return nil, err
		}
		return durable, nil
	}
	if cfg.StorePath != "" {
		return store.NewFileStore(cfg.StorePath)
	}
	return store.NewMemoryStore(), nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() glog.Logger {
	if s == nil {
		return glog.Nop()
	}
	return s.logger
}

func (s *Service) LoggerProvider() glog.LoggerProvider {
	if s == nil {
		return nil
	}
	return s.loggerProvider
}

func (s *Service) Store() store.Store {
	if s == nil {
		return nil
	}
	return s.store
}

func (s *Service) Bus() *messaging.Bus {
	if s == nil {
		return nil
	}
	return s.bus
}

func (s *Service) Arbiter() *arbiter.Arbiter {
	if s == nil {
		return nil
	}
	return s.arbiter
}

// Run drives the arbiter's periodic revalidation until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("companion: service is nil")
	}
	return s.arbiter.Run(ctx)
}

func (s *Service) ReceiveCredential(ctx context.Context, candidate string) arbiter.ReceiveResult {
	if s == nil {
		return arbiter.ReceiveResult{Success: false, Error: arbiter.MessageVerificationFailed}
	}
	return s.arbiter.ReceiveCredential(ctx, candidate)
}

func (s *Service) Disconnect(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("companion: service is nil")
	}
	if err := s.arbiter.Disconnect(ctx); err != nil {
		return s.errorMapper(err)
	}
	return nil
}

func (s *Service) Revalidate(ctx context.Context) {
	if s == nil {
		return
	}
	s.arbiter.Revalidate(ctx)
}

func (s *Service) QueryAuthState(ctx context.Context) arbiter.Snapshot {
	if s == nil {
		return arbiter.Snapshot{State: store.AuthStateUnauthorized}
	}
	return s.arbiter.QueryAuthState(ctx)
}

// PageStateFor computes the indicator a page should carry without
// touching a document. Read failures degrade to not-authorized.
func (s *Service) PageStateFor(ctx context.Context, page presenter.PageContext) presenter.PageState {
	if s == nil {
		return presenter.PageStateNotAuthorized
	}
	record, err := store.LoadRecord(ctx, s.store)
	if err != nil {
		s.logger.Warn("page state read failed, reporting not-authorized", "error", err)
		return presenter.PageStateNotAuthorized
	}
	origin, originErr := protocol.NormalizeOrigin(s.config.ServerOrigin)
	if originErr != nil {
		origin = s.config.ServerOrigin
	}
	return presenter.Compute(record, page, origin)
}

// RefreshPage recomputes and applies the indicator for one navigation.
func (s *Service) RefreshPage(ctx context.Context, doc presenter.Document, page presenter.PageContext) presenter.PageState {
	if s == nil {
		return presenter.PageStateNotAuthorized
	}
	return s.presenter.Refresh(ctx, doc, page)
}

// NewRelay builds the content-script relay for one authorization page.
// The service bus is the relay's runtime channel.
func (s *Service) NewRelay(pageOrigin string, sender relay.AckSender) (*relay.Relay, error) {
	if s == nil {
		return nil, fmt.Errorf("companion: service is nil")
	}
	return relay.New(relay.Config{
		PageOrigin: pageOrigin,
		Runtime:    s.bus,
		Sender:     sender,
		Logger:     s.logger,
	})
}

// NewInitiator builds the page-side submit state machine with the
// configured handshake timeout.
func (s *Service) NewInitiator(pageOrigin string, credential string, poster initiator.MessagePoster) (*initiator.Initiator, error) {
	if s == nil {
		return nil, fmt.Errorf("companion: service is nil")
	}
	return initiator.New(initiator.Config{
		PageOrigin: pageOrigin,
		Credential: credential,
		AckTimeout: s.config.HandshakeTimeout(),
		Poster:     poster,
		Logger:     s.logger,
	})
}

// Package arbiter implements the background worker that owns the
// extension's auth record. It is the single writer of the store and the
// single authority on credential validation; content scripts only ever
// reach it over the runtime channel and only ever get structured
// results back, even when something inside it fails.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/tripthread/companion/messaging"
	"github.com/tripthread/companion/protocol"
	"github.com/tripthread/companion/store"
)

const defaultRevalidateInterval = 30 * time.Minute

type Config struct {
	ServerOrigin       string
	TokenPrefix        string
	RevalidateInterval time.Duration
	Store              store.Store
	Verifier           Verifier
	Logger             glog.Logger
}

type Arbiter struct {
	config   Config
	store    store.Store
	verifier Verifier
	logger   glog.Logger
}

func New(cfg Config) (*Arbiter, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("arbiter: store is required")
	}
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("arbiter: verifier is required")
	}
	origin, err := protocol.NormalizeOrigin(cfg.ServerOrigin)
	if err != nil {
		return nil, fmt.Errorf("arbiter: server origin: %w", err)
	}
	prefix := strings.TrimSpace(cfg.TokenPrefix)
	if prefix == "" {
		prefix = protocol.DefaultCredentialPrefix
	}
	interval := cfg.RevalidateInterval
	if interval <= 0 {
		interval = defaultRevalidateInterval
	}
	_, logger := glog.Resolve("arbiter", nil, cfg.Logger)

	return &Arbiter{
		config: Config{
			ServerOrigin:       origin,
			TokenPrefix:        prefix,
			RevalidateInterval: interval,
		},
		store:    cfg.Store,
		verifier: cfg.Verifier,
		logger:   glog.Ensure(logger),
	}, nil
}

// ReceiveResult is the structured outcome of one credential delivery.
// There is no error return: the relay is waiting on a page timer, so
// every internal failure folds into Success=false with a short
// caller-facing message.
type ReceiveResult struct {
	Success bool
	Error   string
}

// ReceiveCredential validates a delivered credential and, on success,
// atomically replaces the stored record with the authorized one. Shape
// validation short-circuits before the verifier call: it is cheap and a
// malformed token must never cost a network round-trip.
func (a *Arbiter) ReceiveCredential(ctx context.Context, candidate string) ReceiveResult {
	if a == nil {
		return ReceiveResult{Success: false, Error: MessageVerificationFailed}
	}
	if err := protocol.ValidateCredential(candidate, a.config.TokenPrefix); err != nil {
		a.logger.Debug("credential shape rejected", "error", err)
		return ReceiveResult{Success: false, Error: MessageInvalidTokenFormat}
	}
	candidate = strings.TrimSpace(candidate)

	identity, err := a.verifier.Verify(ctx, candidate)
	if err != nil {
		a.logger.Warn("credential verification failed", "error", err)
		return ReceiveResult{Success: false, Error: MessageVerificationFailed}
	}

	record := store.AuthRecord{
		State:        store.AuthStateAuthorized,
		Credential:   candidate,
		AccountID:    identity.AccountID,
		ServerOrigin: a.config.ServerOrigin,
	}
	if err := store.SaveRecord(ctx, a.store, record); err != nil {
		a.logger.Error("auth record write failed", "error", err)
		return ReceiveResult{Success: false, Error: MessageAuthorizationNotSaved}
	}

	a.logger.Info("extension authorized", "account_id", identity.AccountID, "server_origin", a.config.ServerOrigin)
	return ReceiveResult{Success: true}
}

// Snapshot is a read-only copy of the auth record.
type Snapshot struct {
	State        store.AuthState
	Credential   string
	AccountID    string
	ServerOrigin string
}

// QueryAuthState returns the current record. A storage read failure
// degrades to an unauthorized snapshot; callers asked for state, not
// for an error to handle.
func (a *Arbiter) QueryAuthState(ctx context.Context) Snapshot {
	if a == nil {
		return Snapshot{State: store.AuthStateUnauthorized}
	}
	record, err := store.LoadRecord(ctx, a.store)
	if err != nil {
		a.logger.Warn("auth record read failed, reporting unauthorized", "error", err)
		return Snapshot{State: store.AuthStateUnauthorized, ServerOrigin: a.config.ServerOrigin}
	}
	return Snapshot{
		State:        record.State,
		Credential:   record.Credential,
		AccountID:    record.AccountID,
		ServerOrigin: record.ServerOrigin,
	}
}

// Disconnect resets the record to unauthorized. Safe to call when
// already disconnected; the stored server origin survives so the
// presenter can still detect server mismatches.
func (a *Arbiter) Disconnect(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("arbiter: arbiter is nil")
	}
	record, err := store.LoadRecord(ctx, a.store)
	serverOrigin := a.config.ServerOrigin
	if err == nil && strings.TrimSpace(record.ServerOrigin) != "" {
		serverOrigin = record.ServerOrigin
	}
	reset := store.EmptyRecord()
	reset.ServerOrigin = serverOrigin
	if err := store.SaveRecord(ctx, a.store, reset); err != nil {
		a.logger.Error("disconnect write failed", "error", err)
		return fmt.Errorf("%w: disconnect", ErrStoreFailure)
	}
	a.logger.Info("extension disconnected")
	return nil
}

// RegisterHandlers binds the arbiter's operations to the runtime
// channel. Every registered handler returns a structured result; the
// relay on the far side is always owed exactly one.
func (a *Arbiter) RegisterHandlers(bus *messaging.Bus) error {
	if a == nil {
		return fmt.Errorf("arbiter: arbiter is nil")
	}
	if bus == nil {
		return fmt.Errorf("arbiter: bus is required")
	}
	if err := bus.Register(protocol.TypeTokenReceived, a.handleTokenReceived); err != nil {
		return err
	}
	if err := bus.Register(protocol.TypeDisconnect, a.handleDisconnect); err != nil {
		return err
	}
	return bus.Register(protocol.TypeQueryState, a.handleQueryState)
}

func (a *Arbiter) handleTokenReceived(ctx context.Context, msg protocol.RuntimeMessage) protocol.Result {
	received, ok := msg.(protocol.TokenReceived)
	if !ok {
		return protocol.Failure(MessageInvalidTokenFormat)
	}
	result := a.ReceiveCredential(ctx, received.Token)
	if !result.Success {
		return protocol.Failure(result.Error)
	}
	return protocol.Succeeded()
}

func (a *Arbiter) handleDisconnect(ctx context.Context, _ protocol.RuntimeMessage) protocol.Result {
	if err := a.Disconnect(ctx); err != nil {
		return protocol.Failure("Unable to disconnect")
	}
	return protocol.Succeeded()
}

func (a *Arbiter) handleQueryState(ctx context.Context, _ protocol.RuntimeMessage) protocol.Result {
	snapshot := a.QueryAuthState(ctx)
	return protocol.Result{
		Success: true,
		Data: &protocol.ResultData{
			AuthState:    string(snapshot.State),
			AccountID:    snapshot.AccountID,
			ServerOrigin: snapshot.ServerOrigin,
		},
	}
}

// Run revalidates the stored credential on a fixed interval until the
// context is canceled. An explicit server rejection clears the record;
// a transport failure keeps it, since a network flap must not log the
// user out.
func (a *Arbiter) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("arbiter: arbiter is nil")
	}
	ticker := time.NewTicker(a.config.RevalidateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Revalidate(ctx)
		}
	}
}

// Revalidate re-checks the stored credential once.
func (a *Arbiter) Revalidate(ctx context.Context) {
	if a == nil {
		return
	}
	record, err := store.LoadRecord(ctx, a.store)
	if err != nil {
		a.logger.Warn("revalidation skipped, store unreadable", "error", err)
		return
	}
	if record.State != store.AuthStateAuthorized {
		return
	}
	_, err = a.verifier.Verify(ctx, record.Credential)
	if err == nil {
		a.logger.Debug("stored credential still valid")
		return
	}
	if errors.Is(err, ErrVerificationRejected) {
		a.logger.Info("stored credential revoked, clearing record", "error", err)
		if disconnectErr := a.Disconnect(ctx); disconnectErr != nil {
			a.logger.Error("revoked credential could not be cleared", "error", disconnectErr)
		}
		return
	}
	a.logger.Warn("revalidation inconclusive, keeping record", "error", err)
}

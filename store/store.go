// Package store holds the extension's durable key/value state and the
// auth record persisted into it. The record has exactly one writer, the
// background arbiter; every other context reads a snapshot and
// tolerates transient staleness.
package store

import (
	"context"
	"fmt"
	"strings"
)

type AuthState string

const (
	AuthStateUnauthorized AuthState = "unauthorized"
	AuthStateAuthorized   AuthState = "authorized"
)

// Persisted keys. There is no schema version key; a credential-format
// change would need an explicit migration step in the arbiter's startup
// path before one can be introduced.
const (
	KeyServerOrigin = "server_origin"
	KeyAuthState    = "auth_state"
	KeyCredential   = "credential"
	KeyAccountID    = "account_id"
)

// Store is asynchronous key/value storage private to the extension.
// Every operation may fail; readers treat a failed read as
// unauthorized, never as a crash.
type Store interface {
	Get(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Clear(ctx context.Context) error
}

// AuthRecord is the canonical persisted authorization state.
type AuthRecord struct {
	State        AuthState
	Credential   string
	AccountID    string
	ServerOrigin string
}

// EmptyRecord is the unauthorized reset state.
func EmptyRecord() AuthRecord {
	return AuthRecord{State: AuthStateUnauthorized}
}

// Validate enforces the record invariant: authorized implies a
// non-empty credential.
func (r AuthRecord) Validate() error {
	switch r.State {
	case AuthStateAuthorized:
		if strings.TrimSpace(r.Credential) == "" {
			return fmt.Errorf("store: authorized record requires a credential")
		}
	case AuthStateUnauthorized, "":
	default:
		return fmt.Errorf("store: unknown auth state %q", r.State)
	}
	return nil
}

func recordKeys() []string {
	return []string{KeyServerOrigin, KeyAuthState, KeyCredential, KeyAccountID}
}

// LoadRecord reads the full auth record. Absent keys decode to zero
// values; an unknown stored state decodes as unauthorized rather than
// failing, since a half-written legacy value must not brick the
// extension.
func LoadRecord(ctx context.Context, s Store) (AuthRecord, error) {
	if s == nil {
		return AuthRecord{}, fmt.Errorf("store: store is required")
	}
	values, err := s.Get(ctx, recordKeys())
	if err != nil {
		return AuthRecord{}, fmt.Errorf("store: load auth record: %w", err)
	}
	record := AuthRecord{
		Credential:   values[KeyCredential],
		AccountID:    values[KeyAccountID],
		ServerOrigin: values[KeyServerOrigin],
	}
	if values[KeyAuthState] == string(AuthStateAuthorized) {
		record.State = AuthStateAuthorized
	} else {
		record.State = AuthStateUnauthorized
	}
	return record, nil
}

// SaveRecord persists the record as a whole-record replacement so
// concurrent readers observe either the old or the new record, never a
// torn one.
func SaveRecord(ctx context.Context, s Store, record AuthRecord) error {
	if s == nil {
		return fmt.Errorf("store: store is required")
	}
	if record.State == "" {
		record.State = AuthStateUnauthorized
	}
	if err := record.Validate(); err != nil {
		return err
	}
	values := map[string]string{
		KeyServerOrigin: record.ServerOrigin,
		KeyAuthState:    string(record.State),
		KeyCredential:   record.Credential,
		KeyAccountID:    record.AccountID,
	}
	if err := s.Set(ctx, values); err != nil {
		return fmt.Errorf("store: save auth record: %w", err)
	}
	return nil
}

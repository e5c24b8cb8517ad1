// Package sqlstore persists the extension auth record in sqlite
// through bun. A single row backs the whole record; saves replace it
// in place so readers see either the old record or the new one.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/tripthread/companion/store"
	"github.com/uptrace/bun"
)

const (
	keyServerOrigin = store.KeyServerOrigin
	keyAuthState    = store.KeyAuthState
	keyCredential   = store.KeyCredential
	keyAccountID    = store.KeyAccountID
)

// AuthStateStore is the durable store.Store implementation.
type AuthStateStore struct {
	db   *bun.DB
	repo repository.Repository[*authStateRecord]
}

func New(persistenceClient any) (*AuthStateStore, error) {
	db, err := resolveBunDB(persistenceClient)
	if err != nil {
		return nil, err
	}
	return &AuthStateStore{
		db:   db,
		repo: repository.NewRepository[*authStateRecord](db, authStateHandlers()),
	}, nil
}

func NewFromPersistence(client *persistence.Client) (*AuthStateStore, error) {
	return New(client)
}

func NewFromDB(db *bun.DB) (*AuthStateStore, error) {
	return New(db)
}

func (s *AuthStateStore) Get(ctx context.Context, keys []string) (map[string]string, error) {
	if s == nil {
		return nil, fmt.Errorf("sqlstore: store not configured")
	}
	record, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(keys))
	if record == nil {
		return values, nil
	}
	for _, key := range keys {
		value, ok := record.valueFor(key)
		if !ok || value == "" {
			continue
		}
		values[key] = value
	}
	return values, nil
}

func (s *AuthStateStore) Set(ctx context.Context, values map[string]string) error {
	if s == nil {
		return fmt.Errorf("sqlstore: store not configured")
	}
	if len(values) == 0 {
		return nil
	}
	record, err := s.current(ctx)
	if err != nil {
		return err
	}

	creating := record == nil
	if creating {
		record = &authStateRecord{
			ID:        uuid.New().String(),
			AuthState: string(store.AuthStateUnauthorized),
		}
	}
	for key, value := range values {
		if !record.setValue(key, value) {
			return fmt.Errorf("sqlstore: unknown key %q", key)
		}
	}
	record.UpdatedAt = time.Now()

	if creating {
		if _, err := s.repo.Create(ctx, record); err != nil {
			return fmt.Errorf("sqlstore: create auth record: %w", err)
		}
		return nil
	}
	if _, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID)); err != nil {
		return fmt.Errorf("sqlstore: update auth record: %w", err)
	}
	return nil
}

func (s *AuthStateStore) Clear(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("sqlstore: store not configured")
	}
	if _, err := s.db.NewDelete().
		Model((*authStateRecord)(nil)).
		Where("1 = 1").
		Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: clear auth record: %w", err)
	}
	return nil
}

func (s *AuthStateStore) current(ctx context.Context) (*authStateRecord, error) {
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at ASC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load auth record: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

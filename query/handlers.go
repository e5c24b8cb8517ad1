// Package query exposes read-only views of the auth record as
// go-command queriers.
package query

import (
	"context"

	"github.com/tripthread/companion/arbiter"
	"github.com/tripthread/companion/presenter"
)

type AuthStateReader interface {
	QueryAuthState(ctx context.Context) arbiter.Snapshot
}

type PageStateReader interface {
	PageStateFor(ctx context.Context, page presenter.PageContext) presenter.PageState
}

type AuthStateQuery struct {
	reader AuthStateReader
}

func NewAuthStateQuery(reader AuthStateReader) *AuthStateQuery {
	return &AuthStateQuery{reader: reader}
}

func (q *AuthStateQuery) Query(ctx context.Context, _ AuthStateMessage) (arbiter.Snapshot, error) {
	if q == nil || q.reader == nil {
		return arbiter.Snapshot{}, queryDependencyError("query: auth state reader is required")
	}
	return q.reader.QueryAuthState(ctx), nil
}

type PageStateQuery struct {
	reader PageStateReader
}

func NewPageStateQuery(reader PageStateReader) *PageStateQuery {
	return &PageStateQuery{reader: reader}
}

func (q *PageStateQuery) Query(ctx context.Context, msg PageStateMessage) (presenter.PageState, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: page state reader is required")
	}
	return q.reader.PageStateFor(ctx, presenter.PageContext{
		Origin:            msg.Origin,
		DeclaredAccountID: msg.DeclaredAccountID,
	}), nil
}

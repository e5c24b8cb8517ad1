// Package presenter computes what a page should show about the
// extension without a network call. On every navigation it derives one
// presentation state from the stored record and the page's own context,
// then stamps exactly one marker on the document root for page CSS to
// key off. An unmarked root is the implicit "not installed" state.
package presenter

import (
	"context"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/tripthread/companion/protocol"
	"github.com/tripthread/companion/store"
)

// PageState is the derived, per-navigation presentation state. The
// string values are the document markers and are part of the page
// contract.
type PageState string

const (
	PageStateNotAuthorized   PageState = "tt-ext-not-authorized"
	PageStateAuthorized      PageState = "tt-ext-authorized"
	PageStateServerMismatch  PageState = "tt-ext-server-mismatch"
	PageStateAccountMismatch PageState = "tt-ext-account-mismatch"
)

// AllPageStates lists every marker the presenter manages. Clearing all
// of them before applying one is what keeps the markers mutually
// exclusive on a representation that would happily hold several.
func AllPageStates() []PageState {
	return []PageState{
		PageStateNotAuthorized,
		PageStateAuthorized,
		PageStateServerMismatch,
		PageStateAccountMismatch,
	}
}

// PageContext is what the page itself contributes: its origin and the
// account identifier the server embedded for authenticated views. An
// empty account id means an anonymous or public page.
type PageContext struct {
	Origin            string
	DeclaredAccountID string
}

// Document is the mutable marker surface on the page's root element.
type Document interface {
	AddMarker(marker string)
	RemoveMarker(marker string)
}

// Compute derives the presentation state. It is a pure function of the
// record and the page context; the check order is fixed: server
// mismatch wins over auth state, auth state over account identity, and
// an anonymous page never counts as an account mismatch.
func Compute(record store.AuthRecord, page PageContext, defaultServerOrigin string) PageState {
	serverOrigin := strings.TrimSpace(record.ServerOrigin)
	if serverOrigin == "" {
		serverOrigin = defaultServerOrigin
	}
	if !protocol.SameOrigin(serverOrigin, page.Origin) {
		return PageStateServerMismatch
	}
	if record.State != store.AuthStateAuthorized {
		return PageStateNotAuthorized
	}
	declared := strings.TrimSpace(page.DeclaredAccountID)
	if declared != "" && declared != strings.TrimSpace(record.AccountID) {
		return PageStateAccountMismatch
	}
	return PageStateAuthorized
}

type Config struct {
	Store               store.Store
	DefaultServerOrigin string
	Logger              glog.Logger
}

type Presenter struct {
	store               store.Store
	defaultServerOrigin string
	logger              glog.Logger
}

func New(cfg Config) (*Presenter, error) {
	if cfg.Store == nil {
		return nil, errStoreRequired
	}
	origin, err := protocol.NormalizeOrigin(cfg.DefaultServerOrigin)
	if err != nil {
		return nil, err
	}
	_, logger := glog.Resolve("presenter", nil, cfg.Logger)
	return &Presenter{
		store:               cfg.Store,
		defaultServerOrigin: origin,
		logger:              glog.Ensure(logger),
	}, nil
}

// Refresh recomputes the state for one navigation and applies it to the
// document. Nothing is cached between navigations. A storage read
// failure presents as not-authorized, never as a crash or a blank
// document.
func (p *Presenter) Refresh(ctx context.Context, doc Document, page PageContext) PageState {
	if p == nil || doc == nil {
		return PageStateNotAuthorized
	}
	record, err := store.LoadRecord(ctx, p.store)
	var state PageState
	if err != nil {
		p.logger.Warn("state read failed, presenting not-authorized", "error", err)
		state = PageStateNotAuthorized
	} else {
		state = Compute(record, page, p.defaultServerOrigin)
	}
	apply(doc, state)
	p.logger.Debug("page state applied", "state", string(state), "origin", page.Origin)
	return state
}

func apply(doc Document, state PageState) {
	for _, marker := range AllPageStates() {
		if marker != state {
			doc.RemoveMarker(string(marker))
		}
	}
	doc.AddMarker(string(state))
}

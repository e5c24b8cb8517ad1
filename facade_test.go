package companion_test

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	companion "github.com/tripthread/companion"
	"github.com/tripthread/companion/arbiter"
	"github.com/tripthread/companion/command"
	"github.com/tripthread/companion/presenter"
	"github.com/tripthread/companion/query"
	"github.com/tripthread/companion/store"
)

func TestNewFacade_RequiresService(t *testing.T) {
	if _, err := companion.NewFacade(nil); err == nil {
		t.Fatalf("expected service requirement")
	}
}

func TestFacade_CommandsAndQueriesShareTheService(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{identity: arbiter.VerifiedIdentity{AccountID: "acct_42"}}
	svc := newTestService(t, verifier)

	facade, err := companion.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[arbiter.ReceiveResult]()
	cmdCtx := gocmd.ContextWithResult(ctx, collector)
	if err := facade.Commands().ReceiveCredential.Execute(cmdCtx, command.ReceiveCredentialMessage{
		RawCredential: "tt_abc123_secret",
	}); err != nil {
		t.Fatalf("execute receive credential: %v", err)
	}
	result, ok := collector.Load()
	if !ok || !result.Success {
		t.Fatalf("expected successful receive result, got %#v", result)
	}

	snapshot, err := facade.Queries().AuthState.Query(ctx, query.AuthStateMessage{})
	if err != nil {
		t.Fatalf("query auth state: %v", err)
	}
	if snapshot.State != store.AuthStateAuthorized || snapshot.AccountID != "acct_42" {
		t.Fatalf("unexpected snapshot %#v", snapshot)
	}

	state, err := facade.Queries().PageState.Query(ctx, query.PageStateMessage{
		Origin:            "https://app.tripthread.com",
		DeclaredAccountID: "acct_9",
	})
	if err != nil {
		t.Fatalf("query page state: %v", err)
	}
	if state != presenter.PageStateAccountMismatch {
		t.Fatalf("expected account mismatch, got %q", state)
	}

	if err := facade.Commands().Disconnect.Execute(ctx, command.DisconnectMessage{}); err != nil {
		t.Fatalf("execute disconnect: %v", err)
	}
	snapshot, err = facade.Queries().AuthState.Query(ctx, query.AuthStateMessage{})
	if err != nil {
		t.Fatalf("query auth state after disconnect: %v", err)
	}
	if snapshot.State != store.AuthStateUnauthorized {
		t.Fatalf("expected unauthorized after disconnect, got %q", snapshot.State)
	}
}

package presenter

import (
	"context"
	"fmt"
	"testing"

	"github.com/tripthread/companion/store"
)

func authorizedRecord() store.AuthRecord {
	return store.AuthRecord{
		State:        store.AuthStateAuthorized,
		Credential:   "tt_4f2a_secret",
		AccountID:    "u1",
		ServerOrigin: "https://trips.example",
	}
}

func TestCompute_UnauthorizedAtMatchingOrigin(t *testing.T) {
	record := store.AuthRecord{
		State:        store.AuthStateUnauthorized,
		ServerOrigin: "https://trips.example",
	}
	state := Compute(record, PageContext{Origin: "https://trips.example"}, "https://trips.example")
	if state != PageStateNotAuthorized {
		t.Fatalf("expected not-authorized, got %q", state)
	}
}

func TestCompute_AccountMismatch(t *testing.T) {
	page := PageContext{Origin: "https://trips.example", DeclaredAccountID: "u2"}
	state := Compute(authorizedRecord(), page, "https://trips.example")
	if state != PageStateAccountMismatch {
		t.Fatalf("expected account mismatch, got %q", state)
	}
}

func TestCompute_ServerMismatchWinsOverAuthState(t *testing.T) {
	record := authorizedRecord()
	record.ServerOrigin = "https://a.example"
	state := Compute(record, PageContext{Origin: "https://b.example"}, "https://a.example")
	if state != PageStateServerMismatch {
		t.Fatalf("expected server mismatch, got %q", state)
	}

	record.State = store.AuthStateUnauthorized
	record.Credential = ""
	state = Compute(record, PageContext{Origin: "https://b.example"}, "https://a.example")
	if state != PageStateServerMismatch {
		t.Fatalf("expected server mismatch regardless of auth state, got %q", state)
	}
}

func TestCompute_AnonymousPageIsNotAMismatch(t *testing.T) {
	page := PageContext{Origin: "https://trips.example"}
	state := Compute(authorizedRecord(), page, "https://trips.example")
	if state != PageStateAuthorized {
		t.Fatalf("expected authorized on anonymous page, got %q", state)
	}
}

func TestCompute_UnsetStoredOriginFallsBackToDefault(t *testing.T) {
	record := authorizedRecord()
	record.ServerOrigin = ""
	state := Compute(record, PageContext{Origin: "https://trips.example"}, "https://trips.example")
	if state != PageStateAuthorized {
		t.Fatalf("expected compiled-in default origin to apply, got %q", state)
	}
}

func TestCompute_OriginComparisonNormalizes(t *testing.T) {
	record := authorizedRecord()
	record.ServerOrigin = "https://trips.example/"
	page := PageContext{Origin: "HTTPS://TRIPS.EXAMPLE/journal/42"}
	state := Compute(record, page, "https://trips.example")
	if state != PageStateAuthorized {
		t.Fatalf("expected normalized origins to match, got %q", state)
	}
}

func newTestPresenter(t *testing.T, s store.Store) *Presenter {
	t.Helper()
	p, err := New(Config{Store: s, DefaultServerOrigin: "https://trips.example"})
	if err != nil {
		t.Fatalf("new presenter: %v", err)
	}
	return p
}

func TestRefresh_ExactlyOneMarkerAfterEveryRun(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newTestPresenter(t, s)
	doc := NewMarkerList()

	// Pre-pollute the document the way drifting flags would.
	doc.AddMarker(string(PageStateAuthorized))
	doc.AddMarker(string(PageStateServerMismatch))

	page := PageContext{Origin: "https://trips.example"}
	state := p.Refresh(ctx, doc, page)
	if state != PageStateNotAuthorized {
		t.Fatalf("expected not-authorized for empty store, got %q", state)
	}
	active := doc.Active()
	if len(active) != 1 || active[0] != string(PageStateNotAuthorized) {
		t.Fatalf("expected exactly one marker, got %v", active)
	}

	if err := store.SaveRecord(ctx, s, authorizedRecord()); err != nil {
		t.Fatalf("save record: %v", err)
	}
	state = p.Refresh(ctx, doc, page)
	if state != PageStateAuthorized {
		t.Fatalf("expected authorized after save, got %q", state)
	}
	active = doc.Active()
	if len(active) != 1 || active[0] != string(PageStateAuthorized) {
		t.Fatalf("expected marker to be replaced exclusively, got %v", active)
	}
}

func TestRefresh_ReadFailurePresentsNotAuthorized(t *testing.T) {
	p := newTestPresenter(t, failingStore{})
	doc := NewMarkerList()
	state := p.Refresh(context.Background(), doc, PageContext{Origin: "https://trips.example"})
	if state != PageStateNotAuthorized {
		t.Fatalf("expected not-authorized on read failure, got %q", state)
	}
	active := doc.Active()
	if len(active) != 1 || active[0] != string(PageStateNotAuthorized) {
		t.Fatalf("expected exactly one marker, got %v", active)
	}
}

func TestRefresh_NoCachingAcrossNavigations(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newTestPresenter(t, s)
	doc := NewMarkerList()
	page := PageContext{Origin: "https://trips.example"}

	if state := p.Refresh(ctx, doc, page); state != PageStateNotAuthorized {
		t.Fatalf("expected not-authorized first, got %q", state)
	}
	if err := store.SaveRecord(ctx, s, authorizedRecord()); err != nil {
		t.Fatalf("save record: %v", err)
	}
	if state := p.Refresh(ctx, doc, page); state != PageStateAuthorized {
		t.Fatalf("expected fresh read on next navigation, got %q", state)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, []string) (map[string]string, error) {
	return nil, fmt.Errorf("storage unavailable")
}

func (failingStore) Set(context.Context, map[string]string) error {
	return fmt.Errorf("storage unavailable")
}

func (failingStore) Clear(context.Context) error {
	return fmt.Errorf("storage unavailable")
}

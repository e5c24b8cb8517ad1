package query

import (
	"fmt"
	"strings"
)

const (
	TypeAuthState = "companion.query.auth_state.load"
	TypePageState = "companion.query.page_state.load"
)

type AuthStateMessage struct{}

func (AuthStateMessage) Type() string { return TypeAuthState }

func (AuthStateMessage) Validate() error { return nil }

// PageStateMessage asks which marker a page at the given origin should
// carry. DeclaredAccountID is optional; anonymous pages leave it empty.
type PageStateMessage struct {
	Origin            string
	DeclaredAccountID string
}

func (PageStateMessage) Type() string { return TypePageState }

func (m PageStateMessage) Validate() error {
	if strings.TrimSpace(m.Origin) == "" {
		return fmt.Errorf("query: origin is required")
	}
	return nil
}

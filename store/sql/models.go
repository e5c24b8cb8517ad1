package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

// authStateRecord is the single-row persisted auth record. The row is
// replaced wholesale on every save so readers never observe a torn
// record.
type authStateRecord struct {
	bun.BaseModel `bun:"table:extension_auth_state,alias:eas"`

	ID           string    `bun:"id,pk"`
	ServerOrigin string    `bun:"server_origin,notnull,default:''"`
	AuthState    string    `bun:"auth_state,notnull,default:'unauthorized'"`
	Credential   string    `bun:"credential,notnull,default:''"`
	AccountID    string    `bun:"account_id,notnull,default:''"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *authStateRecord) valueFor(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	switch key {
	case keyServerOrigin:
		return r.ServerOrigin, true
	case keyAuthState:
		return r.AuthState, true
	case keyCredential:
		return r.Credential, true
	case keyAccountID:
		return r.AccountID, true
	default:
		return "", false
	}
}

func (r *authStateRecord) setValue(key string, value string) bool {
	if r == nil {
		return false
	}
	switch key {
	case keyServerOrigin:
		r.ServerOrigin = value
	case keyAuthState:
		r.AuthState = value
	case keyCredential:
		r.Credential = value
	case keyAccountID:
		r.AccountID = value
	default:
		return false
	}
	return true
}

package protocol

import (
	"fmt"
	"strings"
)

// DefaultCredentialPrefix is the fixed prefix the token service issues
// extension credentials under.
const DefaultCredentialPrefix = "tt"

// Credential is the parsed shape of an extension bearer token:
// <prefix>_<hex-id>_<secret>. The id fragment identifies the token to
// the server; the secret fragment stays opaque.
type Credential struct {
	Prefix string
	ID     string
	Secret string
}

// ParseCredential validates the shape of a candidate token and splits
// it into fragments. It never calls out anywhere: shape rejection is
// local and cheap, and must happen before any network round-trip.
func ParseCredential(candidate string, prefix string) (Credential, error) {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultCredentialPrefix
	}
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return Credential{}, fmt.Errorf("%w: empty token", ErrInvalidTokenFormat)
	}
	parts := strings.SplitN(trimmed, "_", 3)
	if len(parts) != 3 {
		return Credential{}, fmt.Errorf("%w: expected three fragments", ErrInvalidTokenFormat)
	}
	if parts[0] != prefix {
		return Credential{}, fmt.Errorf("%w: missing %q prefix", ErrInvalidTokenFormat, prefix)
	}
	if parts[1] == "" || !isHex(parts[1]) {
		return Credential{}, fmt.Errorf("%w: id fragment is not hex", ErrInvalidTokenFormat)
	}
	if parts[2] == "" {
		return Credential{}, fmt.Errorf("%w: secret fragment is empty", ErrInvalidTokenFormat)
	}
	return Credential{Prefix: parts[0], ID: parts[1], Secret: parts[2]}, nil
}

// ValidateCredential reports whether a candidate token has the required
// shape without retaining the parse result.
func ValidateCredential(candidate string, prefix string) error {
	_, err := ParseCredential(candidate, prefix)
	return err
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

package protocol

import (
	"errors"
	"testing"
)

func TestParseCredential(t *testing.T) {
	cred, err := ParseCredential("tt_4f2a9c_sup3rsecret", "")
	if err != nil {
		t.Fatalf("parse credential: %v", err)
	}
	if cred.Prefix != "tt" || cred.ID != "4f2a9c" || cred.Secret != "sup3rsecret" {
		t.Fatalf("unexpected fragments: %+v", cred)
	}
}

func TestParseCredential_SecretMayContainUnderscores(t *testing.T) {
	cred, err := ParseCredential("tt_ab_part_one_two", "tt")
	if err != nil {
		t.Fatalf("parse credential: %v", err)
	}
	if cred.Secret != "part_one_two" {
		t.Fatalf("expected secret to keep inner underscores, got %q", cred.Secret)
	}
}

func TestParseCredential_RejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"wrong prefix", "xx_ab12_secret"},
		{"no fragments", "tt"},
		{"two fragments", "tt_ab12"},
		{"non hex id", "tt_zz!!_secret"},
		{"empty id", "tt__secret"},
		{"empty secret", "tt_ab12_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateCredential(tc.in, "tt"); !errors.Is(err, ErrInvalidTokenFormat) {
				t.Fatalf("expected format rejection for %q, got %v", tc.in, err)
			}
		})
	}
}

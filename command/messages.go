package command

const (
	TypeReceiveCredential = "companion.command.credential.receive"
	TypeDisconnect        = "companion.command.auth.disconnect"
	TypeRevalidate        = "companion.command.auth.revalidate"
)

// ReceiveCredentialMessage carries a candidate credential submitted by
// the page. Shape failures are reported back as structured results, so
// the message itself accepts any string including an empty one.
type ReceiveCredentialMessage struct {
	RawCredential string
}

func (ReceiveCredentialMessage) Type() string { return TypeReceiveCredential }

func (ReceiveCredentialMessage) Validate() error { return nil }

type DisconnectMessage struct{}

func (DisconnectMessage) Type() string { return TypeDisconnect }

func (DisconnectMessage) Validate() error { return nil }

type RevalidateMessage struct{}

func (RevalidateMessage) Type() string { return TypeRevalidate }

func (RevalidateMessage) Validate() error { return nil }

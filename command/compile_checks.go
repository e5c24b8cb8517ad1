package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ReceiveCredentialMessage] = (*ReceiveCredentialCommand)(nil)
	_ gocmd.Commander[DisconnectMessage]        = (*DisconnectCommand)(nil)
	_ gocmd.Commander[RevalidateMessage]        = (*RevalidateCommand)(nil)
)

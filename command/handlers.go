// Package command exposes the arbiter's mutating operations as
// go-command handlers so hosts can dispatch them through a command bus.
package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/tripthread/companion/arbiter"
)

type AuthService interface {
	ReceiveCredential(ctx context.Context, candidate string) arbiter.ReceiveResult
	Disconnect(ctx context.Context) error
	Revalidate(ctx context.Context)
}

type ReceiveCredentialCommand struct {
	service AuthService
}

func NewReceiveCredentialCommand(service AuthService) *ReceiveCredentialCommand {
	return &ReceiveCredentialCommand{service: service}
}

func (c *ReceiveCredentialCommand) Execute(ctx context.Context, msg ReceiveCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out := c.service.ReceiveCredential(ctx, msg.RawCredential)
	storeResult(ctx, out)
	return nil
}

type DisconnectCommand struct {
	service AuthService
}

func NewDisconnectCommand(service AuthService) *DisconnectCommand {
	return &DisconnectCommand{service: service}
}

func (c *DisconnectCommand) Execute(ctx context.Context, _ DisconnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	return c.service.Disconnect(ctx)
}

type RevalidateCommand struct {
	service AuthService
}

func NewRevalidateCommand(service AuthService) *RevalidateCommand {
	return &RevalidateCommand{service: service}
}

func (c *RevalidateCommand) Execute(ctx context.Context, _ RevalidateMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	c.service.Revalidate(ctx)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

package companion

import (
	"fmt"

	companioncommand "github.com/tripthread/companion/command"
	companionquery "github.com/tripthread/companion/query"
)

type CommandQueryService interface {
	companioncommand.AuthService
	companionquery.AuthStateReader
	companionquery.PageStateReader
}

type Commands struct {
	ReceiveCredential *companioncommand.ReceiveCredentialCommand
	Disconnect        *companioncommand.DisconnectCommand
	Revalidate        *companioncommand.RevalidateCommand
}

type Queries struct {
	AuthState *companionquery.AuthStateQuery
	PageState *companionquery.PageStateQuery
}

// Facade bundles the command and query handlers over one service so a
// host can register them on its dispatcher in one place.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("companion: command/query service is required")
	}
	facade := &Facade{service: service}
	facade.commands = Commands{
		ReceiveCredential: companioncommand.NewReceiveCredentialCommand(service),
		Disconnect:        companioncommand.NewDisconnectCommand(service),
		Revalidate:        companioncommand.NewRevalidateCommand(service),
	}
	facade.queries = Queries{
		AuthState: companionquery.NewAuthStateQuery(service),
		PageState: companionquery.NewPageStateQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*Service)(nil)

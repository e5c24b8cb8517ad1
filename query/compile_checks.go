package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/tripthread/companion/arbiter"
	"github.com/tripthread/companion/presenter"
)

var (
	_ gocmd.Querier[AuthStateMessage, arbiter.Snapshot]    = (*AuthStateQuery)(nil)
	_ gocmd.Querier[PageStateMessage, presenter.PageState] = (*PageStateQuery)(nil)
)

package sqlstore

import "github.com/tripthread/companion/store"

var _ store.Store = (*AuthStateStore)(nil)

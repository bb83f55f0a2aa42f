package gateway

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/draft/draft"
)

// StateProvider returns the authoritative snapshot of a league's draft.
// draft.Client serves it over RPC; draft.App serves it in-process.
type StateProvider interface {
	GetState(ctx context.Context, leagueID uuid.UUID) (*draft.SessionView, error)
}

var (
	_ StateProvider = (*draft.Client)(nil)
	_ StateProvider = (*draft.App)(nil)
)

// isNotFound covers both the in-process error and its RPC form.
func isNotFound(err error) bool {
	return errors.Is(err, draft.ErrSessionNotFound) || connect.CodeOf(err) == connect.CodeNotFound
}

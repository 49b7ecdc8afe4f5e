package guard

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/client/services"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
)

// Outcome is what the navigator should do with a path.
type Outcome int

const (
	// Loading means the session is not settled yet; show a placeholder.
	Loading Outcome = iota
	Render
	RedirectLogin
	RedirectHome
	RedirectUnauthorized
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	case NotFound:
		return "not-found"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Decision is the result of evaluating a navigation.
type Decision struct {
	Outcome Outcome
	// Target is the path to show: the requested path for Render, the
	// redirect destination otherwise.
	Target string
	Match  Match
}

// StateSource exposes the current session.
type StateSource interface {
	State(ctx context.Context) services.SessionState
}

// PendingStore holds the path to resume after sign-in.
type PendingStore interface {
	SetPendingRedirect(ctx context.Context, path string) error
	TakePendingRedirect(ctx context.Context) (string, error)
}

// Guard evaluates navigations against the route table and the session. It
// keeps no state of its own; every call is decided from scratch.
type Guard struct {
	table   *Table
	auth    StateSource
	pending PendingStore
	log     logging.Logger
}

func New(table *Table, auth StateSource, pending PendingStore, log logging.Logger) *Guard {
	return &Guard{table: table, auth: auth, pending: pending, log: log.With("module", "guard")}
}

// Evaluate decides what to do with a navigation to target. A signed-out
// visitor to a protected route has target recorded as the pending redirect.
func (g *Guard) Evaluate(ctx context.Context, target string) (Decision, error) {
	st := g.auth.State(ctx)
	if st.Status == services.StatusLoading {
		return Decision{Outcome: Loading, Target: target}, nil
	}

	m, ok := g.table.Lookup(target)
	if !ok {
		return Decision{Outcome: NotFound, Target: m.Path, Match: m}, nil
	}

	switch m.Route.Access {
	case AccessPublic:
		return Decision{Outcome: Render, Target: m.Path, Match: m}, nil

	case AccessGuestOnly:
		if st.Authenticated() {
			return Decision{Outcome: RedirectHome, Target: HomePath, Match: m}, nil
		}
		return Decision{Outcome: Render, Target: m.Path, Match: m}, nil
	}

	if !st.Authenticated() {
		if err := g.pending.SetPendingRedirect(ctx, target); err != nil {
			return Decision{}, fmt.Errorf("record pending redirect: %w", err)
		}
		g.log.Info(ctx, "sign-in required", "path", target)
		return Decision{Outcome: RedirectLogin, Target: LoginPath, Match: m}, nil
	}

	if !st.User.Role.Satisfies(m.Route.Role) {
		g.log.Warn(ctx, "access denied", "path", m.Path, "role", string(st.User.Role), "required", string(m.Route.Role))
		return Decision{Outcome: RedirectUnauthorized, Target: UnauthorizedPath, Match: m}, nil
	}

	return Decision{Outcome: Render, Target: m.Path, Match: m}, nil
}

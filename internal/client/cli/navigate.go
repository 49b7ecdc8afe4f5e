package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/shopkeeper/internal/client/guard"
)

const maxRedirects = 3

// Go navigates to path, following guard redirects.
func (a *App) Go(ctx context.Context, path string) error {
	target := path
	for hop := 0; hop <= maxRedirects; hop++ {
		d, err := a.guard.Evaluate(ctx, target)
		if err != nil {
			return err
		}

		switch d.Outcome {
		case guard.Loading:
			a.printf("Loading...\n")
			return nil
		case guard.NotFound:
			a.printf("Page not found: %s\n", d.Target)
			return nil
		case guard.Render:
			a.render(d)
			return nil
		case guard.RedirectLogin:
			a.printf("Please sign in to continue to %s\n", target)
		case guard.RedirectUnauthorized:
			a.printf("Your account cannot open %s\n", d.Match.Path)
		}
		target = d.Target
	}
	return fmt.Errorf("too many redirects navigating to %s", path)
}

func (a *App) render(d guard.Decision) {
	a.mu.Lock()
	a.current = d.Target
	a.mu.Unlock()

	a.printf("== %s (%s) ==\n", d.Match.Route.Title, d.Target)
	if len(d.Match.Params) > 0 {
		keys := make([]string, 0, len(d.Match.Params))
		for k := range d.Match.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			a.printf("  %s: %s\n", k, d.Match.Params[k])
		}
	}
	switch d.Target {
	case guard.LoginPath:
		a.printf("Type 'login' to sign in or 'register' to create an account.\n")
	case guard.UnauthorizedPath:
		a.printf("You do not have permission to view the requested page.\n")
	}
}

// Routes prints the route table.
func (a *App) Routes(context.Context) error {
	fmt.Fprint(a.out, formatRoutes(a.table.Routes()))
	return nil
}

func routeAccess(r guard.Route) string {
	if r.Access != guard.AccessProtected {
		return r.Access.String()
	}
	if r.Role == "" {
		return "signed in"
	}
	return string(r.Role)
}

func formatRoutes(routes []guard.Route) string {
	var b strings.Builder
	for _, r := range routes {
		fmt.Fprintf(&b, "%-20s %-18s %s\n", r.Pattern, r.Title, routeAccess(r))
	}
	return b.String()
}

// Package guard decides what happens when the storefront navigates to a path:
// render it, show a placeholder, or redirect to login or the unauthorized
// page. It also resolves where to land after a successful sign-in.
package guard

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/go-chi/chi/v5"
)

// Well-known paths.
const (
	HomePath         = "/"
	LoginPath        = "/login"
	RegisterPath     = "/register"
	UnauthorizedPath = "/unauthorized"
	AdminHomePath    = "/admin/dashboard"
	adminPrefix      = "/admin"
)

// Access classifies a route.
type Access int

const (
	// AccessPublic routes render for everyone.
	AccessPublic Access = iota
	// AccessGuestOnly routes render only for signed-out visitors.
	AccessGuestOnly
	// AccessProtected routes need a signed-in user holding Route.Role.
	AccessProtected
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessGuestOnly:
		return "guest"
	case AccessProtected:
		return "protected"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// Route is one entry of the route table. Pattern uses chi syntax.
type Route struct {
	Pattern string
	Title   string
	Access  Access
	// Role is the requirement for protected routes; RoleNone means any
	// signed-in user.
	Role models.Role
}

// DefaultRoutes is the storefront's navigation map.
var DefaultRoutes = []Route{
	{Pattern: UnauthorizedPath, Title: "Unauthorized", Access: AccessPublic},

	{Pattern: LoginPath, Title: "Login", Access: AccessGuestOnly},
	{Pattern: RegisterPath, Title: "Register", Access: AccessGuestOnly},

	{Pattern: HomePath, Title: "Home", Access: AccessProtected},
	{Pattern: "/store", Title: "Store", Access: AccessProtected},
	{Pattern: "/category/{slug}", Title: "Category", Access: AccessProtected},
	{Pattern: "/product/{id}", Title: "Product", Access: AccessProtected},

	{Pattern: "/orders", Title: "Orders", Access: AccessProtected, Role: models.RoleUser},
	{Pattern: "/wishlist", Title: "Wishlist", Access: AccessProtected, Role: models.RoleUser},
	{Pattern: "/cart", Title: "Cart", Access: AccessProtected, Role: models.RoleUser},
	{Pattern: "/track-order", Title: "Track order", Access: AccessProtected, Role: models.RoleUser},

	{Pattern: "/manage", Title: "Manage", Access: AccessProtected, Role: models.RoleAdmin},
	{Pattern: AdminHomePath, Title: "Admin dashboard", Access: AccessProtected, Role: models.RoleAdmin},
	{Pattern: "/admin/products", Title: "Admin products", Access: AccessProtected, Role: models.RoleAdmin},
	{Pattern: "/admin/orders", Title: "Admin orders", Access: AccessProtected, Role: models.RoleAdmin},
}

// Match is a resolved route plus its path parameters.
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
}

// Table resolves paths to routes with a chi router whose handlers are never
// served; only its matcher is used.
type Table struct {
	mux    *chi.Mux
	routes map[string]Route
	order  []Route
}

// NewTable builds a table. Patterns must be unique.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{mux: chi.NewRouter(), routes: make(map[string]Route, len(routes))}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	for _, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route %q: pattern must start with /", r.Pattern)
		}
		if _, dup := t.routes[r.Pattern]; dup {
			return nil, fmt.Errorf("route %q: duplicate pattern", r.Pattern)
		}
		if r.Access == AccessProtected && r.Role != models.RoleNone && !r.Role.Valid() {
			return nil, fmt.Errorf("route %q: unknown role %q", r.Pattern, r.Role)
		}
		t.routes[r.Pattern] = r
		t.order = append(t.order, r)
		t.mux.Get(r.Pattern, noop)
	}
	return t, nil
}

// Lookup resolves target (a path, optionally with a query string).
func (t *Table) Lookup(target string) (Match, bool) {
	p := CleanPath(target)
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, p) {
		return Match{Path: p}, false
	}

	r, ok := t.routes[rctx.RoutePattern()]
	if !ok {
		return Match{Path: p}, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	return Match{Route: r, Path: p, Params: params}, true
}

// Routes returns the table in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.order))
	copy(out, t.order)
	return out
}

// CleanPath strips the query and fragment from target and normalizes the
// remaining path. An empty target is the home path.
func CleanPath(target string) string {
	p := target
	if u, err := url.Parse(target); err == nil {
		p = u.Path
	}
	if p == "" {
		return HomePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

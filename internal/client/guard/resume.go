package guard

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/shopkeeper/internal/models"
)

// Resume returns where user should land after signing in. The pending path is
// consumed whether or not it is used.
// A storage failure is logged and treated as nothing pending.
func (g *Guard) Resume(ctx context.Context, user *models.User) string {
	pending, err := g.pending.TakePendingRedirect(ctx)
	if err != nil {
		g.log.Warn(ctx, "pending redirect unavailable", "error", err.Error())
		pending = ""
	}
	return ResumeTarget(pending, user)
}

// ResumeTarget picks the landing path for user given the pending path.
// Admins only return to admin pages and otherwise land on the dashboard;
// everyone else returns to the pending path or the home page.
func ResumeTarget(pending string, user *models.User) string {
	usable := pending != "" && !isAuthPage(pending)

	if user.IsAdmin() {
		if usable && isAdminPath(pending) {
			return pending
		}
		return AdminHomePath
	}
	if usable {
		return pending
	}
	return HomePath
}

func isAuthPage(target string) bool {
	p := CleanPath(target)
	return p == LoginPath || p == RegisterPath
}

func isAdminPath(target string) bool {
	p := CleanPath(target)
	return p == adminPrefix || strings.HasPrefix(p, adminPrefix+"/")
}

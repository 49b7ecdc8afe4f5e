package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the registration form and creates an account. On
// success the user is signed in and taken to the resumed page. Form and
// duplicate errors are printed and leave the current page alone.
func (a *App) Register(ctx context.Context) error {
	var in models.RegisterInput
	var err error

	if in.Name, err = getSimpleText(a.reader, "Enter name", a.out); err != nil {
		return err
	}
	if in.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if in.Password, err = getPassword(a.reader, "Enter password", a.out); err != nil {
		return err
	}
	if in.ConfirmPassword, err = getPassword(a.reader, "Confirm password", a.out); err != nil {
		return err
	}
	if a.config != nil && a.config.AllowRoleSelection {
		role, err := getSimpleText(a.reader, "Role (user/admin, empty for user)", a.out)
		if err != nil {
			return err
		}
		in.Role = models.Role(strings.TrimSpace(role))
	}

	u, err := a.auth.Register(ctx, in)
	if err != nil {
		a.printf("Registration failed: %s\n", describeError(err))
		return err
	}

	a.printf("Welcome, %s!\n", u.Name)
	return a.Go(ctx, a.guard.Resume(ctx, u))
}

// Login prompts for credentials and signs in. On success the pending page
// (or the role's landing page) is opened.
func (a *App) Login(ctx context.Context) error {
	var creds models.Credentials
	var err error

	if creds.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if creds.Password, err = getPassword(a.reader, "Enter password", a.out); err != nil {
		return err
	}

	u, err := a.auth.Login(ctx, creds)
	if err != nil {
		a.printf("Login failed: %s\n", describeError(err))
		return err
	}

	a.printf("Welcome back, %s!\n", u.Name)
	return a.Go(ctx, a.guard.Resume(ctx, u))
}

// Logout ends the session and returns to the home page, which for a signed
// out visitor means the login page.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		a.printf("Logout failed: %s\n", describeError(err))
		return err
	}
	a.printf("Signed out.\n")
	return a.Go(ctx, "/")
}

// Whoami prints the current user and the header remote calls would carry.
// In remote mode it also asks the server whether it still accepts the token.
func (a *App) Whoami(ctx context.Context) error {
	st := a.auth.State(ctx)
	if !st.Authenticated() {
		a.printf("Not signed in (%s).\n", st.Status)
		return nil
	}

	u := st.User
	a.printf("%s <%s>\n  id:      %s\n  role:    %s\n", u.Name, u.Email, u.ID, u.Role)
	if !u.CreatedAt.IsZero() {
		a.printf("  since:   %s\n", u.CreatedAt.Format("2006-01-02"))
	}
	if h := a.auth.AuthHeader(ctx).Get(common.AuthHeaderName); h != "" {
		a.printf("  header:  %s: %s\n", common.AuthHeaderName, h)
	}
	if a.account != nil {
		a.printServerView(ctx, u, st.Token)
	}
	return nil
}

// printServerView shows how the server sees the session token.
func (a *App) printServerView(ctx context.Context, u *models.User, tok string) {
	remote, err := a.account.Me(ctx, tok)
	switch {
	case err != nil:
		a.printf("  server:  %s\n", describeError(err))
	case remote.Role != u.Role:
		a.printf("  server:  role is now %s, sign in again to pick it up\n", remote.Role)
	default:
		a.printf("  server:  confirmed\n")
	}
}

// Promote changes another account's role: promote <email> <role>.
func (a *App) Promote(ctx context.Context, args []string) error {
	if len(args) != 2 {
		a.printf("Usage: promote <email> <user|admin>\n")
		return nil
	}
	role, err := models.ParseRole(args[1])
	if err != nil {
		a.printf("%s\n", err)
		return err
	}

	u, err := a.auth.Promote(ctx, args[0], role)
	if err != nil {
		a.printf("Role change failed: %s\n", describeError(err))
		return err
	}
	a.printf("%s is now %s.\n", u.Email, u.Role)
	return nil
}

// describeError turns service errors into messages for the prompt.
func describeError(err error) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		msgs := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			msgs = append(msgs, f.Message)
		}
		return strings.Join(msgs, "; ")
	case errors.Is(err, common.ErrDuplicateEmail):
		return "an account with this email already exists"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, common.ErrNetworkFailure):
		return "server unavailable, try again later"
	case errors.Is(err, common.ErrForbidden):
		return "you are not allowed to do that"
	case errors.Is(err, common.ErrorNotFound):
		return "no such account"
	case errors.Is(err, common.ErrTokenExpiredOrInvalid):
		return "your session has expired, please sign in again"
	default:
		return fmt.Sprint(err)
	}
}

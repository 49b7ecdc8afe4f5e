package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/shopkeeper/internal/client/client"
	"github.com/dmitrijs2005/shopkeeper/internal/client/config"
	"github.com/dmitrijs2005/shopkeeper/internal/client/guard"
	"github.com/dmitrijs2005/shopkeeper/internal/client/session"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the storefront command tree. Without a subcommand it
// starts the interactive session.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "shopkeeper",
		Short:         "Storefront client with local or remote sign-in",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := config.RegisterFlags(root.PersistentFlags())

	root.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := load(flags, errOut)
		if err != nil {
			return err
		}
		app, err := NewApp(cmd.Context(), cfg, log, in, out)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context())
	}

	root.AddCommand(
		newRoutesCommand(),
		newWhoamiCommand(flags, errOut),
		newLogoutCommand(flags, errOut),
	)
	return root
}

func load(flags *config.Flags, errOut io.Writer) (*config.Config, logging.Logger, error) {
	cfg, err := flags.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.LogFormat, errOut)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the storefront pages and who may open them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := guard.NewTable(guard.DefaultRoutes)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), formatRoutes(table.Routes()))
			return err
		},
	}
}

// withStore opens local storage without starting the interactive session.
func withStore(ctx context.Context, flags *config.Flags, errOut io.Writer, fn func(*session.Store) error) error {
	cfg, log, err := load(flags, errOut)
	if err != nil {
		return err
	}
	db, err := client.InitDatabase(ctx, cfg.StoragePath)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(session.NewStore(db, token.NewFixedSecretCodec(cfg.TokenSecret), log))
}

func newWhoamiCommand(flags *config.Flags, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), flags, errOut, func(s *session.Store) error {
				sess, err := s.Load(cmd.Context())
				if err != nil {
					return err
				}
				if sess == nil {
					cmd.Println("Not signed in.")
					return nil
				}
				expires := "never"
				if exp := sess.Claims.ExpiresAt; exp != nil {
					expires = exp.Time.Format("2006-01-02 15:04:05")
				}
				cmd.Printf("%s <%s> role=%s expires=%s\n", sess.User.Name, sess.User.Email, sess.User.Role, expires)
				return nil
			})
		},
	}
}

func newLogoutCommand(flags *config.Flags, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), flags, errOut, func(s *session.Store) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return err
				}
				cmd.Println("Signed out.")
				return nil
			})
		},
	}
}

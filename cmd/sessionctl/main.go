// sessionctl drives the session client from the command line: log in, show
// the current identity, log out. The session survives between invocations in
// a file store, the way the web client keeps it in local storage.
package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hansamarket/go-session/client"
	"github.com/hansamarket/go-session/exchange"
	"github.com/hansamarket/go-session/internal/config"
	"github.com/hansamarket/go-session/session"
	"github.com/hansamarket/go-session/session/filestore"
)

var (
	flagEmail    string
	flagPassword string
	flagRemember bool
	flagFirst    string
	flagLast     string
	flagPhone    string
	flagCountry  string
	flagTerms    bool
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessionctl",
		Short: "Marketplace session client",
		Long:  "Drives the marketplace session client: credential exchange, token refresh and session state.",
	}
	cmd.AddCommand(
		loginCmd(),
		registerCmd(),
		whoamiCmd(),
		statusCmd(),
		logoutCmd(),
		testLoginCmd(),
	)
	return cmd
}

// newClient wires a session client over the file store.
func newClient() (*client.Client, error) {
	cfg := config.New()
	store, err := filestore.New(cfg.GetDataFolder())
	if err != nil {
		return nil, err
	}
	return client.New(cfg, store, client.WithLogger(log.Logger))
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			sess, err := c.Login(cmd.Context(), flagEmail, flagPassword, flagRemember)
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s %s <%s>\n", sess.User.FirstName, sess.User.LastName, sess.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	cmd.Flags().StringVar(&flagPassword, "password", "", "account password")
	cmd.Flags().BoolVar(&flagRemember, "remember", false, "ask the backend for a long-lived session")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log it in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			sess, err := c.Register(cmd.Context(), exchange.Registration{
				Email:       flagEmail,
				Password:    flagPassword,
				FirstName:   flagFirst,
				LastName:    flagLast,
				Phone:       flagPhone,
				Country:     session.Country(flagCountry),
				AcceptTerms: flagTerms,
			})
			if err != nil {
				return err
			}
			fmt.Printf("registered %s <%s>\n", sess.User.ID, sess.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	cmd.Flags().StringVar(&flagPassword, "password", "", "account password")
	cmd.Flags().StringVar(&flagFirst, "first-name", "", "first name")
	cmd.Flags().StringVar(&flagLast, "last-name", "", "last name")
	cmd.Flags().StringVar(&flagPhone, "phone", "", "Nordic phone number (+46, +47 or +45)")
	cmd.Flags().StringVar(&flagCountry, "country", "SE", "country code (SE, NO or DK)")
	cmd.Flags().BoolVar(&flagTerms, "accept-terms", false, "accept the terms of service")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Restore the stored session and show the identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Init(cmd.Context()); err != nil {
				return err
			}
			state := c.Current()
			if !state.IsAuthenticated() {
				fmt.Println("not logged in")
				return nil
			}
			displayAppname(state.User.FirstName)
			fmt.Printf("%s %s <%s> verification=%s\n",
				state.User.FirstName, state.User.LastName, state.User.Email, state.User.VerificationLevel)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Ask the backend whether the stored token is still good",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			status := c.Status(cmd.Context())
			fmt.Printf("authenticated: %v\n", status.IsAuthenticated)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Tear the session down",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			c.Logout(cmd.Context())
			fmt.Println("logged out")
			return nil
		},
	}
}

func testLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-login",
		Short: "Create a backend-free test session (requires TEST_LOGIN_ENABLED=true)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			sess, err := c.Impersonate(session.UserProfile{
				Email:     flagEmail,
				FirstName: flagFirst,
				LastName:  flagLast,
				Role:      "USER",
				Country:   session.CountrySweden,
				Language:  session.LanguageSwedish,
			})
			if err != nil {
				return err
			}
			fmt.Printf("test session created for %s\n", sess.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagEmail, "email", "test@example.com", "profile email")
	cmd.Flags().StringVar(&flagFirst, "first-name", "Test", "first name")
	cmd.Flags().StringVar(&flagLast, "last-name", "User", "last name")
	return cmd
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"
	"github.com/aifinance/finctl/internal/token"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagPassword string
	flagFullName string
	flagCurrency string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove stored credentials",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and token expiry",
	RunE:  runWhoami,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your name, currency or password",
	RunE:  runProfile,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&flagEmail, "email", "", "Account email")
		c.Flags().StringVar(&flagPassword, "password", "", "Account password (prompted when empty)")
	}
	registerCmd.Flags().StringVar(&flagFullName, "name", "", "Full name")
	registerCmd.Flags().StringVar(&flagCurrency, "currency", "", "Preferred currency (default USD)")

	profileCmd.Flags().StringVar(&flagFullName, "name", "", "New full name")
	profileCmd.Flags().StringVar(&flagCurrency, "currency", "", "New preferred currency")
	profileCmd.Flags().Bool("password", false, "Prompt for a new password")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, profileCmd)
}

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// promptCredentials asks for whatever the flags left empty.
func promptCredentials(email, password *string) error {
	var fields []huh.Field
	if *email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(email).Validate(notBlank("email")))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(notBlank("password")))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func runLogin(cmd *cobra.Command, _ []string) error {
	email, password := flagEmail, flagPassword
	if err := promptCredentials(&email, &password); err != nil {
		return err
	}

	return withClient(func(a *app) error {
		if err := a.session.Login(cmd.Context(), strings.TrimSpace(email), password); err != nil {
			return err
		}
		u := a.session.User()
		fmt.Printf("  Signed in as %s\n", cli.Good(u.DisplayName()))
		return nil
	})
}

func runRegister(cmd *cobra.Command, _ []string) error {
	email, password := flagEmail, flagPassword
	if err := promptCredentials(&email, &password); err != nil {
		return err
	}

	in := model.RegisterRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		FullName:          flagFullName,
		PreferredCurrency: strings.ToUpper(flagCurrency),
	}
	if in.PreferredCurrency == "" {
		in.PreferredCurrency = "USD"
	}
	return withClient(func(a *app) error {
		if err := a.session.Register(cmd.Context(), in); err != nil {
			return err
		}
		fmt.Printf("  Created account for %s\n", cli.Good(in.Email))
		return nil
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withClient(func(a *app) error {
		if err := a.session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("  Signed out.")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		u := a.session.User()
		pairs := [][2]string{
			{"ID", fmt.Sprintf("%d", u.ID)},
			{"Email", u.Email},
			{"Name", u.DisplayName()},
			{"Currency", u.PreferredCurrency},
			{"Member since", u.CreatedAt.Local().Format("2006-01-02")},
		}
		if u.IsSuperuser {
			pairs = append(pairs, [2]string{"Role", "superuser"})
		}

		creds, err := a.store.Load()
		if err == nil && creds != nil {
			pairs = append(pairs, [2]string{"Access token", describeToken(creds.AccessToken)})
			refresh := cli.Muted("none")
			if creds.HasRefreshToken() {
				refresh = describeToken(creds.RefreshToken)
			}
			pairs = append(pairs, [2]string{"Refresh token", refresh})
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle("SESSION"))
		fmt.Println()
		fmt.Print(cli.RenderKV(pairs))
		fmt.Println()
		return nil
	})
}

func describeToken(raw string) string {
	info, err := token.Inspect(raw)
	switch {
	case errors.Is(err, token.ErrNoExpiry):
		return cli.Muted("no expiry")
	case err != nil:
		return cli.Muted("opaque")
	}
	now := time.Now()
	if info.Expired(now) {
		return cli.Bad("expired " + info.ExpiresAt.Local().Format(time.Kitchen))
	}
	return cli.Good("expires in " + cli.FormatRemaining(info.Remaining(now)))
}

func runProfile(cmd *cobra.Command, _ []string) error {
	var in model.UserUpdate
	if cmd.Flags().Changed("name") {
		in.FullName = &flagFullName
	}
	if cmd.Flags().Changed("currency") {
		c := strings.ToUpper(flagCurrency)
		in.PreferredCurrency = &c
	}
	if ask, _ := cmd.Flags().GetBool("password"); ask {
		var pw string
		err := huh.NewInput().
			Title("New password").
			EchoMode(huh.EchoModePassword).
			Value(&pw).
			Validate(notBlank("password")).
			Run()
		if err != nil {
			return err
		}
		in.Password = &pw
	}
	if in.FullName == nil && in.PreferredCurrency == nil && in.Password == nil {
		return errors.New("nothing to update; pass --name, --currency or --password")
	}

	return withSession(cmd.Context(), func(a *app) error {
		u, err := a.session.UpdateUser(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("  Updated profile for %s\n", cli.Good(u.DisplayName()))
		return nil
	})
}

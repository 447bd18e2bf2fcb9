package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aifinance/finctl/internal/api"
	"github.com/aifinance/finctl/internal/apierr"
	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/config"
	"github.com/aifinance/finctl/internal/credstore"
	"github.com/aifinance/finctl/internal/logging"
	"github.com/aifinance/finctl/internal/session"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagAPIURL    string
	flagStore     string
	flagEphemeral bool
	flagVerbose   bool
	flagQuiet     bool

	// jsonLogs switches to line-delimited JSON logs for detached processes.
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:           "finctl",
	Short:         "AI Finance Manager CLI",
	Long:          "Manage accounts, transactions, budgets and forecasts on an AI Finance Manager backend.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDashboard,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints err unless the notifier already showed the user a
// message for it.
func reportError(err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) && !apiErr.Silent() {
		return
	}
	if errors.Is(err, api.ErrSessionExpired) {
		return
	}
	fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Backend base URL (overrides config and "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "Session database path")
	rootCmd.PersistentFlags().BoolVar(&flagEphemeral, "ephemeral", false, "Keep the session in memory only")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log API calls to stderr")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// app bundles everything a command needs to talk to the backend.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	store   credstore.Store
	client  *api.Client
	session *session.Manager

	closeStore func() error
}

// newApp loads configuration and wires the store, client and session.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}
	if flagStore != "" {
		cfg.Session.StorePath = flagStore
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	cli.SetTheme(cfg.Appearance.Theme)

	log := logging.New(os.Stderr, cfg.LogLevel)
	if jsonLogs {
		log = logging.NewJSON(os.Stderr, cfg.LogLevel)
	}

	a := &app{cfg: cfg, log: log, closeStore: func() error { return nil }}
	if flagEphemeral {
		a.store = credstore.NewMemory()
	} else {
		db, err := credstore.Open(cfg.StorePath())
		if err != nil {
			return nil, err
		}
		a.store = db
		a.closeStore = db.Close
	}

	notifier := cli.Notifier(os.Stderr)
	a.client = api.New(api.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout(),
		MarketTimeout:     cfg.API.MarketTimeout(),
		PredictionTimeout: cfg.API.PredictTimeout(),
		SlowCallThreshold: cfg.API.SlowCall(),
		RateLimit:         cfg.API.RateLimitRPS,
		RateBurst:         4,
		Logger:            &log,
		Notifier:          notifier,
	}, a.store)
	a.session = session.New(a.client, a.store, session.Options{
		Navigator: session.NavigatorFunc(navigate),
		Notifier:  notifier,
		Logger:    &log,
	})
	return a, nil
}

// navigate turns session navigation into terminal hints.
func navigate(target string) {
	if target == session.RouteLogin && !flagQuiet {
		fmt.Fprintln(os.Stderr, cli.Muted("  Run `finctl login` to sign in."))
	}
}

func (a *app) Close() {
	a.session.Teardown()
	if err := a.closeStore(); err != nil {
		a.log.Warn().Err(err).Msg("closing session store")
	}
}

// withSession runs fn with a resumed, authenticated session.
func withSession(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Init(ctx); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return errors.New("not logged in; run `finctl login`")
	}
	return fn(a)
}

// withClient runs fn without requiring a session.
func withClient(fn func(a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// progress prints a loading line unless --quiet.
func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

// fallbackNote marks output that came from built-in defaults.
func fallbackNote(fallback bool) {
	if fallback {
		fmt.Println(cli.Muted("  Backend unavailable; showing default values."))
	}
}

func secondsFlag(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

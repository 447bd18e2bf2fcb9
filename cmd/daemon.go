package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/config"
	"github.com/aifinance/finctl/internal/daemon"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonProbe        time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep the session alive in the background with HTTP/SSE status endpoints",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session daemon's state",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the session daemon",
	RunE:  runDaemonStop,
}

func init() {
	flags := daemonCmd.PersistentFlags()
	flags.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	flags.DurationVar(&flagDaemonInterval, "interval", 0, "Session revalidation interval (default from config)")
	flags.DurationVar(&flagDaemonProbe, "probe-interval", time.Minute, "Backend health probe interval")
	flags.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(config.StateDir(), "finctld.pid"), "PID file path")
	flags.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(config.StateDir(), "finctld.log"), "Log file for --detach")
	flags.IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Session events kept in memory")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run in the background")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: running as the detached process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func daemonProcess() daemon.Process {
	return daemon.Process{PIDFile: flagDaemonPIDFile, LogFile: flagDaemonLogFile}
}

// daemonAddr resolves the listen address from the flag or config.
func daemonAddr() string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	cfg, err := config.Load()
	if err != nil || cfg.Daemon.Addr == "" {
		return config.DefaultConfig().Daemon.Addr
	}
	return cfg.Daemon.Addr
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("--detach and --child are exclusive")
	}
	if flagDaemonDetach {
		return spawnDaemon()
	}
	return serveDaemon(cmd)
}

func spawnDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}
	args := append(daemon.WithoutFlag(os.Args[1:], "--detach"), "--child")

	pid, err := daemonProcess().Spawn(exe, args)
	if err != nil {
		return err
	}
	fmt.Print(cli.RenderKV([][2]string{
		{"Started", fmt.Sprintf("pid %d", pid)},
		{"Status", "http://" + daemonAddr() + "/v1/status"},
		{"Log", flagDaemonLogFile},
	}))
	return nil
}

func serveDaemon(cmd *cobra.Command) error {
	ctx := cmd.Context()
	proc := daemonProcess()
	if err := proc.CheckFree(); err != nil {
		return err
	}

	jsonLogs = flagDaemonChild
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := daemonAddr()
	release, err := proc.Claim(daemon.RuntimeState{
		Addr:      addr,
		BaseURL:   a.client.BaseURL(),
		StartedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	defer release()

	if err := a.session.Init(ctx); err != nil {
		a.log.Warn().Err(err).Msg("resuming session")
	}
	if !a.session.IsAuthenticated() {
		a.log.Warn().Msg("no stored session; waiting for `finctl login`")
	}

	interval := flagDaemonInterval
	if interval <= 0 {
		interval = a.cfg.Session.RevalidateInterval()
	}
	svc := daemon.New(daemon.Config{
		Addr:               addr,
		RevalidateInterval: interval,
		ProbeInterval:      flagDaemonProbe,
		EventsBuffer:       flagDaemonEventsBuffer,
		BaseURL:            a.client.BaseURL(),
		Logger:             &a.log,
	}, a.session, a.client)

	a.log.Info().
		Str("addr", addr).
		Str("backend", a.client.BaseURL()).
		Dur("revalidate", interval).
		Msg("session daemon listening")

	return svc.Run(ctx)
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	proc := daemonProcess()
	pid, err := proc.Lookup()
	switch {
	case errors.Is(err, daemon.ErrNotRunning):
		fmt.Println(cli.Muted("  Daemon not running"))
		return nil
	case errors.Is(err, daemon.ErrStalePID):
		fmt.Println(cli.Warn(fmt.Sprintf("  Stale pid file: pid %d has exited", pid)))
		return nil
	case err != nil:
		return err
	}

	addr := daemonAddr()
	if rs, err := proc.State(); err == nil && rs.Addr != "" {
		addr = rs.Addr
	}
	pairs := [][2]string{
		{"PID", fmt.Sprintf("%d", pid)},
		{"Address", "http://" + addr},
	}

	st, err := daemon.FetchStatus(cmd.Context(), addr)
	if err != nil {
		pairs = append(pairs, [2]string{"API", cli.Bad(err.Error())})
		fmt.Print(cli.RenderKV(pairs))
		return nil
	}
	fmt.Print(cli.RenderKV(append(pairs, statusPairs(st)...)))
	return nil
}

func statusPairs(st *daemon.Status) [][2]string {
	probe := "pending"
	if !st.LastProbeAt.IsZero() {
		probe = st.LastProbeAt.Local().Format(time.RFC3339)
	}
	backend := cli.Bad("down")
	if st.Summary.BackendUp {
		backend = cli.Good("up")
	}
	signedIn := cli.Warn("signed out")
	if st.Summary.Authenticated {
		signedIn = cli.Good(st.Summary.Email)
	}

	pairs := [][2]string{
		{"Backend", st.BaseURL + " " + backend},
		{"Last probe", probe},
		{"Session", signedIn},
		{"Revalidations", fmt.Sprintf("%d, every %s", st.RevalidateCount, time.Duration(st.RevalidateIntervalSec)*time.Second)},
	}
	if st.Summary.SessionError != "" {
		pairs = append(pairs, [2]string{"Session error", st.Summary.SessionError})
	}
	if st.LastError != "" {
		pairs = append(pairs, [2]string{"Last error", st.LastError})
	}
	return pairs
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pid, err := daemonProcess().Stop(8 * time.Second)
	if errors.Is(err, daemon.ErrNotRunning) {
		return errors.New("daemon is not running")
	}
	if err != nil {
		return err
	}
	fmt.Printf("  Stopped daemon (pid %d)\n", pid)
	return nil
}

package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrNotRunning means no pid file exists.
	ErrNotRunning = errors.New("daemon: not running")
	// ErrStalePID means the pid file names a process that has exited.
	ErrStalePID = errors.New("daemon: stale pid file")
)

// AlreadyRunningError is returned when a live daemon owns the pid file.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("daemon already running (pid %d)", e.PID)
}

// RuntimeState describes a running daemon. It is written beside the pid file.
type RuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	BaseURL   string    `json:"base_url"`
	StartedAt time.Time `json:"started_at"`
}

// Process locates a daemon through its pid file.
type Process struct {
	PIDFile string
	LogFile string
}

// StatePath is where the RuntimeState lives: the pid file with a .json
// extension.
func (p Process) StatePath() string {
	return strings.TrimSuffix(p.PIDFile, filepath.Ext(p.PIDFile)) + ".json"
}

// Lookup returns the pid of the live daemon.
func (p Process) Lookup() (int, error) {
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(p.PIDFile)
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotRunning
	}
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon: invalid pid in %s", p.PIDFile)
	}
	if !alive(pid) {
		return pid, ErrStalePID
	}
	return pid, nil
}

// CheckFree fails when a live daemon holds the pid file and clears a stale one.
func (p Process) CheckFree() error {
	pid, err := p.Lookup()
	switch {
	case err == nil:
		return &AlreadyRunningError{PID: pid}
	case errors.Is(err, ErrStalePID):
		p.remove()
		return nil
	case errors.Is(err, ErrNotRunning):
		return nil
	default:
		return err
	}
}

// Claim records st as the running daemon. release removes both files.
func (p Process) Claim(st RuntimeState) (release func(), err error) {
	if err := p.CheckFree(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p.PIDFile), 0o750); err != nil {
		return nil, fmt.Errorf("daemon: creating state directory: %w", err)
	}
	if st.PID == 0 {
		st.PID = os.Getpid()
	}
	if err := os.WriteFile(p.PIDFile, []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("daemon: writing pid file: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err == nil {
		err = os.WriteFile(p.StatePath(), append(data, '\n'), 0o600)
	}
	if err != nil {
		p.remove()
		return nil, fmt.Errorf("daemon: writing state file: %w", err)
	}
	return p.remove, nil
}

// State reads the state the running daemon recorded.
func (p Process) State() (RuntimeState, error) {
	var st RuntimeState
	//nolint:gosec // state path is configured by the local user
	data, err := os.ReadFile(p.StatePath())
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

// Spawn starts exe in the background with output appended to LogFile.
func (p Process) Spawn(exe string, args []string) (int, error) {
	if err := p.CheckFree(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p.LogFile), 0o750); err != nil {
		return 0, fmt.Errorf("daemon: creating log directory: %w", err)
	}
	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(p.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return 0, fmt.Errorf("daemon: opening log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // re-executes the current binary
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("daemon: starting: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

// Stop asks the daemon to exit and waits up to timeout for it.
func (p Process) Stop(timeout time.Duration) (int, error) {
	pid, err := p.Lookup()
	if errors.Is(err, ErrStalePID) {
		p.remove()
		return pid, ErrNotRunning
	}
	if err != nil {
		return 0, err
	}
	proc, err := os.FindProcess(pid)
	if err == nil {
		err = proc.Signal(syscall.SIGTERM)
	}
	if err != nil {
		return pid, fmt.Errorf("daemon: signalling pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !alive(pid) {
			p.remove()
			return pid, nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return pid, fmt.Errorf("daemon: pid %d did not exit within %s", pid, timeout)
}

func (p Process) remove() {
	_ = os.Remove(p.PIDFile)
	_ = os.Remove(p.StatePath())
}

func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// WithoutFlag drops every occurrence of a boolean flag from args.
func WithoutFlag(args []string, name string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == name || strings.HasPrefix(a, name+"=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

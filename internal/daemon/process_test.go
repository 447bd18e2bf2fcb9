package daemon

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aifinance/finctl/internal/session"
)

func testProcess(t *testing.T) Process {
	t.Helper()
	dir := t.TempDir()
	return Process{
		PIDFile: filepath.Join(dir, "run", "finctld.pid"),
		LogFile: filepath.Join(dir, "finctld.log"),
	}
}

func TestClaimWritesPIDAndState(t *testing.T) {
	p := testProcess(t)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	release, err := p.Claim(RuntimeState{Addr: "127.0.0.1:9", BaseURL: "http://api", StartedAt: started})
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}

	pid, err := p.Lookup()
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
	st, err := p.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Addr != "127.0.0.1:9" || st.BaseURL != "http://api" || !st.StartedAt.Equal(started) {
		t.Fatalf("state = %+v", st)
	}
	if !strings.HasSuffix(p.StatePath(), "finctld.json") {
		t.Fatalf("state path = %s", p.StatePath())
	}

	release()
	if _, err := p.Lookup(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("after release: %v, want ErrNotRunning", err)
	}
	if _, err := os.Stat(p.StatePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("state file left behind: %v", err)
	}
}

func TestClaimRefusesLiveDaemon(t *testing.T) {
	p := testProcess(t)
	release, err := p.Claim(RuntimeState{Addr: "a"})
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	defer release()

	_, err = p.Claim(RuntimeState{Addr: "b"})
	var running *AlreadyRunningError
	if !errors.As(err, &running) {
		t.Fatalf("second Claim: %v, want AlreadyRunningError", err)
	}
	if running.PID != os.Getpid() {
		t.Fatalf("PID = %d", running.PID)
	}
}

func TestStalePIDIsReplaced(t *testing.T) {
	p := testProcess(t)
	if err := os.MkdirAll(filepath.Dir(p.PIDFile), 0o750); err != nil {
		t.Fatal(err)
	}
	// Above the default Linux pid_max, so never a live process.
	if err := os.WriteFile(p.PIDFile, []byte("4194304\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Lookup(); !errors.Is(err, ErrStalePID) {
		t.Fatalf("Lookup: %v, want ErrStalePID", err)
	}
	if _, err := p.Stop(time.Second); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop: %v, want ErrNotRunning", err)
	}

	if err := os.WriteFile(p.PIDFile, []byte("4194304\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	release, err := p.Claim(RuntimeState{})
	if err != nil {
		t.Fatalf("Claim over stale pid: %v", err)
	}
	release()
}

func TestLookupRejectsGarbage(t *testing.T) {
	p := testProcess(t)
	if err := os.MkdirAll(filepath.Dir(p.PIDFile), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p.PIDFile, []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := p.Lookup()
	if err == nil || errors.Is(err, ErrNotRunning) || errors.Is(err, ErrStalePID) {
		t.Fatalf("Lookup: %v", err)
	}
}

func TestWithoutFlag(t *testing.T) {
	got := WithoutFlag([]string{"daemon", "--detach", "--addr", "x", "--detach=true"}, "--detach")
	want := []string{"daemon", "--addr", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFetchStatus(t *testing.T) {
	sessions := &fakeSessions{state: loggedIn(), ch: make(chan session.State)}
	svc := New(Config{RevalidateInterval: 5 * time.Minute, BaseURL: "http://api"}, sessions, fakeProber{})
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	st, err := FetchStatus(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if st.BaseURL != "http://api" || st.RevalidateIntervalSec != 300 {
		t.Fatalf("status = %+v", st)
	}
}

func TestFetchStatusUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	if _, err := FetchStatus(context.Background(), addr); err == nil {
		t.Fatal("expected error for closed daemon")
	}
}

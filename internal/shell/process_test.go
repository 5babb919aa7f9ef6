//go:build linux

package shell

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
	"jobshell/internal/config"
	"jobshell/internal/job"
)

func TestRealProcesses(t *testing.T) {
	for _, program := range []string{"sleep", "true"} {
		if _, err := exec.LookPath(program); err != nil {
			t.Skipf("%s not available: %v", program, err)
		}
	}

	dir := t.TempDir()
	cfg := &config.Config{
		HistoryFile:    filepath.Join(dir, "history"),
		HomeDir:        dir,
		PollInterval:   5 * time.Millisecond,
		CapacityPolicy: config.CapacityReject,
	}

	stdout := &syncBuffer{}
	s, err := New(
		cfg,
		slog.New(slog.DiscardHandler),
		WithReader(&fakeReader{}),
		WithOutput(stdout, &syncBuffer{}),
	)
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	if err := s.Execute("sleep 30 &"); err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	var pid int
	if _, err := fmt.Sscanf(stdout.String(), "[%d]\n", &pid); err != nil {
		t.Fatalf("expected pid in output '%q': %v", stdout.String(), err)
	}
	t.Cleanup(func() { unix.Kill(pid, unix.SIGKILL) })

	status := func() job.Status {
		s.childStatusChanged()

		s.mask.Lock()
		defer s.mask.Unlock()

		j, _ := s.jobs.LookupBackground(pid)
		return j.Status
	}

	if pgid, err := unix.Getpgid(pid); err != nil || pgid != pid {
		t.Errorf("expected job to lead its own group: got '%d' ('%v')", pgid, err)
	}

	unix.Kill(pid, unix.SIGSTOP)
	waitFor(t, "job to stop", func() bool { return status() == job.Stopped })

	if err := s.Execute(fmt.Sprintf("bg %d", pid)); err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	if got := status(); got != job.Running {
		t.Errorf("expected status: got '%s', want '%s'", got, job.Running)
	}

	unix.Kill(pid, unix.SIGKILL)
	waitFor(t, "job to be reaped", func() bool { return status() == job.Signaled })

	stdout.Reset()
	s.Execute("jobs")

	if want := fmt.Sprintf("%d: Terminated by signal\n", pid); stdout.String() != want {
		t.Errorf("expected output: got '%q', want '%q'", stdout.String(), want)
	}

	done := make(chan error, 1)
	go func() { done <- s.Execute("true") }()

	if err := receive(t, done); err != nil {
		t.Errorf("expected not to receive error: got '%v'", err)
	}

	if err := s.Execute("no-such-program-for-shell-tests"); !errors.Is(err, ErrSpawnFailed) {
		t.Errorf("expected error: got '%v', want '%v'", err, ErrSpawnFailed)
	}
}

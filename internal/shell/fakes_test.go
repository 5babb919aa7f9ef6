//go:build linux

package shell

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"
	"jobshell/internal/config"
	"jobshell/internal/job"
)

func exitedWith(code int) unix.WaitStatus { return unix.WaitStatus(code << 8) }

func stoppedBy(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(0x7f | int(sig)<<8) }

func killedBy(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(sig) }

const continuedStatus = unix.WaitStatus(0xffff)

// fakeWaiter stands in for wait4. Tests queue status changes per pid.
type fakeWaiter struct {
	mu      sync.Mutex
	pending map[int][]unix.WaitStatus
	errs    map[int]error
	reaped  map[int]bool
}

func newFakeWaiter() *fakeWaiter {
	return &fakeWaiter{
		pending: make(map[int][]unix.WaitStatus),
		errs:    make(map[int]error),
		reaped:  make(map[int]bool),
	}
}

func (w *fakeWaiter) push(pid int, ws unix.WaitStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[pid] = append(w.pending[pid], ws)
}

func (w *fakeWaiter) fail(pid int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.errs[pid] = err
}

func (w *fakeWaiter) wait(pid int, ws *unix.WaitStatus, options int, _ *unix.Rusage) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err, ok := w.errs[pid]; ok {
		return -1, err
	}

	if w.reaped[pid] {
		return -1, unix.ECHILD
	}

	q := w.pending[pid]
	if len(q) == 0 {
		if options&unix.WNOHANG != 0 {
			return 0, nil
		}
		return -1, unix.ECHILD
	}

	*ws = q[0]
	w.pending[pid] = q[1:]

	if ws.Exited() || ws.Signaled() {
		w.reaped[pid] = true
	}

	return pid, nil
}

type killCall struct {
	pid int
	sig unix.Signal
}

type fakeProcess struct {
	mu         sync.Mutex
	kills      []killCall
	setpgidErr error
	setpgids   [][2]int
}

func (p *fakeProcess) Kill(pid int, sig unix.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.kills = append(p.kills, killCall{pid, sig})

	return nil
}

func (p *fakeProcess) Setpgid(pid, pgid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.setpgids = append(p.setpgids, [2]int{pid, pgid})

	return p.setpgidErr
}

func (p *fakeProcess) sent(sig unix.Signal) []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pids []int
	for _, k := range p.kills {
		if k.sig == sig {
			pids = append(pids, k.pid)
		}
	}

	return pids
}

type spawnCall struct {
	argv     []string
	detached bool
}

type fakeSpawner struct {
	mu      sync.Mutex
	nextPID int
	err     error
	calls   []spawnCall
}

func (sp *fakeSpawner) Spawn(argv []string, detached bool) (int, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	sp.calls = append(sp.calls, spawnCall{argv, detached})

	if sp.err != nil {
		return 0, sp.err
	}

	pid := sp.nextPID
	sp.nextPID++

	return pid, nil
}

func (sp *fakeSpawner) count() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	return len(sp.calls)
}

type fakeReader struct {
	lines []string
}

func (r *fakeReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}

	line := r.lines[0]
	r.lines = r.lines[1:]

	return line, nil
}

func (r *fakeReader) Close() error { return nil }

// syncBuffer is a bytes.Buffer safe for the dispatcher and the test to
// share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf.Reset()
}

type testShell struct {
	*Shell
	waiter  *fakeWaiter
	process *fakeProcess
	spawner *fakeSpawner
	stdout  *syncBuffer
	stderr  *syncBuffer

	exitMu    sync.Mutex
	exitCodes []int
}

func newTestShell(t *testing.T, policy config.CapacityPolicy, lines ...string) *testShell {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		HistoryFile:    filepath.Join(dir, "history"),
		HomeDir:        dir,
		HistorySize:    100,
		Prompt:         "> ",
		PollInterval:   5 * time.Millisecond,
		CapacityPolicy: policy,
		LogLevel:       "debug",
	}

	ts := &testShell{
		waiter:  newFakeWaiter(),
		process: &fakeProcess{},
		spawner: &fakeSpawner{nextPID: 1000},
		stdout:  &syncBuffer{},
		stderr:  &syncBuffer{},
	}

	s, err := New(
		cfg,
		slog.New(slog.DiscardHandler),
		WithReader(&fakeReader{lines: lines}),
		WithOutput(ts.stdout, ts.stderr),
		WithProcess(ts.process),
		WithSpawner(ts.spawner),
		WithResolver(job.NewResolverWithWait(ts.waiter.wait)),
		WithExit(func(code int) {
			ts.exitMu.Lock()
			defer ts.exitMu.Unlock()
			ts.exitCodes = append(ts.exitCodes, code)
		}),
	)
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	ts.Shell = s

	return ts
}

func (ts *testShell) background(pid int) (job.Job, bool) {
	ts.mask.Lock()
	defer ts.mask.Unlock()

	return ts.jobs.LookupBackground(pid)
}

func (ts *testShell) foreground() (job.Job, bool) {
	ts.mask.Lock()
	defer ts.mask.Unlock()

	return ts.jobs.Foreground()
}

func (ts *testShell) backgroundJobs() []job.Job {
	ts.mask.Lock()
	defer ts.mask.Unlock()

	return ts.jobs.ListBackground()
}

// executeAsync runs line on its own goroutine, as the main flow would, and
// returns a channel with its result.
func (ts *testShell) executeAsync(line string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- ts.Execute(line)
	}()

	return done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func receive(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for command to return")
		return nil
	}
}

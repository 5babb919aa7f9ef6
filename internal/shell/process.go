package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

var ErrSpawnFailed = errors.New("cannot run command")

// Process sends control signals to child processes.
type Process interface {
	Kill(pid int, sig unix.Signal) error
	Setpgid(pid, pgid int) error
}

// Spawner starts a program and returns its pid. A detached program leads
// its own process group. The caller becomes responsible for reaping it.
type Spawner interface {
	Spawn(argv []string, detached bool) (int, error)
}

type osProcess struct{}

func (osProcess) Kill(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

func (osProcess) Setpgid(pid, pgid int) error {
	return unix.Setpgid(pid, pgid)
}

type execSpawner struct {
	stdin          *os.File
	stdout, stderr *os.File
}

func (e execSpawner) Spawn(argv []string, detached bool) (int, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr

	if detached {
		// Background jobs read from /dev/null.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	} else {
		cmd.Stdin = e.stdin
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}

	pid := cmd.Process.Pid

	// The job table reaps the process with wait4; drop the os.Process handle
	// so nothing else waits on it.
	cmd.Process.Release()

	return pid, nil
}

package job

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Flags select what a Resolve call waits for. They map directly onto the
// wait4(2) options.
type Flags int

const (
	// Block is the zero value: wait until the process terminates.
	Block           Flags = 0
	NoHang          Flags = unix.WNOHANG
	ReportStopped   Flags = unix.WUNTRACED
	ReportContinued Flags = unix.WCONTINUED
)

// WaitFunc has the signature of unix.Wait4.
type WaitFunc func(
	pid int,
	wstatus *unix.WaitStatus,
	options int,
	rusage *unix.Rusage,
) (int, error)

// Resolver translates the outcome of waiting on a process into a Status.
// A successful terminal Resolve consumes the process' wait status, i.e. it
// reaps the process.
type Resolver struct {
	wait WaitFunc
}

// NewResolver returns a Resolver backed by wait4(2).
func NewResolver() *Resolver {
	return NewResolverWithWait(unix.Wait4)
}

// NewResolverWithWait returns a Resolver that calls wait instead of wait4(2).
func NewResolverWithWait(wait WaitFunc) *Resolver {
	return &Resolver{wait: wait}
}

// Resolve waits on pid according to flags and classifies the outcome. It
// only blocks when flags does not include NoHang.
//
// A pid that is not a child of this process resolves to NotFound. Any other
// wait failure is returned as an error wrapping ErrWaitFailed, together with
// NoChange, and must not be stored.
func (r *Resolver) Resolve(pid int, flags Flags) (Status, error) {
	var (
		ws   unix.WaitStatus
		wpid int
		err  error
	)

	for {
		wpid, err = r.wait(pid, &ws, int(flags), nil)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}

	switch {
	case errors.Is(err, unix.ECHILD):
		return NotFound, nil
	case err != nil:
		return NoChange, fmt.Errorf("%w: pid %d: %w", ErrWaitFailed, pid, err)
	case wpid == 0 && flags&NoHang != 0:
		return NoChange, nil
	case ws.Exited():
		return Exited, nil
	case flags&ReportStopped != 0 && ws.Stopped():
		return Stopped, nil
	case ws.Signaled():
		return Signaled, nil
	case flags&ReportContinued != 0 && ws.Continued():
		return Continued, nil
	default:
		return NotFound, nil
	}
}

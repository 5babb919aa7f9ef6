package shell

import (
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"jobshell/internal/job"
)

// terminatedExitCode is the conventional status of a process ended by
// SIGTERM.
const terminatedExitCode = 128 + int(unix.SIGTERM)

// signalBufferSize keeps SIGCHLD bursts from filling the channel while the
// dispatcher waits for the job mask.
const signalBufferSize = 64

// setupSignalHandling starts the dispatcher. SIGTERM has a channel of its
// own so that a backlog of other signals can never cause it to be dropped.
func (s *Shell) setupSignalHandling() {
	s.signalChan = make(chan os.Signal, signalBufferSize)
	s.termChan = make(chan os.Signal, 1)
	s.done = make(chan struct{})

	signal.Notify(s.signalChan, unix.SIGCHLD, unix.SIGTSTP, unix.SIGINT)
	signal.Notify(s.termChan, unix.SIGTERM)

	go s.handleSignals(s.signalChan, s.termChan, s.done)
}

func (s *Shell) stopSignalHandling() {
	signal.Stop(s.signalChan)
	signal.Stop(s.termChan)
	close(s.done)
}

func (s *Shell) handleSignals(signals, term <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig := <-term:
			s.handleSignal(sig)
		case sig := <-signals:
			s.handleSignal(sig)
		}
	}
}

func (s *Shell) handleSignal(sig os.Signal) {
	switch sig {
	case unix.SIGCHLD:
		s.childStatusChanged()
	case unix.SIGTSTP:
		s.stopRequested()
	case unix.SIGTERM:
		s.terminateRequested()
	case unix.SIGINT:
		// The foreground job shares the terminal's process group and gets
		// its own SIGINT; the shell only has to survive it.
		s.logger.Debug("interrupt received")
	}
}

// childStatusChanged polls every live tracked job for a status change. A
// stopped foreground job is moved to the background. Terminated jobs are
// reaped here but stay in the table until listed by jobs.
func (s *Shell) childStatusChanged() {
	s.mask.Lock()
	defer s.mask.Unlock()

	if fg, ok := s.jobs.Foreground(); ok && !fg.Status.Terminal() {
		status, err := s.resolver.Resolve(fg.PID, job.NoHang|job.ReportStopped)
		if s.apply(fg.PID, status, err) && status == job.Stopped {
			s.suspendForeground()
		}
	}

	for _, j := range s.jobs.ListBackground() {
		if j.Status.Terminal() {
			continue
		}

		status, err := s.resolver.Resolve(j.PID, job.NoHang|job.ReportStopped|job.ReportContinued)
		s.apply(j.PID, status, err)
	}

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// apply stores a resolved status and reports whether the table changed.
func (s *Shell) apply(pid int, status job.Status, err error) bool {
	if err != nil {
		s.logger.Warn("cannot query job status", "pid", pid, "err", err)
		return false
	}

	if status == job.NoChange {
		return false
	}

	if err := s.jobs.UpdateStatus(pid, status); err != nil {
		s.logger.Debug("status update rejected", "pid", pid, "status", status, "err", err)
		return false
	}

	s.logger.Debug("job status changed", "pid", pid, "status", status)

	return true
}

// suspendForeground moves the stopped foreground job into the background
// table. If the table is full the job is resumed and stays in the
// foreground. The caller must hold the mask.
func (s *Shell) suspendForeground() {
	fg, _ := s.jobs.Foreground()

	if s.jobs.Full() {
		if err := s.process.Kill(fg.SignalTarget(), unix.SIGCONT); err != nil {
			s.logger.Warn("cannot resume foreground job", "pid", fg.PID, "err", err)
		}
		if err := s.jobs.UpdateStatus(fg.PID, job.Running); err != nil {
			s.logger.Debug("status update rejected", "pid", fg.PID, "err", err)
		}
		s.notice(fmt.Sprintf("[%d] cannot be stopped: %v", fg.PID, job.ErrCapacityExceeded))
		return
	}

	s.jobs.ClearForeground()
	if err := s.jobs.InsertBackground(fg); err != nil {
		s.logger.Error("cannot move stopped job to background", "pid", fg.PID, "err", err)
		return
	}

	s.notice(fmt.Sprintf("[%d] %s", fg.PID, job.Stopped))
}

// stopRequested asks the foreground job to stop. The transition is observed
// later by childStatusChanged.
func (s *Shell) stopRequested() {
	s.mask.Lock()
	fg, ok := s.jobs.Foreground()
	s.mask.Unlock()

	if !ok {
		return
	}

	if err := s.process.Kill(fg.SignalTarget(), unix.SIGTSTP); err != nil {
		s.logger.Warn("cannot stop foreground job", "pid", fg.PID, "err", err)
	}
}

func (s *Shell) terminateRequested() {
	s.cleanup()
	s.reader.Close()
	s.exit(terminatedExitCode)
}

package shell

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"golang.org/x/sys/unix"
	"jobshell/internal/config"
	"jobshell/internal/job"
)

const defaultPollInterval = 100 * time.Millisecond

// backgroundRequest reports whether input ends with an unquoted "&" and
// returns the line without it. The "&" may be a word of its own or glued to
// the last word. A quoted or escaped "&" is part of an argument.
func backgroundRequest(input string) (string, bool) {
	head, ok := strings.CutSuffix(strings.TrimSpace(input), "&")
	if !ok {
		return input, false
	}

	// An escaped "&" leaves a dangling backslash behind, which does not split.
	if _, err := shellquote.Split(head); err != nil {
		return input, false
	}

	return head, true
}

func (s *Shell) runExternal(argv []string, detached bool) error {
	pid, err := s.spawn(argv, detached)
	if errors.Is(err, job.ErrCapacityExceeded) && s.config.CapacityPolicy == config.CapacityFatal {
		return exitError{code: 1, err: err}
	} else if err != nil {
		return err
	}

	if detached {
		fmt.Fprintf(s.out, "[%d]\n", pid)
		return nil
	}

	s.waitForeground(pid)

	return nil
}

// spawn starts argv and registers it in the job table. The mask is held
// from before the process starts until it is tracked, so the dispatcher
// never sees an untracked child change state.
func (s *Shell) spawn(argv []string, detached bool) (int, error) {
	s.mask.Lock()
	defer s.mask.Unlock()

	if detached && s.jobs.Full() {
		return 0, fmt.Errorf("%s: %w", argv[0], job.ErrCapacityExceeded)
	}

	if _, busy := s.jobs.Foreground(); !detached && busy {
		return 0, job.ErrForegroundBusy
	}

	pid, err := s.spawner.Spawn(argv, detached)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", argv[0], err)
	}

	j := job.New(pid, detached)
	if detached {
		err = s.jobs.InsertBackground(j)
	} else {
		err = s.jobs.SetForeground(j)
	}

	if err != nil {
		// Only reachable if the OS hands out a pid we still track.
		if killErr := s.process.Kill(pid, unix.SIGKILL); killErr != nil {
			s.logger.Debug("cannot kill untracked process", "pid", pid, "err", killErr)
		}
		return 0, fmt.Errorf("track %d: %w", pid, err)
	}

	s.logger.Debug("job started", "pid", pid, "detached", detached)

	return pid, nil
}

// waitForeground blocks until the foreground job pid is no longer Running.
// It does not wait on the process itself: it watches the job table, which
// the dispatcher updates. Every poll interval it rescans child status, so a
// lost or coalesced SIGCHLD cannot stall it.
func (s *Shell) waitForeground(pid int) {
	interval := s.config.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.mask.Lock()
		fg, ok := s.jobs.Foreground()
		if !ok || fg.PID != pid {
			// Stopped and moved to the background by the dispatcher.
			s.mask.Unlock()
			return
		}

		if fg.Status != job.Running {
			s.jobs.ClearForeground()
			s.mask.Unlock()
			s.logger.Debug("foreground job finished", "pid", pid, "status", fg.Status)
			return
		}
		s.mask.Unlock()

		select {
		case <-s.changed:
		case <-ticker.C:
			s.childStatusChanged()
		}
	}
}

// listJobs prints every tracked job, then forgets the background jobs whose
// terminal status has now been reported.
func (s *Shell) listJobs() error {
	s.mask.Lock()
	var jobs []job.Job
	if fg, ok := s.jobs.Foreground(); ok {
		jobs = append(jobs, fg)
	}
	jobs = append(jobs, s.jobs.ListBackground()...)
	removed := s.jobs.RemoveTerminal()
	s.mask.Unlock()

	for _, j := range jobs {
		fmt.Fprintf(s.out, "%d: %s\n", j.PID, j.Status)
	}

	for _, j := range removed {
		s.logger.Debug("job removed", "pid", j.PID, "status", j.Status)
	}

	return nil
}

// continuable returns the background job pid if it can be continued. The
// caller must hold the mask.
func (s *Shell) continuable(pid int) (job.Job, error) {
	j, ok := s.jobs.LookupBackground(pid)
	if !ok {
		return job.Job{}, job.ErrNotTracked
	}

	if j.Status != job.Stopped {
		return job.Job{}, job.ErrNotContinuable
	}

	return j, nil
}

func (s *Shell) foregroundJob(args []string) error {
	pid, err := parsePID("fg", args)
	if err != nil {
		return err
	}

	s.mask.Lock()
	j, err := s.continuable(pid)
	if err == nil {
		err = s.promote(j)
	}
	s.mask.Unlock()

	if err != nil {
		return fmt.Errorf("fg: %w", err)
	}

	s.waitForeground(pid)

	return nil
}

// promote continues the stopped background job j and installs it as the
// foreground job. The caller must hold the mask.
func (s *Shell) promote(j job.Job) error {
	if _, busy := s.jobs.Foreground(); busy {
		return job.ErrForegroundBusy
	}

	if err := s.process.Kill(j.SignalTarget(), unix.SIGCONT); err != nil {
		return fmt.Errorf("continue %d: %w", j.PID, err)
	}

	s.jobs.RemoveBackground(j.PID)
	j.Status = job.Running

	return s.jobs.SetForeground(j)
}

func (s *Shell) backgroundJob(args []string) error {
	pid, err := parsePID("bg", args)
	if err != nil {
		return err
	}

	s.mask.Lock()
	defer s.mask.Unlock()

	j, err := s.continuable(pid)
	if err != nil {
		return fmt.Errorf("bg: %w", err)
	}

	if !j.GroupLeader() {
		if err := s.process.Setpgid(pid, pid); err != nil {
			s.logger.Warn("cannot move job into its own process group", "pid", pid, "err", err)
		} else {
			if err := s.jobs.SetGroup(pid, pid); err != nil {
				s.logger.Debug("cannot record process group", "pid", pid, "err", err)
			}
			j.PGID = pid
		}
	}

	if err := s.process.Kill(j.SignalTarget(), unix.SIGCONT); err != nil {
		return fmt.Errorf("bg: continue %d: %w", pid, err)
	}

	return s.jobs.UpdateStatus(pid, job.Running)
}

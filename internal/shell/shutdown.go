package shell

import (
	"golang.org/x/sys/unix"
	"jobshell/internal/job"
)

// cleanup sends SIGTERM to every live background job. It runs at most once,
// whether shutdown comes from exit, end of input or SIGTERM. The foreground
// job is left to the terminal's process group teardown.
func (s *Shell) cleanup() {
	s.cleanupOnce.Do(func() {
		s.mask.Lock()
		defer s.mask.Unlock()

		for _, j := range s.jobs.ListBackground() {
			if j.Status.Terminal() {
				continue
			}

			if err := s.process.Kill(j.SignalTarget(), unix.SIGTERM); err != nil {
				s.logger.Warn("cannot terminate job", "pid", j.PID, "err", err)
				continue
			}

			// A stopped job only acts on SIGTERM once continued.
			if j.Status == job.Stopped {
				if err := s.process.Kill(j.SignalTarget(), unix.SIGCONT); err != nil {
					s.logger.Debug("cannot continue stopped job", "pid", j.PID, "err", err)
				}
			}
		}
	})
}

package shell

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrUsage = errors.New("usage")

// exitError asks Run to clean up and return code.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("exit %d: %v", e.code, e.err)
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e exitError) Unwrap() error { return e.err }

func (s *Shell) executeBuiltin(args []string) (bool, error) {
	switch args[0] {
	case "cd":
		return true, s.changeDirectory(args[1:])
	case "exit":
		return true, exitError{code: 0}
	case "history":
		return true, s.showHistory(args[1:])
	case "jobs":
		return true, s.listJobs()
	case "fg":
		return true, s.foregroundJob(args[1:])
	case "bg":
		return true, s.backgroundJob(args[1:])
	default:
		return false, nil
	}
}

// changeDirectory implements cd [dir]. With no argument it goes to the
// configured home directory, "-" returns to the previous directory and a
// leading "~" names the home directory.
func (s *Shell) changeDirectory(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: cd [dir]", ErrUsage)
	}

	target := s.config.HomeDir
	if len(args) == 1 {
		target = args[0]
	}

	switch {
	case target == "-":
		if s.prevDir == "" {
			return errors.New("cd: no previous directory")
		}
		target = s.prevDir
		fmt.Fprintln(s.out, target)
	case target == "~":
		target = s.config.HomeDir
	case strings.HasPrefix(target, "~/"):
		target = filepath.Join(s.config.HomeDir, target[2:])
	}

	wd, err := os.Getwd()
	if err != nil {
		s.logger.Debug("cannot read working directory", "err", err)
	}

	if err := os.Chdir(target); err != nil {
		return fmt.Errorf("cd: %w", err)
	}

	s.prevDir = wd
	s.logger.Debug("directory changed", "from", wd, "to", target)

	return nil
}

// showHistory implements history [n], listing the last n entries or all of
// them. Entries keep their position in the full history as their number.
func (s *Shell) showHistory(args []string) error {
	entries := s.history.GetAll()

	first := 0
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("%w: history [n]", ErrUsage)
		}
		first = max(len(entries)-n, 0)
	default:
		return fmt.Errorf("%w: history [n]", ErrUsage)
	}

	for i := first; i < len(entries); i++ {
		fmt.Fprintf(s.out, "%5d  %s\n", i+1, entries[i])
	}

	return nil
}

// parsePID validates the argument list of fg and bg.
func parsePID(name string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s <pid>", ErrUsage, name)
	}

	pid, err := strconv.Atoi(args[0])
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %s <pid>", ErrUsage, name)
	}

	return pid, nil
}

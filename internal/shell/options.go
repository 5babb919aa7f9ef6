package shell

import (
	"io"

	"jobshell/internal/job"
)

// LineReader yields one line of input per call and io.EOF at end of input.
// *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

type Option func(*Shell)

func WithReader(r LineReader) Option {
	return func(s *Shell) { s.reader = r }
}

func WithOutput(out, errOut io.Writer) Option {
	return func(s *Shell) {
		s.out = out
		s.errOut = errOut
	}
}

func WithProcess(p Process) Option {
	return func(s *Shell) { s.process = p }
}

func WithSpawner(sp Spawner) Option {
	return func(s *Shell) { s.spawner = sp }
}

func WithResolver(r *job.Resolver) Option {
	return func(s *Shell) { s.resolver = r }
}

// WithExit replaces os.Exit for the signal-driven shutdown path.
func WithExit(exit func(code int)) Option {
	return func(s *Shell) { s.exit = exit }
}

package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"jobshell/internal/config"
	"jobshell/internal/history"
	"jobshell/internal/job"
)

const noticeBufferSize = 32

type Shell struct {
	config  *config.Config
	logger  *slog.Logger
	history *history.History
	reader  LineReader
	out     io.Writer
	errOut  io.Writer

	// prevDir is the working directory before the last successful cd.
	prevDir string

	// mask guards jobs. The main flow holds it for every multi-step change
	// to the table; the signal dispatcher holds it for every handler.
	mask     sync.Mutex
	jobs     *job.Table
	resolver *job.Resolver
	process  Process
	spawner  Spawner

	// changed is signalled after the dispatcher has applied status updates.
	changed chan struct{}

	// notices holds user-facing messages queued by the dispatcher and
	// printed by the main flow before the next prompt.
	notices chan string

	signalChan  chan os.Signal
	termChan    chan os.Signal
	done        chan struct{}
	cleanupOnce sync.Once
	exit        func(code int)
}

func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Shell, error) {
	hist, err := history.New(cfg.HistoryFile, cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("error initializing history: %w", err)
	}

	s := &Shell{
		config:   cfg,
		logger:   logger,
		history:  hist,
		out:      os.Stdout,
		errOut:   os.Stderr,
		jobs:     job.NewTable(),
		resolver: job.NewResolver(),
		process:  osProcess{},
		spawner:  execSpawner{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr},
		changed:  make(chan struct{}, 1),
		notices:  make(chan string, noticeBufferSize),
		exit:     os.Exit,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.reader == nil {
		rl, err := readline.NewEx(&readline.Config{
			Prompt: cfg.Prompt,
		})
		if err != nil {
			return nil, fmt.Errorf("error initializing readline: %w", err)
		}

		for _, line := range hist.GetAll() {
			rl.SaveHistory(line)
		}

		s.reader = rl
	}

	return s, nil
}

// Run reads and executes lines until end of input or exit, and returns the
// process exit code.
func (s *Shell) Run() int {
	s.setupSignalHandling()
	defer s.stopSignalHandling()
	defer s.reader.Close()

	for {
		s.flushNotices()

		line, err := s.reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			fmt.Fprintf(s.errOut, "Error: %v\n", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.history.Add(line); err != nil {
			s.logger.Warn("failed to save history", "err", err)
		}

		err = s.Execute(line)

		var exitErr exitError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				fmt.Fprintf(s.errOut, "Error: %v\n", exitErr.err)
			}
			s.cleanup()
			return exitErr.code
		} else if err != nil {
			fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}
	}

	s.cleanup()

	return 0
}

// Execute runs a single input line.
func (s *Shell) Execute(input string) error {
	line, detached := backgroundRequest(input)

	args, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("error parsing command: %w", err)
	}

	if len(args) == 0 {
		if detached {
			return fmt.Errorf("%w: <command> &", ErrUsage)
		}
		return nil
	}

	if ok, err := s.executeBuiltin(args); ok {
		return err
	}

	return s.runExternal(args, detached)
}

func (s *Shell) flushNotices() {
	for {
		select {
		case n := <-s.notices:
			fmt.Fprintln(s.out, n)
		default:
			return
		}
	}
}

// notice queues msg for the main flow without blocking. When the queue is
// full the message is dropped.
func (s *Shell) notice(msg string) {
	select {
	case s.notices <- msg:
	default:
		s.logger.Debug("notice dropped", "msg", msg)
	}
}

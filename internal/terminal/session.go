// internal/terminal/session.go
package terminal

import (
	"io"
	"os"
	"sync"

	gopty "github.com/aymanbagabas/go-pty"
)

// Session is one interactive shell bound to a pseudo terminal
type Session struct {
	ID    string
	Cwd   string
	Shell string
	Rows  int
	Cols  int

	pty    gopty.Pty
	cmd    *gopty.Cmd
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newSession(id, cwd, shell string, rows, cols int) *Session {
	if shell == "" {
		shell = defaultShell()
	}
	return &Session{
		ID:    id,
		Cwd:   cwd,
		Shell: shell,
		Rows:  rows,
		Cols:  cols,
		done:  make(chan struct{}),
	}
}

func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := gopty.New()
	if err != nil {
		return err
	}
	if err := p.Resize(s.Cols, s.Rows); err != nil {
		p.Close()
		return err
	}

	cmd := p.Command(s.Shell, "-i")
	cmd.Dir = s.Cwd
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	if err := cmd.Start(); err != nil {
		p.Close()
		return err
	}

	s.pty = p
	s.cmd = cmd
	return nil
}

// Write sends keystrokes to the shell
func (s *Session) Write(data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pty == nil {
		return io.ErrClosedPipe
	}
	_, err := s.pty.Write([]byte(data))
	return err
}

func (s *Session) read(buf []byte) (int, error) {
	if s.pty == nil {
		return 0, io.EOF
	}
	return s.pty.Read(buf)
}

// Resize changes the terminal dimensions
func (s *Session) Resize(rows, cols int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pty == nil {
		return nil
	}
	s.Rows = rows
	s.Cols = cols
	return s.pty.Resize(cols, rows)
}

// Close ends the session. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)

	if s.pty != nil {
		return s.pty.Close()
	}
	return nil
}

// Done is closed when the session ends
func (s *Session) Done() <-chan struct{} {
	return s.done
}

var (
	shellOnce   sync.Once
	shellCached string
)

// defaultShell resolves $SHELL, falling back through common locations
func defaultShell() string {
	shellOnce.Do(func() {
		if shell := os.Getenv("SHELL"); shell != "" {
			if _, err := os.Stat(shell); err == nil {
				shellCached = shell
				return
			}
		}
		for _, shell := range []string{"/bin/zsh", "/bin/bash", "/usr/bin/bash", "/bin/sh"} {
			if _, err := os.Stat(shell); err == nil {
				shellCached = shell
				return
			}
		}
		shellCached = "/bin/sh"
	})
	return shellCached
}

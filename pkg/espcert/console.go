package espcert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Console line markers
const (
	DefaultPrompt = "esp32> "

	failedMarker       = "Command returned non-zero error code"
	unrecognizedMarker = "Unrecognized command"
)

// DefaultCommandTimeout bounds the wait for the prompt after a command
const DefaultCommandTimeout = 2 * time.Second

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Console runs commands on an ESP-IDF REPL. One goroutine reads the
// connection and feeds lines to whichever command is waiting.
type Console struct {
	rw      io.ReadWriteCloser
	prompt  string
	timeout time.Duration

	lines chan string

	errMu   sync.Mutex
	readErr error

	cmdMu sync.Mutex
}

// ConsoleOption configures a Console
type ConsoleOption func(*Console)

// WithPrompt overrides the REPL prompt
func WithPrompt(prompt string) ConsoleOption {
	return func(c *Console) {
		c.prompt = prompt
	}
}

// WithCommandTimeout overrides DefaultCommandTimeout
func WithCommandTimeout(d time.Duration) ConsoleOption {
	return func(c *Console) {
		c.timeout = d
	}
}

// NewConsole starts reading rw
func NewConsole(rw io.ReadWriteCloser, opts ...ConsoleOption) *Console {
	c := &Console{
		rw:      rw,
		prompt:  DefaultPrompt,
		timeout: DefaultCommandTimeout,
		lines:   make(chan string, 64),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c
}

// splitLines yields newline-terminated lines and a trailing prompt, which
// the REPL prints without a newline.
func (c *Console) splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimRight(data[:i], "\r"), nil
	}
	if c.isPrompt(string(data)) {
		return len(data), data, nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (c *Console) isPrompt(line string) bool {
	p := strings.TrimSpace(c.prompt)
	return p != "" && strings.HasSuffix(strings.TrimSpace(stripANSI(line)), p)
}

func (c *Console) readLoop() {
	defer close(c.lines)

	scanner := bufio.NewScanner(c.rw)
	scanner.Split(c.splitLines)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	c.errMu.Lock()
	c.readErr = err
	c.errMu.Unlock()
}

func (c *Console) closedError() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
}

// drain discards output that arrived between commands
func (c *Console) drain() {
	for {
		select {
		case _, ok := <-c.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Exec sends command and collects its output up to the next prompt. The
// command echo and blank lines are dropped.
func (c *Console) Exec(ctx context.Context, command string) ([]string, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.drain()

	if _, err := io.WriteString(c.rw, command+"\n"); err != nil {
		return nil, fmt.Errorf("write %q: %w", command, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var output []string
	var cmdErr error
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return output, fmt.Errorf("%w: %q", ErrTimeout, command)
			}
			return output, ctx.Err()

		case line, ok := <-c.lines:
			if !ok {
				return output, c.closedError()
			}
			if c.isPrompt(line) {
				return output, cmdErr
			}

			text := strings.TrimSpace(stripANSI(line))
			if text == "" || text == command {
				continue
			}
			switch {
			case strings.Contains(text, failedMarker):
				cmdErr = fmt.Errorf("%w: %q: %s", ErrCommandFailed, command, text)
			case strings.Contains(text, unrecognizedMarker):
				cmdErr = fmt.Errorf("%w: %q", ErrUnrecognized, command)
			}
			output = append(output, text)
		}
	}
}

// Close closes the connection; the reader goroutine exits on the read error
func (c *Console) Close() error {
	return c.rw.Close()
}

// Package console is the operator line sink of a test run: lines go to the
// terminal and, optionally, to a size-rotated log file.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Sink implements rftest.Console
type Sink struct {
	mu    sync.Mutex
	out   io.Writer
	file  io.WriteCloser
	muted bool
	now   func() time.Time
}

// New writes to out only
func New(out io.Writer) *Sink {
	return &Sink{out: out, now: time.Now}
}

// NewWithFile also appends timestamped lines to a rotating file
func NewWithFile(out io.Writer, opts FileOptions) *Sink {
	s := New(out)
	if opts.Path != "" {
		s.file = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
	}
	return s
}

// Printf writes one formatted line
func (s *Sink) Printf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.muted && s.out != nil {
		io.WriteString(s.out, line)
	}
	if s.file != nil {
		fmt.Fprintf(s.file, "%s %s", s.now().Format(time.RFC3339Nano), line)
	}
}

// Mute stops terminal output while another view owns the screen; the log
// file keeps receiving lines.
func (s *Sink) Mute(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

// Tee returns a sink printing to both s and w, where w is usually a TUI
func (s *Sink) Tee(w func(line string)) *TeeSink {
	return &TeeSink{sink: s, fn: w}
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// TeeSink forwards each line to a callback as well as the Sink
type TeeSink struct {
	sink *Sink
	fn   func(line string)
}

func (t *TeeSink) Printf(format string, args ...interface{}) {
	t.sink.Printf(format, args...)
	t.fn(fmt.Sprintf(format, args...))
}

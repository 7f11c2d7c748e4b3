package skip

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"tgreach/pkg/logger"
)

// DefaultKey aborts the current scrape when pressed during a cycle.
const DefaultKey = 't'

// Listener watches for a single-key press on the controlling terminal.
// The terminal is switched to raw mode only for the duration of a Wait,
// so one keystroke arrives without a newline. When stdin is not a
// terminal the listener is inert and Wait blocks until cancellation.
type Listener struct {
	key     byte
	in      io.Reader
	fd      int
	enabled bool
	rawMode bool
	log     logger.Logger

	once sync.Once
	keys chan byte
}

// Option customizes a Listener.
type Option func(*Listener)

// WithInput replaces the input stream, for tests. The replacement is
// read as-is, without raw-mode handling.
func WithInput(r io.Reader) Option {
	return func(l *Listener) {
		l.in = r
		l.enabled = true
		l.rawMode = false
	}
}

// New creates a Listener for the given key on stdin.
func New(key byte, log logger.Logger, opts ...Option) *Listener {
	fd := int(os.Stdin.Fd())
	l := &Listener{
		key:     key,
		in:      os.Stdin,
		fd:      fd,
		enabled: term.IsTerminal(fd),
		rawMode: true,
		log:     log,
		keys:    make(chan byte, 8),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enabled reports whether key presses can actually arrive.
func (l *Listener) Enabled() bool {
	return l.enabled
}

// Wait blocks until the skip key is pressed or the context is done. It
// returns nil on a key press and the context error otherwise.
func (l *Listener) Wait(ctx context.Context) error {
	if !l.enabled {
		<-ctx.Done()
		return ctx.Err()
	}

	if l.rawMode {
		old, err := term.MakeRaw(l.fd)
		if err != nil {
			l.log.WithError(err).Warn("raw mode unavailable, skip key disabled")
			<-ctx.Done()
			return ctx.Err()
		}
		defer term.Restore(l.fd, old)
	}

	l.once.Do(func() { go l.pump() })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-l.keys:
			if !ok {
				<-ctx.Done()
				return ctx.Err()
			}
			if b == l.key || b == l.key-('a'-'A') {
				return nil
			}
		}
	}
}

// pump reads stdin byte by byte for the lifetime of the process. Reads
// on a terminal cannot be interrupted, so the goroutine is started once
// and shared across Wait calls.
func (l *Listener) pump() {
	buf := make([]byte, 1)
	for {
		n, err := l.in.Read(buf)
		if n == 1 {
			select {
			case l.keys <- buf[0]:
			default:
			}
		}
		if err != nil {
			close(l.keys)
			return
		}
	}
}

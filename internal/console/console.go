// Package console serializes status messages and file errors from concurrent
// workers onto the terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

type kind int

const (
	kindInfo kind = iota
	kindError
)

type message struct {
	kind kind
	text string
}

// Printer is the single ordered message channel of a run. Info messages go to
// the output writer, errors to the error writer. Messages are written whole
// and in the order they were sent.
type Printer struct {
	out      io.Writer
	errOut   io.Writer
	colorize bool

	mu       sync.RWMutex
	closed   bool
	messages chan message
	done     chan struct{}
}

// NewPrinter starts a printer writing to stdout and stderr. Errors are colored
// when stderr is a terminal.
func NewPrinter() *Printer {
	return New(os.Stdout, os.Stderr, ColorEnabled())
}

// ColorEnabled reports whether error output should be colored.
func ColorEnabled() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) && !color.NoColor
}

// New starts a printer on the given writers.
func New(out, errOut io.Writer, colorize bool) *Printer {
	p := &Printer{
		out:      out,
		errOut:   errOut,
		colorize: colorize,
		messages: make(chan message, 64),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Printer) run() {
	defer close(p.done)
	for msg := range p.messages {
		switch msg.kind {
		case kindError:
			fmt.Fprintln(p.errOut, msg.text)
		default:
			fmt.Fprintln(p.out, msg.text)
		}
	}
}

func (p *Printer) send(msg message) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	p.messages <- msg
}

// Info queues a status line or a rendered report.
func (p *Printer) Info(text string) {
	p.send(message{kind: kindInfo, text: text})
}

// Error queues a formatted error line.
func (p *Printer) Error(err error) {
	if err == nil {
		return
	}
	p.send(message{kind: kindError, text: FormatError(err, p.colorize)})
}

// Close flushes the queued messages. Messages sent afterwards are dropped.
func (p *Printer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.messages)
	}
	p.mu.Unlock()
	<-p.done
}

// FormatError renders err as "error: <err>", followed by its root cause when
// the cause is not already the whole message.
func FormatError(err error, colorize bool) string {
	prefix := color.New(color.FgRed, color.Bold)
	if colorize {
		prefix.EnableColor()
	} else {
		prefix.DisableColor()
	}

	surface := err.Error()
	cause := yerrors.RootCause(err)
	if cause != nil && cause.Error() != surface {
		return fmt.Sprintf("%s %s: %s", prefix.Sprint("error:"), surface, cause.Error())
	}
	return fmt.Sprintf("%s %s", prefix.Sprint("error:"), surface)
}

// Package cli is the plain line-oriented front end, used when stdout is not a
// terminal or when the full-screen UI is disabled.
//
// Each input line is submitted as a chat message. Lines starting with a slash
// are commands:
//
//	/users         print the roster
//	/emoji         list the emoji palette
//	/emoji <n>     send palette entry n
//	/quit          leave
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/fatih/color"

	"github.com/codefionn/chatterm/internal/chat"
	"github.com/codefionn/chatterm/internal/consts"
	"github.com/codefionn/chatterm/internal/eventbus"
	"github.com/codefionn/chatterm/internal/logger"
)

// Options configures the CLI front end.
type Options struct {
	Username       string
	AvatarTemplate string
	StrictProtocol bool
	Sender         chat.Sender
	Bus            *eventbus.Bus
	In             io.Reader
	Out            io.Writer
	// Color enables ANSI colours in the output.
	Color bool
}

type notice struct {
	state       string
	err         error
	reconnected bool
}

// CLI runs one chat session on a single event loop. Frames, input lines and
// connection notices are all applied from Run's goroutine.
type CLI struct {
	opts    Options
	machine *chat.Machine
	line    *lineComposer

	frames  chan string
	notices chan notice
	done    chan struct{}

	printed    int
	lastRoster string

	nameColors []*color.Color
	system     *color.Color
	errColor   *color.Color
	unknown    *color.Color
}

// New creates the CLI front end. The username is trimmed and must not be
// empty.
func New(opts Options) (*CLI, error) {
	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return nil, errors.New("username is required")
	}
	if opts.Sender == nil {
		return nil, errors.New("sender is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("event bus is required")
	}
	if opts.In == nil || opts.Out == nil {
		return nil, errors.New("input and output are required")
	}

	c := &CLI{
		opts:     opts,
		line:     &lineComposer{},
		frames:   make(chan string, consts.DefaultSendBuffer),
		notices:  make(chan notice, 4),
		done:     make(chan struct{}),
		system:   color.New(color.FgHiBlack),
		errColor: color.New(color.FgRed),
		unknown:  color.New(color.FgWhite, color.Italic),
		nameColors: []*color.Color{
			color.New(color.FgCyan, color.Bold),
			color.New(color.FgGreen, color.Bold),
			color.New(color.FgYellow, color.Bold),
			color.New(color.FgMagenta, color.Bold),
			color.New(color.FgBlue, color.Bold),
			color.New(color.FgHiCyan, color.Bold),
			color.New(color.FgHiGreen, color.Bold),
			color.New(color.FgHiMagenta, color.Bold),
		},
	}
	if !opts.Color {
		for _, col := range append([]*color.Color{c.system, c.errColor, c.unknown}, c.nameColors...) {
			col.DisableColor()
		}
	}
	return c, nil
}

// ConnectionState reports a socket state change. Safe to call from any
// goroutine.
func (c *CLI) ConnectionState(state string, err error) {
	c.notify(notice{state: state, err: err})
}

// Reconnected reports that the socket re-established its connection. The
// session registers again on the event loop.
func (c *CLI) Reconnected() {
	c.notify(notice{reconnected: true})
}

func (c *CLI) notify(n notice) {
	select {
	case c.notices <- n:
	case <-c.done:
	default:
		logger.Debug("cli: dropped connection notice %q", n.state)
	}
}

// Run joins the chat and processes input until EOF, /quit or ctx is done.
func (c *CLI) Run(ctx context.Context) error {
	sub := c.opts.Bus.Subscribe(func(frame string) {
		select {
		case c.frames <- frame:
		case <-c.done:
		}
	})
	defer func() {
		close(c.done)
		sub.Unsubscribe()
		if c.machine != nil {
			c.machine.Close()
		}
	}()

	c.machine = chat.New(c.opts.Username, c.opts.Sender, c.line,
		chat.WithAvatarTemplate(c.opts.AvatarTemplate),
		chat.WithStrictDecoding(c.opts.StrictProtocol),
		chat.WithErrorHandler(func(err error) {
			c.printf(c.errColor, "! %v", err)
		}),
	)
	c.printf(c.system, "* joined as %s, /quit to leave", sanitize(c.opts.Username))

	lines := make(chan string)
	readErr := make(chan error, 1)
	go c.readLines(lines, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil

		case frame := <-c.frames:
			if c.machine.HandleFrame(frame) {
				c.flush()
			}

		case n := <-c.notices:
			c.handleNotice(n)

		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if quit := c.handleLine(line); quit {
				return nil
			}
		}
	}
}

func (c *CLI) readLines(lines chan<- string, readErr chan<- error) {
	defer close(lines)

	scanner := bufio.NewScanner(c.opts.In)
	scanner.Buffer(make([]byte, 0, consts.BufferSize1KB), consts.BufferSize64KB)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-c.done:
			readErr <- nil
			return
		}
	}
	if err := scanner.Err(); err != nil {
		readErr <- fmt.Errorf("read input: %w", err)
		return
	}
	readErr <- nil
}

func (c *CLI) handleNotice(n notice) {
	if n.reconnected {
		c.machine.Register()
		c.printf(c.system, "* reconnected")
		return
	}
	if n.err != nil {
		c.printf(c.system, "* %s (%v)", n.state, n.err)
		return
	}
	c.printf(c.system, "* %s", n.state)
}

// handleLine reports whether the user asked to quit.
func (c *CLI) handleLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "/quit":
		return true
	case trimmed == "/users":
		c.printRoster(true)
		return false
	case trimmed == "/emoji":
		c.printPalette()
		return false
	case strings.HasPrefix(trimmed, "/emoji "):
		c.sendEmoji(strings.TrimSpace(strings.TrimPrefix(trimmed, "/emoji ")))
		return false
	}

	c.line.SetText(line)
	c.machine.Submit()
	return false
}

func (c *CLI) sendEmoji(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(chat.Emojis) {
		c.printf(c.errColor, "! /emoji expects a number between 1 and %d", len(chat.Emojis))
		return
	}
	c.line.SetText("")
	c.machine.InsertEmoji(chat.Emojis[n-1])
	c.machine.Submit()
}

// flush prints history entries not shown yet and announces roster changes.
func (c *CLI) flush() {
	c.printRoster(false)

	entries := c.machine.Entries()
	for _, e := range entries[min(c.printed, len(entries)):] {
		c.printEntry(e)
	}
	c.printed = len(entries)
}

func (c *CLI) printEntry(e chat.Entry) {
	from := sanitize(e.From)
	name := c.unknown.Sprint(from)
	if e.Known {
		name = c.nameColor(from).Sprint(from)
	}

	text := sanitize(e.Text)
	if e.Image {
		text = "[gif] " + text
	}
	c.println(name + ": " + text)
}

func (c *CLI) printRoster(force bool) {
	roster := c.machine.Snapshot().Roster
	names := make([]string, 0, len(roster))
	for _, u := range roster {
		names = append(names, sanitize(u.Name))
	}
	joined := strings.Join(names, ", ")
	if !force && joined == c.lastRoster {
		return
	}
	c.lastRoster = joined
	c.printf(c.system, "* users (%d): %s", len(names), joined)
}

func (c *CLI) printPalette() {
	var sb strings.Builder
	for i, glyph := range chat.Emojis {
		if i > 0 && i%chat.EmojiPickerColumns == 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%2d %s  ", i+1, glyph)
	}
	c.println(strings.TrimRight(sb.String(), " "))
}

func (c *CLI) nameColor(name string) *color.Color {
	return c.nameColors[xxhash.Sum64String(name)%uint64(len(c.nameColors))]
}

func (c *CLI) printf(col *color.Color, format string, args ...any) {
	c.println(col.Sprintf(format, args...))
}

func (c *CLI) println(s string) {
	if _, err := fmt.Fprintln(c.opts.Out, s); err != nil {
		logger.Warn("cli: write output: %v", err)
	}
}

func sanitize(s string) string {
	return ansi.Strip(s)
}

// lineComposer holds the pending line for the state machine.
type lineComposer struct {
	text string
}

func (l *lineComposer) Text() string        { return l.text }
func (l *lineComposer) SetText(text string) { l.text = text }
func (l *lineComposer) Focus()              {}

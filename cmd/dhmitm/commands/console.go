package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/TheusHen/dhmitm/dhmitm/session"
)

const prompt = "> "

// console prints chat lines to stdout and keeps the prompt on screen when
// stdin is a terminal.
type console struct {
	mu         sync.Mutex
	out        io.Writer
	showPrompt bool
}

func newConsole() *console {
	return &console{
		out:        os.Stdout,
		showPrompt: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

func (c *console) Show(from session.Role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.showPrompt {
		fmt.Fprint(c.out, "\r")
	}
	fmt.Fprintf(c.out, "[%s] %s\n", from, text)
	c.prompt()
}

func (c *console) prompt() {
	if c.showPrompt {
		fmt.Fprint(c.out, prompt)
	}
}

// readLines streams lines from r until EOF or ctx ends, then closes the channel.
func (c *console) readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		c.mu.Lock()
		c.prompt()
		c.mu.Unlock()
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
			c.mu.Lock()
			c.prompt()
			c.mu.Unlock()
		}
		if err := sc.Err(); err != nil {
			log.WithError(err).Warn("reading input failed")
		}
	}()
	return lines
}

package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/TheusHen/dhmitm/dhmitm/session"
)

func TestConsoleShow(t *testing.T) {
	var buf bytes.Buffer
	c := &console{out: &buf}
	c.Show(session.Responder, "hello")
	if got := buf.String(); got != "[responder] hello\n" {
		t.Fatalf("got %q", got)
	}

	buf.Reset()
	c.showPrompt = true
	c.Show(session.Initiator, "hi")
	if got := buf.String(); got != "\r[initiator] hi\n> " {
		t.Fatalf("got %q", got)
	}
}

func TestConsoleReadLines(t *testing.T) {
	c := &console{out: &bytes.Buffer{}}
	var got []string
	for line := range c.readLines(testContext(t), strings.NewReader("one\n\ntwo\n")) {
		got = append(got, line)
	}
	if len(got) != 3 || got[0] != "one" || got[1] != "" || got[2] != "two" {
		t.Fatalf("lines = %q", got)
	}
}

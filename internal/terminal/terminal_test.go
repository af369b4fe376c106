package terminal

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipe returns a terminal on one end of a net.Pipe and a reader that
// collects everything the terminal writes.
func pipe(t *testing.T, ansi bool) (*Terminal, net.Conn, <-chan string) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	out := make(chan string, 256)
	go func() {
		r := bufio.NewReader(client)
		buf := make([]byte, 256)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				out <- string(buf[:n])
			}
			if err != nil {
				close(out)
				return
			}
		}
	}()
	return New(server, 80, 24, ansi), client, out
}

func write(t *testing.T, c net.Conn, s string) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := c.Write([]byte(s))
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client write did not complete")
	}
}

// collect reads output until it contains want.
func collect(t *testing.T, out <-chan string, want string) string {
	t.Helper()
	var sb strings.Builder
	deadline := time.After(2 * time.Second)
	for !strings.Contains(sb.String(), want) {
		select {
		case s, ok := <-out:
			if !ok {
				t.Fatalf("output closed before %q; got %q", want, sb.String())
			}
			sb.WriteString(s)
		case <-deadline:
			t.Fatalf("timed out waiting for %q; got %q", want, sb.String())
		}
	}
	return sb.String()
}

func TestAskEchoesAndEditsLine(t *testing.T) {
	term, client, out := pipe(t, false)

	got := make(chan string, 1)
	go func() {
		line, _ := term.Ask("> ", 10)
		got <- line
	}()

	collect(t, out, "> ")
	write(t, client, "12x\b3\r")

	select {
	case line := <-got:
		assert.Equal(t, "123", line)
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return")
	}
}

func TestAskSwallowsLFAfterCR(t *testing.T) {
	term, client, out := pipe(t, false)
	go func() {
		for range out {
		}
	}()

	got := make(chan []string, 1)
	go func() {
		a, _ := term.Ask("> ", 10)
		b, _ := term.Ask("> ", 10)
		got <- []string{a, b}
	}()

	write(t, client, "one\r\ntwo\r")

	select {
	case lines := <-got:
		assert.Equal(t, []string{"one", "two"}, lines)
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return")
	}
}

func TestGetPasswordMasks(t *testing.T) {
	term, client, out := pipe(t, false)

	var echo []bool
	term.SetEchoControl(func(on bool) error {
		echo = append(echo, on)
		return nil
	})

	got := make(chan string, 1)
	go func() {
		line, _ := term.GetPassword("Password: ", 20)
		got <- line
	}()

	collect(t, out, "Password: ")
	write(t, client, "pw\r")

	assert.Equal(t, "pw", <-got)
	s := collect(t, out, "\r\n")
	assert.NotContains(t, s, "pw")
	assert.Equal(t, []bool{false, true}, echo)
}

func TestNotifyRedrawsPartialInput(t *testing.T) {
	term, client, out := pipe(t, false)

	go func() {
		_, _ = term.Ask("> ", 10)
	}()
	collect(t, out, "> ")
	write(t, client, "co")
	collect(t, out, "o")

	go func() { _ = term.Notify("Code lock placed.") }()
	s := collect(t, out, "> co")
	assert.Contains(t, s, "Code lock placed.\r\n> co")

	write(t, client, "\r")
}

func TestNotifyWithoutPrompt(t *testing.T) {
	term, _, out := pipe(t, true)

	go func() { _ = term.Notify("line one\nline two") }()
	s := collect(t, out, "line two\r\n")
	assert.Equal(t, "line one\r\nline two\r\n", s)
}

func TestColorize(t *testing.T) {
	plain := New(nopRWC{}, 80, 24, false)
	assert.Equal(t, "x", plain.Colorize(FgYellow, "x"))

	color := New(nopRWC{}, 80, 24, true)
	assert.Equal(t, FgYellow+"x"+Reset, color.Colorize(FgYellow, "x"))
}

type nopRWC struct{}

func (nopRWC) Read([]byte) (int, error)    { return 0, io.EOF }
func (nopRWC) Write(p []byte) (int, error) { return len(p), nil }
func (nopRWC) Close() error                { return nil }

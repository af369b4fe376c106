package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Terminal provides line-oriented I/O over a raw connection. It handles
// CRLF line endings and lets other goroutines print notices without
// corrupting a line the user is typing.
type Terminal struct {
	rwc         io.ReadWriteCloser
	Width       int
	Height      int
	ANSIEnabled bool

	// mu guards writes and the in-progress input line.
	mu      sync.Mutex
	prompt  string
	pending []byte
	masked  bool

	// afterCR is set when the last line ended in CR, so the LF of a
	// CR LF pair does not end the next line. Only the reader touches it.
	afterCR bool

	// echoControl is called to enable/disable safe echo behavior.
	// For telnet, this typically controls whether the client performs local echo.
	echoControl func(on bool) error

	// ansiSource overrides ANSIEnabled when set.
	ansiSource func() bool
}

// New creates a new Terminal wrapping the given ReadWriteCloser.
func New(rwc io.ReadWriteCloser, width, height int, ansiEnabled bool) *Terminal {
	return &Terminal{
		rwc:         rwc,
		Width:       width,
		Height:      height,
		ANSIEnabled: ansiEnabled,
	}
}

// SetEchoControl registers a callback for enabling/disabling echo behavior.
func (t *Terminal) SetEchoControl(fn func(on bool) error) {
	t.echoControl = fn
}

// SetANSISource makes ANSI support follow fn. Telnet learns the terminal
// type only after the session has started reading, so the answer can
// change. Set it before the terminal is shared between goroutines.
func (t *Terminal) SetANSISource(fn func() bool) {
	t.ansiSource = fn
}

// ANSI reports whether color and cursor sequences may be sent.
func (t *Terminal) ANSI() bool {
	if t.ansiSource != nil {
		return t.ansiSource()
	}
	return t.ANSIEnabled
}

// Close closes the underlying connection.
func (t *Terminal) Close() error {
	return t.rwc.Close()
}

// Send writes raw text to the terminal.
func (t *Terminal) Send(data string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.send(data)
}

func (t *Terminal) send(data string) error {
	_, err := io.WriteString(t.rwc, data)
	return err
}

// SendLn writes text followed by CR+LF. Embedded newlines become CR+LF.
func (t *Terminal) SendLn(text string) error {
	return t.Send(crlf(text) + "\r\n")
}

// Colorize wraps text in an SGR color when ANSI is enabled.
func (t *Terminal) Colorize(color, text string) string {
	if !t.ANSI() || color == "" {
		return text
	}
	return color + text + Reset
}

// Cls clears the screen.
func (t *Terminal) Cls() error {
	if t.ANSI() {
		return t.Send(ClearScreen())
	}
	return t.Send(strings.Repeat("\r\n", 24))
}

// Notify prints text above the line being typed, then redraws the prompt
// and the partial input.
func (t *Terminal) Notify(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.prompt == "" && len(t.pending) == 0 {
		return t.send(crlf(text) + "\r\n")
	}

	clear := "\r\n"
	if t.ANSI() {
		clear = ClearLine()
	}
	echo := string(t.pending)
	if t.masked {
		echo = strings.Repeat("*", len(t.pending))
	}
	return t.send(clear + crlf(text) + "\r\n" + t.prompt + echo)
}

func crlf(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", "\r\n")
}

// readByte reads a single byte without holding the write lock.
func (t *Terminal) readByte() (byte, error) {
	buf := make([]byte, 1)
	_, err := t.rwc.Read(buf)
	return buf[0], err
}

// Ask displays a prompt and reads a line of input with echo.
func (t *Terminal) Ask(prompt string, maxLen int) (string, error) {
	return t.readLine(prompt, maxLen, false)
}

// GetLine reads a line of input up to maxLen characters, with echo.
// Returns the entered string (without trailing CR/LF).
func (t *Terminal) GetLine(maxLen int) (string, error) {
	return t.readLine("", maxLen, false)
}

// GetPassword displays a prompt and reads a line without echo, showing
// asterisks instead.
func (t *Terminal) GetPassword(prompt string, maxLen int) (string, error) {
	if t.echoControl != nil {
		t.echoControl(false)
		defer t.echoControl(true)
	}
	return t.readLine(prompt, maxLen, true)
}

func (t *Terminal) readLine(prompt string, maxLen int, masked bool) (string, error) {
	t.mu.Lock()
	t.prompt = prompt
	t.pending = t.pending[:0]
	t.masked = masked
	err := t.send(prompt)
	t.mu.Unlock()
	if err != nil {
		return "", err
	}

	defer func() {
		t.mu.Lock()
		t.prompt = ""
		t.pending = t.pending[:0]
		t.masked = false
		t.mu.Unlock()
	}()

	for {
		b, err := t.readByte()
		if err != nil {
			t.mu.Lock()
			line := string(t.pending)
			t.mu.Unlock()
			return line, err
		}

		if b == '\n' && t.afterCR {
			t.afterCR = false
			continue
		}
		t.afterCR = b == '\r'

		t.mu.Lock()
		switch b {
		case '\r', '\n':
			line := string(t.pending)
			t.send("\r\n")
			t.mu.Unlock()
			return line, nil
		case 0:
			// Telnet sends CR NUL for a bare carriage return.
		case 8, 127: // backspace or delete
			if len(t.pending) > 0 {
				t.pending = t.pending[:len(t.pending)-1]
				t.send("\b \b")
			}
		default:
			if b >= 32 && b < 127 && len(t.pending) < maxLen {
				t.pending = append(t.pending, b)
				if masked {
					t.send("*")
				} else {
					t.send(string(b))
				}
			}
		}
		t.mu.Unlock()
	}
}

// YesNo displays a prompt and waits for Y or N.
func (t *Terminal) YesNo(prompt string) (bool, error) {
	if err := t.Send(fmt.Sprintf("%s (Y/N) ", prompt)); err != nil {
		return false, err
	}
	for {
		b, err := t.readByte()
		if err != nil {
			return false, err
		}
		switch b {
		case 'Y', 'y':
			return true, t.SendLn("Yes")
		case 'N', 'n':
			return false, t.SendLn("No")
		}
	}
}

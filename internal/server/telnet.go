package server

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
)

// Telnet command and option bytes (RFC 854, 857, 858, 1073, 1091).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240

	OptEcho  byte = 1
	OptSGA   byte = 3
	OptTType byte = 24
	OptNAWS  byte = 31

	ttypeIs   byte = 0
	ttypeSend byte = 1
)

const (
	maxSubneg   = 256
	maxTermType = 40
)

var errSubnegTooLong = errors.New("telnet: subnegotiation too long")

// Profile is what negotiation has told us about the player's terminal.
type Profile struct {
	TermType string
	Width    int
	Height   int
	ANSI     bool
}

// decodeState is the position of the input decoder within a telnet
// command sequence.
type decodeState int

const (
	stData decodeState = iota
	stIAC
	stOption // after WILL/WONT/DO/DONT, waiting for the option byte
	stSub    // inside SB ... IAC SE
	stSubIAC // IAC seen inside SB
)

// TelnetConn carries a player session over telnet. Reads return plain
// keystrokes; negotiation is answered inline and its results are kept in
// a Profile that node sessions and the terminal read concurrently.
type TelnetConn struct {
	conn net.Conn
	in   *bufio.Reader

	// Decoder state; only the reading goroutine touches it.
	state decodeState
	verb  byte
	sub   []byte

	wmu sync.Mutex // serialises writes

	pmu     sync.RWMutex
	profile Profile
}

// NewTelnetConn wraps conn. Until the client says otherwise the terminal
// is assumed to be an 80x24 ANSI screen.
func NewTelnetConn(conn net.Conn) *TelnetConn {
	return &TelnetConn{
		conn:    conn,
		in:      bufio.NewReaderSize(conn, 512),
		profile: Profile{Width: 80, Height: 24, ANSI: true},
	}
}

// Negotiate asks for what a session needs: server-side echo so code and
// password prompts stay masked, character mode, the window size and the
// terminal type.
func (tc *TelnetConn) Negotiate() error {
	return tc.send(
		IAC, WILL, OptEcho,
		IAC, WILL, OptSGA,
		IAC, DO, OptSGA,
		IAC, DO, OptNAWS,
		IAC, DO, OptTType,
	)
}

// Profile returns the terminal profile negotiated so far.
func (tc *TelnetConn) Profile() Profile {
	tc.pmu.RLock()
	defer tc.pmu.RUnlock()
	return tc.profile
}

// ANSI reports whether the terminal understands color sequences.
func (tc *TelnetConn) ANSI() bool {
	return tc.Profile().ANSI
}

// SetEcho keeps the server in charge of echo in both directions. A WONT
// ECHO would make most clients echo locally and show typed codes.
func (tc *TelnetConn) SetEcho(bool) error {
	return tc.send(IAC, WILL, OptEcho)
}

// ReadByte returns the next data byte, consuming any telnet commands in
// front of it.
func (tc *TelnetConn) ReadByte() (byte, error) {
	for {
		b, err := tc.in.ReadByte()
		if err != nil {
			return 0, err
		}
		data, ok, err := tc.decode(b)
		if err != nil {
			return 0, err
		}
		if ok {
			return data, nil
		}
	}
}

// decode advances the state machine by one input byte and reports a data
// byte when one is complete.
func (tc *TelnetConn) decode(b byte) (byte, bool, error) {
	switch tc.state {
	case stData:
		if b == IAC {
			tc.state = stIAC
			return 0, false, nil
		}
		return b, true, nil

	case stIAC:
		switch b {
		case IAC:
			tc.state = stData
			return IAC, true, nil
		case WILL, WONT, DO, DONT:
			tc.verb = b
			tc.state = stOption
		case SB:
			tc.sub = tc.sub[:0]
			tc.state = stSub
		default:
			// GA, NOP and friends carry nothing for us.
			tc.state = stData
		}

	case stOption:
		tc.state = stData
		tc.answer(tc.verb, b)

	case stSub:
		if b == IAC {
			tc.state = stSubIAC
			return 0, false, nil
		}
		if len(tc.sub) >= maxSubneg {
			return 0, false, errSubnegTooLong
		}
		tc.sub = append(tc.sub, b)

	case stSubIAC:
		switch b {
		case IAC:
			tc.state = stSub
			if len(tc.sub) >= maxSubneg {
				return 0, false, errSubnegTooLong
			}
			tc.sub = append(tc.sub, IAC)
		case SE:
			tc.state = stData
			tc.subnegotiation(tc.sub)
		default:
			// Malformed; drop the block.
			tc.state = stData
		}
	}
	return 0, false, nil
}

// answer replies to an option offer or request. Options we asked for are
// accepted silently; everything else is refused.
func (tc *TelnetConn) answer(verb, opt byte) {
	switch verb {
	case WILL:
		switch opt {
		case OptNAWS, OptSGA:
		case OptTType:
			_ = tc.send(IAC, SB, OptTType, ttypeSend, IAC, SE)
		default:
			_ = tc.send(IAC, DONT, opt)
		}
	case DO:
		if opt != OptEcho && opt != OptSGA {
			_ = tc.send(IAC, WONT, opt)
		}
	}
}

func (tc *TelnetConn) subnegotiation(buf []byte) {
	if len(buf) == 0 {
		return
	}
	switch buf[0] {
	case OptNAWS:
		if len(buf) < 5 {
			return
		}
		w := int(buf[1])<<8 | int(buf[2])
		h := int(buf[3])<<8 | int(buf[4])
		tc.updateProfile(func(p *Profile) {
			if w > 0 {
				p.Width = w
			}
			if h > 0 {
				p.Height = h
			}
		})
	case OptTType:
		if len(buf) < 2 || buf[1] != ttypeIs {
			return
		}
		name := string(buf[2:])
		if len(name) > maxTermType {
			name = name[:maxTermType]
		}
		tc.updateProfile(func(p *Profile) {
			p.TermType = name
			p.ANSI = isANSITermType(name)
		})
	}
}

func (tc *TelnetConn) updateProfile(fn func(p *Profile)) {
	tc.pmu.Lock()
	defer tc.pmu.Unlock()
	fn(&tc.profile)
}

// Read implements io.Reader. It returns as soon as at least one data byte
// is available and no more input is buffered.
func (tc *TelnetConn) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := tc.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		p[n] = b
		n++
		if tc.in.Buffered() == 0 {
			break
		}
	}
	return n, nil
}

// Write sends p as data, doubling any 0xFF byte so it is not taken for a
// command.
func (tc *TelnetConn) Write(p []byte) (int, error) {
	out := p
	if bytes.IndexByte(p, IAC) >= 0 {
		out = make([]byte, 0, len(p)+4)
		for _, b := range p {
			out = append(out, b)
			if b == IAC {
				out = append(out, IAC)
			}
		}
	}

	tc.wmu.Lock()
	defer tc.wmu.Unlock()
	if _, err := tc.conn.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// send writes a raw command sequence.
func (tc *TelnetConn) send(seq ...byte) error {
	tc.wmu.Lock()
	defer tc.wmu.Unlock()
	_, err := tc.conn.Write(seq)
	return err
}

// Close closes the connection.
func (tc *TelnetConn) Close() error {
	return tc.conn.Close()
}

// RemoteAddr returns the player's address.
func (tc *TelnetConn) RemoteAddr() net.Addr {
	return tc.conn.RemoteAddr()
}

// ansiTermPrefixes are terminal type families that understand SGR colors.
var ansiTermPrefixes = []string{"ansi", "xterm", "vt1", "vt2", "linux", "screen", "tmux", "rxvt", "putty", "konsole"}

func isANSITermType(termType string) bool {
	t := strings.ToLower(termType)
	for _, p := range ansiTermPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

var _ io.ReadWriteCloser = (*TelnetConn)(nil)

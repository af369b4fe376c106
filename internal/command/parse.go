// Package command implements the player-facing "code" chat command and the
// lockout reset console command, turning core outcomes into text.
package command

import (
	"errors"
	"strings"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/settings"
)

// Argument keywords.
const (
	ArgGuest  = "guest"
	ArgSet    = "set"
	ArgRandom = "random"
	ArgRemove = "remove"
	ArgPick   = "pick"
	ArgQuiet  = "quiet"
	ArgHelp   = "help"
)

var (
	// ErrSyntax is returned for arguments that match no form of the command.
	ErrSyntax = errors.New("syntax error")
	// ErrTooManyArgs is returned when arguments follow a complete form.
	ErrTooManyArgs = errors.New("too many arguments")
)

// Op is what a parsed command asks for.
type Op int

const (
	OpInfo Op = iota
	OpSet
	OpRandom
	OpRemove
	OpPick
	OpQuiet
	OpHelp
)

// Request is a parsed "code" command.
type Request struct {
	Op   Op
	Slot settings.Slot
	// Code is the argument of OpSet. It is not validated here.
	Code string
}

// Parse reads the arguments of the "code" command:
//
//	[guest] [set] <1234|random|remove|pick> | quiet | help
func Parse(args []string) (Request, error) {
	if len(args) == 0 {
		return Request{Op: OpInfo}, nil
	}

	next := 0
	take := func() string {
		a := strings.ToLower(args[next])
		next++
		return a
	}

	req := Request{Slot: settings.Primary}
	op := take()

	guest := false
	if op == ArgGuest {
		if next >= len(args) {
			return Request{}, ErrSyntax
		}
		guest = true
		req.Slot = settings.Guest
		op = take()
	}

	explicitSet := false
	if op == ArgSet {
		if next >= len(args) {
			return Request{}, ErrSyntax
		}
		explicitSet = true
		op = take()
	}

	switch op {
	case ArgHelp:
		req.Op = OpHelp
		return req, nil
	case ArgQuiet:
		if guest || explicitSet {
			return Request{}, ErrSyntax
		}
		req.Op = OpQuiet
	case ArgRemove:
		req.Op = OpRemove
	case ArgRandom:
		req.Op = OpRandom
	case ArgPick:
		req.Op = OpPick
	default:
		if !explicitSet && !autocode.IsValidCode(op) {
			return Request{}, ErrSyntax
		}
		req.Op = OpSet
		req.Code = op
	}

	if next < len(args) {
		return Request{}, ErrTooManyArgs
	}
	return req, nil
}

// Fields splits a command line into its name and arguments.
func Fields(line string) (string, []string) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return "", nil
	}
	return strings.ToLower(f[0]), f[1:]
}

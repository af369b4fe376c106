package settings

import (
	"fmt"
	"strings"

	"github.com/notepid/autocode/internal/ratelimit"
)

// UserID is the opaque stable identifier of a user.
type UserID string

// Slot selects which of a user's two codes an operation targets.
type Slot int

const (
	Primary Slot = iota
	Guest
)

// String returns the slot name used in logs and commands.
func (s Slot) String() string {
	switch s {
	case Primary:
		return "primary"
	case Guest:
		return "guest"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// ParseSlot is the inverse of Slot.String.
func ParseSlot(s string) (Slot, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "":
		return Primary, nil
	case "guest":
		return Guest, nil
	default:
		return Primary, fmt.Errorf("unknown slot %q", s)
	}
}

// Settings is everything stored for one user. Codes are empty when unset
// and otherwise exactly four ASCII digits.
type Settings struct {
	Code      string          `json:"code,omitempty"`
	GuestCode string          `json:"guestCode,omitempty"`
	QuietMode bool            `json:"quietMode"`
	RateLimit ratelimit.State `json:"rateLimit"`
}

// CodeFor returns the code stored in slot and whether one is set.
func (s *Settings) CodeFor(slot Slot) (string, bool) {
	var c string
	if slot == Guest {
		c = s.GuestCode
	} else {
		c = s.Code
	}
	return c, c != ""
}

// SetCodeFor stores code in slot. An empty code clears the slot.
func (s *Settings) SetCodeFor(slot Slot, code string) {
	if slot == Guest {
		s.GuestCode = code
		return
	}
	s.Code = code
}

package user

import "github.com/notepid/autocode/internal/settings"

// LevelSource resolves a user's security level. *Repo satisfies it.
type LevelSource interface {
	SecurityLevel(id settings.UserID) (int, bool)
}

// Grants answers permission queries by comparing a user's security level
// with the minimum level configured for each permission.
type Grants struct {
	minLevels map[string]int
	levels    LevelSource
}

// NewGrants creates a Grants. Permissions missing from minLevels are
// never granted.
func NewGrants(minLevels map[string]int, levels LevelSource) *Grants {
	return &Grants{minLevels: minLevels, levels: levels}
}

// HasPermission reports whether id holds perm.
func (g *Grants) HasPermission(id settings.UserID, perm string) bool {
	min, ok := g.minLevels[perm]
	if !ok {
		return false
	}
	level, ok := g.levels.SecurityLevel(id)
	return ok && level >= min
}

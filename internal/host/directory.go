package host

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/command"
	"github.com/notepid/autocode/internal/settings"
)

// directory resolves console targets against registered accounts. An
// exact id or name wins over partial name matches.
type directory struct {
	users interface {
		Names() (map[settings.UserID]string, error)
	}
	log *zap.Logger
}

func (d *directory) Lookup(query string) []command.Match {
	names, err := d.users.Names()
	if err != nil {
		d.log.Error("list users", zap.Error(err))
		return nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if name, ok := names[settings.UserID(q)]; ok {
		return []command.Match{{ID: settings.UserID(q), Name: name}}
	}

	var exact, partial []command.Match
	for id, name := range names {
		lower := strings.ToLower(name)
		switch {
		case lower == q:
			exact = append(exact, command.Match{ID: id, Name: name})
		case strings.Contains(lower, q):
			partial = append(partial, command.Match{ID: id, Name: name})
		}
	}
	if len(exact) > 0 {
		return exact
	}
	sort.Slice(partial, func(i, j int) bool { return partial[i].Name < partial[j].Name })
	return partial
}

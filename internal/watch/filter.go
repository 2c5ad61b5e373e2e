package watch

import "strings"

// Filter decides whether an event is passed on.
type Filter func(Event) bool

// MatchExt accepts events whose path is non-empty and ends in ext.
func MatchExt(ext string) Filter {
	return func(e Event) bool {
		return e.Path != "" && ext != "" && strings.HasSuffix(e.Path, ext)
	}
}

package session

import (
	"fmt"
	"strings"

	"github.com/dalemusser/onepager/internal/app/system/swrcache"
)

// Scopes of a cached session aggregate. Invalidating one scope re-fetches
// only what it covers on the next read.
const (
	ScopeProfile   swrcache.Mask = 1 << iota // profile fields only
	ScopeWorkspace                           // current workspace, membership and list
	ScopeAll       = swrcache.All
)

// ParseScope maps the query-string form of a scope to its mask. The empty
// string means all.
func ParseScope(s string) (swrcache.Mask, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ScopeAll, nil
	case "profile":
		return ScopeProfile, nil
	case "workspace":
		return ScopeWorkspace, nil
	}
	return 0, fmt.Errorf("unknown scope %q", s)
}

// profileOnly reports whether m covers the profile and nothing else.
func profileOnly(m swrcache.Mask) bool {
	return m != 0 && m&^ScopeProfile == 0
}

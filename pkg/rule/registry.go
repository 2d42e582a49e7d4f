package rule

import (
	"strings"
	"sync"

	"github.com/nimbuild/nimbuild/pkg/scope"
	"github.com/nimbuild/nimbuild/pkg/ttype"
)

// opKey indexes a scope's rule map by (meta-op id, op id).
type opKey struct {
	Meta int
	Op   int
}

type entry struct {
	hint string
	rule *Rule
}

// Registry is the process-wide rule registry, keyed per scope so the
// matcher can walk scopes outward exactly as it walks variable lookups.
// Scopes themselves don't hold rule registrations (see §4.2/§4.5) — this
// keeps the scope package free of a dependency on rule.Rule.
type Registry struct {
	mu   sync.RWMutex
	byScope map[*scope.Scope]map[opKey]map[*ttype.Type][]entry
}

func NewRegistry() *Registry {
	return &Registry{byScope: make(map[*scope.Scope]map[opKey]map[*ttype.Type][]entry)}
}

// Register adds rule under (sc, metaID, opID, typ, hint).
func (r *Registry) Register(sc *scope.Scope, metaID, opID int, typ *ttype.Type, hint string, rl *Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byOp, ok := r.byScope[sc]
	if !ok {
		byOp = make(map[opKey]map[*ttype.Type][]entry)
		r.byScope[sc] = byOp
	}
	k := opKey{Meta: metaID, Op: opID}
	byType, ok := byOp[k]
	if !ok {
		byType = make(map[*ttype.Type][]entry)
		byOp[k] = byType
	}
	byType[typ] = append(byType[typ], entry{hint: hint, rule: rl})
}

// candidates returns every rule registered at sc for (metaID, opID, typ)
// whose hint prefix is compatible with the query hint: an empty
// registered hint matches any query, and otherwise the registered hint
// must be a prefix of the query hint.
func (r *Registry) candidates(sc *scope.Scope, metaID, opID int, typ *ttype.Type, hint string) []*Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byOp, ok := r.byScope[sc]
	if !ok {
		return nil
	}
	byType, ok := byOp[opKey{Meta: metaID, Op: opID}]
	if !ok {
		return nil
	}
	entries := byType[typ]
	var out []*Rule
	for _, e := range entries {
		if e.hint == "" || strings.HasPrefix(hint, e.hint) {
			out = append(out, e.rule)
		}
	}
	return out
}

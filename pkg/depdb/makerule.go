// Package depdb implements dynamic dependency extraction (C9): parsing a
// compiler's make-rule output, resolving discovered headers through a
// prefix map, and maintaining a per-target on-disk dependency database
// that lets a later build trust the previously recorded header list
// instead of re-invoking the compiler.
package depdb

import (
	"strings"

	"github.com/mgutz/str"
)

// ParseMakeRule parses a single GCC/Clang "-M -MG -MQ" style make-rule
// line of the form `target: prereq1 prereq2 ...` (continuations already
// joined), honoring backslash-escaped spaces, and returns the
// prerequisite list with the rule's own target and the invoking source
// file stripped.
//
// Tokenizing is delegated to mgutz/str.ToArgv, which already understands
// backslash-escapes the way a shell word-splitter does — exactly what
// §4.9 step 3 calls for.
func ParseMakeRule(line, target, source string) []string {
	line = strings.ReplaceAll(line, "\\\n", " ")
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return nil
	}
	rest := line[colon+1:]

	tokens := str.ToArgv(rest)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" || tok == target || tok == source {
			continue
		}
		out = append(out, tok)
	}
	return out
}
